package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// seeValueOf returns the SEE material value for a piece type, using the
// compact exchange-ordering scale (score.go) rather than centipawns.
func seeValueOf(pt board.PieceType) int {
	if pt > board.King {
		return 0
	}
	return seeValues[pt]
}

// leastValuableAttacker finds color's cheapest attacker among the
// attackers bitboard that is still present in occupied, returning its
// square, piece type, and the occupancy with it removed.
func leastValuableAttacker(pos *board.Position, color board.Color, attackers, occupied board.Bitboard) (board.Square, board.PieceType, board.Bitboard, bool) {
	for pt := board.Pawn; pt <= board.King; pt++ {
		bb := attackers & pos.Pieces[color][pt] & occupied
		if bb == 0 {
			continue
		}
		sq := bb.LSB()
		return sq, pt, occupied &^ board.SquareBB(sq), true
	}
	return 0, 0, occupied, false
}

// See runs a static exchange evaluation of the capture sequence initiated
// by playing m on the target square, returning the net material swing (in
// SEE units, see score.go) from the mover's perspective assuming best play
// by both sides. This is the classic swap-off algorithm used by every
// alpha-beta engine in the corpus: walk the sequence of captures on the
// target square from cheapest attacker to cheapest attacker, recording the
// running material gain at each step, then back up the array taking the
// minimax of "stop now" vs "continue the exchange" at every ply.
func See(pos *board.Position, m board.Move) int {
	from, to := m.From(), m.To()
	us := pos.SideToMove

	occupied := pos.AllOccupied

	var captured board.PieceType = board.NoPieceType
	if m.IsEnPassant() {
		captured = board.Pawn
	} else if cp := pos.PieceAt(to); cp != board.NoPiece {
		captured = cp.Type()
	}

	var gain [32]int
	depth := 0
	if captured != board.NoPieceType {
		gain[0] = seeValueOf(captured)
	}

	occupied &^= board.SquareBB(from)
	if m.IsEnPassant() {
		capSq := to - 8
		if us == board.Black {
			capSq = to + 8
		}
		occupied &^= board.SquareBB(capSq)
	}

	attackingType := pos.PieceAt(from).Type()
	side := us.Other()

	for {
		attackers := pos.AttackersTo(to, occupied) & occupied
		_, pt, newOccupied, ok := leastValuableAttacker(pos, side, attackers, occupied)
		if !ok || depth >= 31 {
			break
		}

		depth++
		gain[depth] = seeValueOf(attackingType) - gain[depth-1]

		occupied = newOccupied
		attackingType = pt
		side = side.Other()
	}

	for depth > 0 {
		depth--
		if -gain[depth+1] < gain[depth] {
			gain[depth] = -gain[depth+1]
		}
	}
	return gain[0]
}

// SeeGe reports whether playing m has a static exchange value at least
// threshold, used to prune losing captures in quiescence search and the
// main move loop without the caller needing the full signed SEE score.
func SeeGe(pos *board.Position, m board.Move, threshold int) bool {
	return See(pos, m) >= threshold
}
