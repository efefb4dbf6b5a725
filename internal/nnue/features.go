package nnue

import "github.com/hailam/chesscore/internal/board"

// Feature indexing. Each perspective sees the board through two transforms
// applied as square-index XOR masks:
//
//   - vertical flip (^56) when the perspective is Black, so both sides
//     encode "my pieces move up the board";
//   - horizontal mirror (^7) when the perspective's king stands on files
//     E-H, so the king is always on files A-D and one network half covers
//     both castling wings.
//
// Piece color is encoded relative to the perspective: 0 = own, 1 = enemy.

// mirrorMask returns the horizontal-mirror XOR mask (0 or 7) for a king on
// the given square.
func mirrorMask(kingSq board.Square) int {
	if kingSq.File() >= 4 {
		return 7
	}
	return 0
}

// perspectiveMask returns the vertical-flip XOR mask (0 or 56).
func perspectiveMask(persp board.Color) int {
	if persp == board.Black {
		return 56
	}
	return 0
}

// FeatureIndex computes the feature transformer column for a piece of type
// pt and color c on sq, seen from persp with horizontal mirror mask mir.
func FeatureIndex(persp board.Color, mir int, pt board.PieceType, c board.Color, sq board.Square) int {
	rel := 0
	if c != persp {
		rel = 1
	}
	s := int(sq) ^ perspectiveMask(persp) ^ mir
	return rel*NumPieces*NumSquares + int(pt)*NumSquares + s
}

// appendActiveFeatures collects every enabled feature for pos under persp
// into buf, which must have capacity for 32 entries.
func appendActiveFeatures(pos *board.Position, persp board.Color, mir int, buf []int) []int {
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := pos.Pieces[c][pt]
			for bb != 0 {
				sq := bb.PopLSB()
				buf = append(buf, FeatureIndex(persp, mir, pt, c, sq))
			}
		}
	}
	return buf
}
