package board

import "fmt"

// Move packs into 16 bits, which is also exactly how the transposition
// table stores it:
//
//	bits 0-5    from square
//	bits 6-11   to square
//	bits 12-13  promotion piece (Knight..Queen)
//	bits 14-15  kind (normal, promotion, en passant, castling)
//
// Castling is encoded as the king's movement; the rook relocation is
// implied by the position's castling-rook files, which is what lets the
// same encoding cover standard chess and Chess960.
type Move uint16

const (
	FlagNormal    uint16 = 0 << 14
	FlagPromotion uint16 = 1 << 14
	FlagEnPassant uint16 = 2 << 14
	FlagCastling  uint16 = 3 << 14
)

// NoMove is the zero Move, used as "no TT move", "no killer" and the null
// sentinel throughout the search.
const NoMove Move = 0

// NewMove creates a normal move.
func NewMove(from, to Square) Move {
	return Move(from) | Move(to)<<6
}

// NewPromotion creates a promotion to promo (Knight..Queen).
func NewPromotion(from, to Square, promo PieceType) Move {
	return Move(from) | Move(to)<<6 | Move(promo-Knight)<<12 | Move(FlagPromotion)
}

// NewEnPassant creates an en passant capture.
func NewEnPassant(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagEnPassant)
}

// NewCastling creates a castling move given the king's from/to squares.
func NewCastling(from, to Square) Move {
	return Move(from) | Move(to)<<6 | Move(FlagCastling)
}

// From returns the origin square.
func (m Move) From() Square {
	return Square(m & 0x3F)
}

// To returns the destination square.
func (m Move) To() Square {
	return Square((m >> 6) & 0x3F)
}

// Flag returns the move kind bits.
func (m Move) Flag() uint16 {
	return uint16(m) & 0xC000
}

// Promotion returns the promotion piece type; meaningful only when
// IsPromotion reports true.
func (m Move) Promotion() PieceType {
	return PieceType((m>>12)&3) + Knight
}

func (m Move) IsPromotion() bool { return m.Flag() == FlagPromotion }
func (m Move) IsCastling() bool  { return m.Flag() == FlagCastling }
func (m Move) IsEnPassant() bool { return m.Flag() == FlagEnPassant }

// IsCapture reports whether the move takes a piece in pos. Castling never
// captures even though in Chess960 the king's destination can hold the
// castling rook.
func (m Move) IsCapture(pos *Position) bool {
	if m.IsEnPassant() {
		return true
	}
	return !m.IsCastling() && !pos.IsEmpty(m.To())
}

// IsQuiet reports whether the move is neither a capture nor a promotion,
// i.e. whether it scores through the butterfly/continuation history.
func (m Move) IsQuiet(pos *Position) bool {
	return !m.IsCapture(pos) && !m.IsPromotion()
}

// String renders the move in UCI long algebraic ("e2e4", "e7e8q"), "0000"
// for NoMove.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string("nbrq"[m.Promotion()-Knight])
	}
	return s
}

// ParseMove parses a UCI move string against pos, reconstructing the kind
// bits from context: a king move of two files is standard castling, a king
// "capturing" its own rook is the Chess960 castling notation, a pawn to
// the en passant square is an en passant capture.
func ParseMove(s string, pos *Position) (Move, error) {
	if len(s) < 4 {
		return NoMove, fmt.Errorf("invalid move string: %s", s)
	}

	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, err
	}

	if len(s) == 5 {
		var promo PieceType
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("invalid promotion piece: %c", s[4])
		}
		return NewPromotion(from, to, promo), nil
	}

	piece := pos.PieceAt(from)
	if piece == NoPiece {
		return NoMove, fmt.Errorf("no piece at %s", from)
	}

	if piece.Type() == King {
		if target := pos.PieceAt(to); target != NoPiece &&
			target.Color() == piece.Color() && target.Type() == Rook {
			// King takes own rook: Chess960 castling notation. The king's
			// real destination is fixed by which side of it the rook sits.
			kingTo := NewSquare(2, from.Rank())
			if to > from {
				kingTo = NewSquare(6, from.Rank())
			}
			return NewCastling(from, kingTo), nil
		}
		if abs(int(to)-int(from)) == 2 && from.Rank() == to.Rank() {
			return NewCastling(from, to), nil
		}
	}

	if piece.Type() == Pawn && to == pos.EnPassant {
		return NewEnPassant(from, to), nil
	}

	return NewMove(from, to), nil
}

// MoveList is a fixed-capacity move collection; 256 comfortably exceeds
// the legal-move maximum of any reachable position, and the fixed backing
// array keeps move generation allocation-free.
type MoveList struct {
	moves [256]Move
	count int
}

// NewMoveList creates an empty list.
func NewMoveList() *MoveList {
	return &MoveList{}
}

// Add appends a move.
func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

// Len returns the number of moves.
func (ml *MoveList) Len() int {
	return ml.count
}

// Get returns the move at index i.
func (ml *MoveList) Get(i int) Move {
	return ml.moves[i]
}

// Swap exchanges two entries; the move picker's selection sort runs on
// this.
func (ml *MoveList) Swap(i, j int) {
	ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i]
}

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for i := 0; i < ml.count; i++ {
		if ml.moves[i] == m {
			return true
		}
	}
	return false
}

// Slice returns the live backing slice of the stored moves.
func (ml *MoveList) Slice() []Move {
	return ml.moves[:ml.count]
}

// UndoInfo carries the irreversible state MakeMove destroys, so
// UnmakeMove can restore it without recomputation.
type UndoInfo struct {
	CapturedPiece  Piece
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	Hash           uint64
	PawnKey        uint64
	Checkers       Bitboard
	Valid          bool // false when MakeMove rejected the move untouched
}
