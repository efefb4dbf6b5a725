package engine

import "fmt"

// Search-wide score constants.
//
// Eval is a signed centipawn score. Anything outside (-MateScore, MateScore)
// encodes "mate in N plies from the current node": Infinity-MateScore slack
// plies are reserved so that mate distances can still be represented after
// negation and ply shifting near the root.
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 256
)

// Eval is the signed score type used throughout the search. It is kept as a
// plain int so it composes cheaply with alpha/beta arithmetic, but every
// mutation is expected to go through the helpers below so mate distances
// stay correctly clamped.
type Eval int32

// Cp builds a centipawn score. Values are not required to be pre-clamped;
// callers that might overflow into the mate band should use Add/Sub.
func Cp(v int) Eval { return Eval(v) }

// Mated returns the score for being checkmated at the given ply: the deeper
// the mate, the less bad it is, so the score rises monotonically with ply.
func Mated(ply int) Eval { return Eval(ply - MateScore - 1000) }

// Mating returns the score for delivering mate at the given ply.
func Mating(ply int) Eval { return Eval(MateScore + 1000 - ply) }

// IsMate reports whether e encodes a mate distance rather than a material score.
func (e Eval) IsMate() bool {
	return e > MateScore || e < -MateScore
}

// Losing reports whether e is below the non-mate band's lower edge, i.e. the
// side to move is being mated.
func (e Eval) Losing() bool {
	return e < -MateScore
}

// Add adds an integer offset, saturating to the outer bound instead of
// overflowing into or past the mate encoding.
func (e Eval) Add(d int) Eval {
	v := int(e) + d
	if v > Infinity {
		v = Infinity
	}
	if v < -Infinity {
		v = -Infinity
	}
	return Eval(v)
}

// Sub subtracts an integer offset with the same saturation as Add.
func (e Eval) Sub(d int) Eval { return e.Add(-d) }

// Negate flips the score to the opponent's perspective.
func (e Eval) Negate() Eval { return -e }

// SubEval returns a - b as a plain margin, used for futility/aspiration
// arithmetic where the mate band does not need to be preserved.
func SubEval(a, b Eval) int32 { return int32(a) - int32(b) }

// PlySub pushes a mate score n plies further from the root, used when a
// score computed at search ply p is about to be stored in a TT entry: the
// entry has no notion of "current ply", so mate distances are normalized to
// be relative to the position itself (root-independent) by adding back the
// ply at which they were found.
func (e Eval) PlySub(ply int) Eval {
	if e > MateScore-MaxPly {
		return e + Eval(ply)
	}
	if e < -MateScore+MaxPly {
		return e - Eval(ply)
	}
	return e
}

// PlyAdd is the inverse of PlySub: it recovers a ply-relative score from a
// root-relative one stored in the TT, given the ply of the probing node.
func (e Eval) PlyAdd(ply int) Eval {
	if e > MateScore-MaxPly {
		return e - Eval(ply)
	}
	if e < -MateScore+MaxPly {
		return e + Eval(ply)
	}
	return e
}

// String renders the score the way a UCI "info score" field would: either
// "cp N" or "mate K" with K the number of full moves to mate.
func (e Eval) String() string {
	if e.IsMate() {
		var plies int
		if e > 0 {
			plies = int(MateScore + 1000 - e)
		} else {
			plies = int(e + MateScore + 1000)
		}
		k := (plies + 1) / 2
		if e < 0 {
			k = -k
		}
		return fmt.Sprintf("mate %d", k)
	}
	return fmt.Sprintf("cp %d", int(e))
}

// Piece values for SEE and capture ordering: small integers, not
// centipawns, since SEE only needs a consistent ordering and netting of an
// exchange sequence, not an absolute material scale.
const (
	SeePawn   = 10
	SeeKnight = 30
	SeeBishop = 33
	SeeRook   = 50
	SeeQueen  = 90
	SeeKing   = 0
)

var seeValues = [7]int{SeePawn, SeeKnight, SeeBishop, SeeRook, SeeQueen, SeeKing, 0}
