// Package chessrules is the pure-function chess rules surface spec.md §4.1
// asks for: legal move generation, move application, check/terminal
// detection and position fingerprinting. Move generation, application and
// terminal detection delegate to github.com/corentings/chess — the same
// dependency the teacher already carries — exactly as the teacher's
// server/game/match.go composes a *chess.Game. Fingerprint and IsCheck are
// self-contained, since neither is a concern a chess library exists to own
// as a standalone query (see DESIGN.md).
package chessrules

import (
	"fmt"

	"github.com/corentings/chess"
)

// Side is Host or Away, matching the Game row's perspective (spec.md §3)
// rather than the library's White/Black. Which colour Host plays is tracked
// in Position: NewPosition always gives Host White, and FromFEN takes the
// colour as a parameter.
type Side int

const (
	Host Side = iota
	Away
)

func (s Side) Other() Side {
	if s == Host {
		return Away
	}
	return Host
}

// Move is the spec's coordinate move: ranks and files 0-7, promotion piece
// optional (required iff a pawn reaches the last rank).
type Move struct {
	StartRank, StartFile int
	EndRank, EndFile     int
	Promotion            chess.PieceType // chess.NoPieceType when absent
}

func (m Move) String() string {
	return fmt.Sprintf("%c%d%c%d", 'a'+m.StartFile, m.StartRank+1, 'a'+m.EndFile, m.EndRank+1)
}

// PromotionLetter renders a promotion piece type as the wire protocol's
// lowercase letter ("q", "r", "b", "n"), or "" when there is none.
func PromotionLetter(t chess.PieceType) string {
	switch t {
	case chess.Queen:
		return "q"
	case chess.Rook:
		return "r"
	case chess.Bishop:
		return "b"
	case chess.Knight:
		return "n"
	default:
		return ""
	}
}

// PromotionFromLetter is PromotionLetter's inverse, for parsing client move
// requests. Returns chess.NoPieceType for "" or an unrecognized letter.
func PromotionFromLetter(letter string) chess.PieceType {
	switch letter {
	case "q":
		return chess.Queen
	case "r":
		return chess.Rook
	case "b":
		return chess.Bishop
	case "n":
		return chess.Knight
	default:
		return chess.NoPieceType
	}
}

// Position wraps one game's board state plus which library colour plays
// Host, so spec-level Side can be translated to the library's chess.Color.
type Position struct {
	game     *chess.Game
	hostSide chess.Color // chess.White or chess.Black: which colour Host plays
}

// NewPosition starts a fresh game with Host playing White.
func NewPosition() *Position {
	return &Position{game: chess.NewGame(), hostSide: chess.White}
}

// FromFEN reconstructs a Position from a persisted FEN snapshot plus which
// colour Host plays (tracked separately, since FEN alone doesn't say who is
// "Host").
func FromFEN(fen string, hostPlaysWhite bool) (*Position, error) {
	fenFn, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("chessrules: parse fen: %w", err)
	}
	side := chess.Black
	if hostPlaysWhite {
		side = chess.White
	}
	return &Position{game: chess.NewGame(fenFn), hostSide: side}, nil
}

// FEN serializes the current board state for persistence.
func (p *Position) FEN() string {
	return p.game.Position().String()
}

// HostPlaysWhite reports which library colour Host was dealt.
func (p *Position) HostPlaysWhite() bool {
	return p.hostSide == chess.White
}

func (p *Position) colorOf(s Side) chess.Color {
	if s == Host {
		return p.hostSide
	}
	return p.hostSide.Other()
}

func (p *Position) sideOf(c chess.Color) Side {
	if c == p.hostSide {
		return Host
	}
	return Away
}

// ToMove is the side whose turn it currently is.
func (p *Position) ToMove() Side {
	return p.sideOf(p.game.Position().Turn())
}

func squareOf(rank, file int) chess.Square {
	return chess.Square(rank*8 + file)
}

func rankFileOf(sq chess.Square) (rank, file int) {
	return int(sq) / 8, int(sq) % 8
}

// LegalMoves enumerates every legal move for the side to move. The side
// parameter is accepted for interface symmetry with spec.md §4.1; when it
// is not ToMove() the result is nil (internal/engine's AllowedMoves passes
// the requester's side, which may be the side not on move).
func (p *Position) LegalMoves(side Side) []Move {
	if side != p.ToMove() {
		return nil
	}
	var out []Move
	for _, vm := range p.game.ValidMoves() {
		sr, sf := rankFileOf(vm.S1())
		er, ef := rankFileOf(vm.S2())
		out = append(out, Move{StartRank: sr, StartFile: sf, EndRank: er, EndFile: ef, Promotion: vm.Promo()})
	}
	return out
}

// find locates the library move matching m among the currently valid moves.
func (p *Position) find(m Move) (*chess.Move, bool) {
	s1 := squareOf(m.StartRank, m.StartFile)
	s2 := squareOf(m.EndRank, m.EndFile)
	for _, vm := range p.game.ValidMoves() {
		if vm.S1() == s1 && vm.S2() == s2 && vm.Promo() == m.Promotion {
			return vm, true
		}
	}
	return nil, false
}

// IsLegal reports whether m is one of the side-to-move's legal moves.
func (p *Position) IsLegal(m Move) bool {
	_, ok := p.find(m)
	return ok
}

// IsReversible reports whether applying m would leave the halfmove clock
// running — false for pawn advances and captures (spec.md §4.1/Glossary).
func (p *Position) IsReversible(m Move) bool {
	vm, ok := p.find(m)
	if !ok {
		return true
	}
	if vm.HasTag(chess.Capture) || vm.HasTag(chess.EnPassant) {
		return false
	}
	piece := p.game.Position().Board().Piece(vm.S1())
	return piece.Type() != chess.Pawn
}

// Apply plays m, mutating the position in place. Pre: IsLegal(m).
func (p *Position) Apply(m Move) error {
	vm, ok := p.find(m)
	if !ok {
		return fmt.Errorf("chessrules: %s is not a legal move", m)
	}
	return p.game.Move(vm)
}

// Terminal is the library's verdict on the position now that it's side's
// turn: None, Checkmate or Stalemate. Spec.md §4.1's terminal() contract.
type Terminal int

const (
	NoTerminal Terminal = iota
	Checkmate
	Stalemate
)

func (p *Position) Terminal() Terminal {
	switch p.game.Method() {
	case chess.Checkmate:
		return Checkmate
	case chess.Stalemate:
		return Stalemate
	default:
		return NoTerminal
	}
}

// IsCheck is a self-contained board scan: true when side's king square is
// attacked by any opposing piece. Not delegated to the library — see
// DESIGN.md for why this one stays first-principles.
func (p *Position) IsCheck(side Side) bool {
	board := p.game.Position().Board()
	color := p.colorOf(side)
	var kingSq chess.Square
	found := false
	for sq := chess.Square(0); sq < 64; sq++ {
		piece := board.Piece(sq)
		if piece.Type() == chess.King && piece.Color() == color {
			kingSq = sq
			found = true
			break
		}
	}
	if !found {
		return false
	}
	return squareAttackedBy(board, kingSq, color.Other())
}

// squareAttackedBy is a plain geometric attack test, independent of whose
// turn it is (used only by IsCheck — move legality itself always comes from
// the library's ValidMoves()).
func squareAttackedBy(board *chess.Board, target chess.Square, by chess.Color) bool {
	tr, tf := rankFileOf(target)
	dir := 1
	if by == chess.Black {
		dir = -1
	}
	// pawns attack diagonally toward the defender
	for _, df := range []int{-1, 1} {
		r, f := tr-dir, tf+df
		if inBounds(r, f) {
			p := board.Piece(squareOf(r, f))
			if p.Color() == by && p.Type() == chess.Pawn {
				return true
			}
		}
	}
	knightDeltas := [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	for _, d := range knightDeltas {
		r, f := tr+d[0], tf+d[1]
		if inBounds(r, f) {
			p := board.Piece(squareOf(r, f))
			if p.Color() == by && p.Type() == chess.Knight {
				return true
			}
		}
	}
	kingDeltas := [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	for _, d := range kingDeltas {
		r, f := tr+d[0], tf+d[1]
		if inBounds(r, f) {
			p := board.Piece(squareOf(r, f))
			if p.Color() == by && p.Type() == chess.King {
				return true
			}
		}
	}
	rayAttacks := []struct {
		deltas []struct{ dr, df int }
		types  []chess.PieceType
	}{
		{[]struct{ dr, df int }{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}, []chess.PieceType{chess.Rook, chess.Queen}},
		{[]struct{ dr, df int }{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}, []chess.PieceType{chess.Bishop, chess.Queen}},
	}
	for _, ray := range rayAttacks {
		for _, d := range ray.deltas {
			r, f := tr+d.dr, tf+d.df
			for inBounds(r, f) {
				p := board.Piece(squareOf(r, f))
				if p.Type() != chess.NoPieceType {
					if p.Color() == by && containsType(ray.types, p.Type()) {
						return true
					}
					break
				}
				r, f = r+d.dr, f+d.df
			}
		}
	}
	return false
}

func inBounds(r, f int) bool { return r >= 0 && r < 8 && f >= 0 && f < 8 }

func containsType(types []chess.PieceType, t chess.PieceType) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}
