package chessrules

import (
	"math/rand"

	"github.com/corentings/chess"
)

// Two independent zobrist tables folded into a [16]byte fingerprint, built
// the way zurichess's engine/zobrist.go seeds its single table: a
// deterministic rand.Source so the tables (and therefore every fingerprint)
// are stable across process restarts.
var (
	zobristPieceLo [12][64]uint64
	zobristSideLo  [2]uint64
	zobristCastleLo [16]uint64
	zobristEPLo     [8]uint64

	zobristPieceHi [12][64]uint64
	zobristSideHi  [2]uint64
	zobristCastleHi [16]uint64
	zobristEPHi     [8]uint64
)

func rand64(r *rand.Rand) uint64 {
	return uint64(r.Int63())<<32 ^ uint64(r.Int63())
}

func initTable(seed int64, piece *[12][64]uint64, side *[2]uint64, castle *[16]uint64, ep *[8]uint64) {
	r := rand.New(rand.NewSource(seed))
	for pc := 0; pc < 12; pc++ {
		for sq := 0; sq < 64; sq++ {
			piece[pc][sq] = rand64(r)
		}
	}
	side[0] = rand64(r)
	side[1] = rand64(r)
	for i := range castle {
		castle[i] = rand64(r)
	}
	for i := range ep {
		ep[i] = rand64(r)
	}
}

func init() {
	initTable(1, &zobristPieceLo, &zobristSideLo, &zobristCastleLo, &zobristEPLo)
	initTable(2, &zobristPieceHi, &zobristSideHi, &zobristCastleHi, &zobristEPHi)
}

// pieceIndex maps a (color, type) pair to 0-11, matching the order pieces
// are declared in github.com/corentings/chess.
func pieceIndex(p chess.Piece) int {
	idx := int(p.Type()) - int(chess.King)
	if p.Color() == chess.Black {
		idx += 6
	}
	return idx
}

// Fingerprint is Position's Glossary-defined 128-bit opaque value: equal for
// equivalent positions (same placement, side to move, castling rights,
// en-passant target).
func (p *Position) Fingerprint() [16]byte {
	board := p.game.Position().Board()
	var lo, hi uint64
	for sq := chess.Square(0); sq < 64; sq++ {
		piece := board.Piece(sq)
		if piece.Type() == chess.NoPieceType {
			continue
		}
		idx := pieceIndex(piece)
		lo ^= zobristPieceLo[idx][sq]
		hi ^= zobristPieceHi[idx][sq]
	}
	turn := 0
	if p.game.Position().Turn() == chess.Black {
		turn = 1
	}
	lo ^= zobristSideLo[turn]
	hi ^= zobristSideHi[turn]

	rights := p.castleRightsIndex()
	lo ^= zobristCastleLo[rights]
	hi ^= zobristCastleHi[rights]

	if ep, ok := p.enPassantFile(); ok {
		lo ^= zobristEPLo[ep]
		hi ^= zobristEPHi[ep]
	}

	var out [16]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(lo >> (8 * i))
		out[8+i] = byte(hi >> (8 * i))
	}
	return out
}

// castleRightsIndex folds the four castling-right booleans into 0-15. The
// library's Position exposes castling rights via its FEN rendering; reading
// them back out of the FEN field keeps this independent of whichever
// internal castling-rights type the library happens to use.
func (p *Position) castleRightsIndex() int {
	fen := p.game.Position().String()
	field := fenField(fen, 2)
	idx := 0
	if containsByte(field, 'K') {
		idx |= 1
	}
	if containsByte(field, 'Q') {
		idx |= 2
	}
	if containsByte(field, 'k') {
		idx |= 4
	}
	if containsByte(field, 'q') {
		idx |= 8
	}
	return idx
}

func (p *Position) enPassantFile() (int, bool) {
	fen := p.game.Position().String()
	field := fenField(fen, 3)
	if len(field) != 2 || field[0] < 'a' || field[0] > 'h' {
		return 0, false
	}
	return int(field[0] - 'a'), true
}

// fenField returns the n-th space-separated field of a FEN string (0-indexed:
// 0=placement, 1=side to move, 2=castling, 3=en passant, 4=halfmove, 5=fullmove).
func fenField(fen string, n int) string {
	start := 0
	field := 0
	for i := 0; i <= len(fen); i++ {
		if i == len(fen) || fen[i] == ' ' {
			if field == n {
				return fen[start:i]
			}
			field++
			start = i + 1
		}
	}
	return ""
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
