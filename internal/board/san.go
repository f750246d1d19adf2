package board

import (
	"regexp"
	"strings"
)

// Algebraic notation handling. Two dialects are accepted:
//
//  1. LAN (long algebraic notation), the UCI wire format: "e2e4", "e7e8q".
//  2. SAN (standard algebraic notation), used by PGN: "Nf3", "exd5", "O-O".
//
// All parse failures are reported as NoMove or an empty string; the codec
// never panics on malformed input. Chess960 castling is not supported:
// castling uses the standard-chess king-destination encoding (see Move).

var (
	lanRegex = regexp.MustCompile(`^([a-h][1-8])([a-h][1-8])([qrbn]?)$`)
	sanRegex = regexp.MustCompile(`^([NBRQK])?([a-h1-8])?([1-8])?(x)?([a-h][1-8])(=[NBRQnbrq])?.*$`)
)

// IsOK reports whether s has the shape of a LAN move, a SAN move, or a
// castling token. It does not consult a position.
func IsOK(s string) bool {
	if lanRegex.MatchString(s) || sanRegex.MatchString(s) {
		return true
	}
	switch strings.ToLower(s) {
	case "o-o", "0-0", "o-o-o", "0-0-0":
		return true
	}
	return false
}

func squareFrom(s string) Square {
	return NewSquare(int(s[0]-'a'), int(s[1]-'1'))
}

func promoFromChar(c byte) PieceType {
	switch c {
	case 'q', 'Q':
		return Queen
	case 'r', 'R':
		return Rook
	case 'b', 'B':
		return Bishop
	case 'n', 'N':
		return Knight
	}
	return NoPieceType
}

// getMoveFrom resolves a SAN description (piece type, target square, expected
// promotion, optional file/rank disambiguators) to the unique matching legal
// move, or NoMove on no match or remaining ambiguity.
func getMoveFrom(pos *Position, pt PieceType, to Square, promo PieceType, disFile, disRank int) Move {
	legal := pos.GenerateLegal()

	var candidates []Move
	for _, m := range legal.Slice() {
		if m.To() != to || pos.MovedPiece(m).Type() != pt {
			continue
		}
		if promo != NoPieceType {
			if !m.IsPromotion() || m.Promotion() != promo {
				continue
			}
		} else if m.IsPromotion() {
			continue
		}
		candidates = append(candidates, m)
	}

	filter := func(keep func(Move) bool) {
		n := 0
		for _, m := range candidates {
			if keep(m) {
				candidates[n] = m
				n++
			}
		}
		candidates = candidates[:n]
	}

	if len(candidates) > 1 && disFile >= 0 {
		filter(func(m Move) bool { return m.From().File() == disFile })
	}
	if len(candidates) > 1 && disRank >= 0 {
		filter(func(m Move) bool { return m.From().Rank() == disRank })
	}

	if len(candidates) == 1 {
		return candidates[0]
	}
	return NoMove
}

// AlgebraicToMove parses a move in LAN or SAN (castling tokens included)
// against the given position. Returns NoMove when s matches no shape, or when
// SAN input resolves to no unique legal move. LAN input and castling tokens
// are decoded without a legality check; ValidateMove adds that check.
func AlgebraicToMove(pos *Position, s string) Move {
	if match := lanRegex.FindStringSubmatch(s); match != nil {
		from := squareFrom(match[1])
		to := squareFrom(match[2])

		piece := pos.PieceAt(from)

		// Promotion: the glyph is optional on LAN input; a pawn reaching
		// the back rank promotes to a queen by default.
		if piece.Type() == Pawn && to.RelativeRank(pos.SideToMove) == 7 {
			promo := Queen
			if match[3] != "" {
				promo = promoFromChar(match[3][0])
			}
			return NewPromotion(from, to, promo)
		}

		if piece.Type() == King && abs(int(to)-int(from)) == 2 {
			return NewCastling(from, to)
		}
		if piece.Type() == Pawn && to == pos.EnPassant {
			return NewEnPassant(from, to)
		}
		return NewMove(from, to)
	}

	switch strings.ToLower(s) {
	case "o-o", "0-0":
		if pos.SideToMove == White {
			return NewCastling(E1, G1)
		}
		return NewCastling(E8, G8)
	case "o-o-o", "0-0-0":
		if pos.SideToMove == White {
			return NewCastling(E1, C1)
		}
		return NewCastling(E8, C8)
	}

	if match := sanRegex.FindStringSubmatch(s); match != nil {
		pt := Pawn
		if match[1] != "" {
			switch match[1][0] {
			case 'N':
				pt = Knight
			case 'B':
				pt = Bishop
			case 'R':
				pt = Rook
			case 'Q':
				pt = Queen
			case 'K':
				pt = King
			}
		}

		disFile, disRank := -1, -1
		if match[2] != "" {
			c := match[2][0]
			if c >= '1' && c <= '8' {
				disRank = int(c - '1')
			} else {
				disFile = int(c - 'a')
			}
		}
		if match[3] != "" {
			disRank = int(match[3][0] - '1')
		}

		to := squareFrom(match[5])

		promo := NoPieceType
		if pt == Pawn && to.RelativeRank(pos.SideToMove) == 7 {
			promo = Queen
			if match[6] != "" {
				promo = promoFromChar(match[6][1])
			}
		}

		return getMoveFrom(pos, pt, to, promo, disFile, disRank)
	}

	return NoMove
}

// AlgebraicToString normalizes a move string to LAN: LAN input is returned
// unchanged, SAN and castling tokens are resolved against the position.
// Returns "" when the input resolves to no move.
func AlgebraicToString(pos *Position, s string) string {
	if lanRegex.MatchString(s) {
		return s
	}

	m := AlgebraicToMove(pos, s)
	if m == NoMove {
		return ""
	}
	return m.String()
}

// ToSAN converts a move to Standard Algebraic Notation, with a trailing
// "+" or "#" when the move gives check or mate.
func ToSAN(pos *Position, m Move) string {
	if m == NoMove {
		return "(none)"
	}
	if m == NullMove {
		return "0000"
	}

	var sb strings.Builder

	if m.IsCastling() {
		if m.From() > m.To() {
			sb.WriteString("O-O-O")
		} else {
			sb.WriteString("O-O")
		}
	} else {
		pt := pos.MovedPiece(m).Type()

		if pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(sanDisambiguation(pos, m, pt))
		}

		if pos.IsCapture(m) {
			if pt == Pawn {
				sb.WriteByte('a' + byte(m.From().File()))
			}
			sb.WriteByte('x')
		}

		sb.WriteString(m.To().String())

		if m.IsEnPassant() {
			sb.WriteString("/e.p.")
		}
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	copy := pos.Copy()
	copy.MakeMove(m)
	if copy.InCheck() {
		if copy.HasLegalMoves() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}

	return sb.String()
}

// sanDisambiguation returns the origin qualifier required when two or more
// pieces of the same type can legally reach the target square: the file when
// unique, else the rank when unique, else the full square.
func sanDisambiguation(pos *Position, m Move, pt PieceType) string {
	from := m.From()
	to := m.To()

	legal := pos.GenerateLegal()
	var reachers []Move
	for _, lm := range legal.Slice() {
		if lm.To() == to && pos.MovedPiece(lm).Type() == pt {
			reachers = append(reachers, lm)
		}
	}

	// Count the reachers, then compare: a single reacher needs no
	// qualifier at all.
	if len(reachers) <= 1 {
		return ""
	}

	sameFile, sameRank := 0, 0
	for _, lm := range reachers {
		if lm.From().File() == from.File() {
			sameFile++
		}
		if lm.From().Rank() == from.Rank() {
			sameRank++
		}
	}

	if sameFile == 1 {
		return string(rune('a' + from.File()))
	}
	if sameRank == 1 {
		return string(rune('1' + from.Rank()))
	}
	return from.String()
}

// PVToSAN renders a principal variation as SAN, each move preceded by a
// single space (so a non-empty result starts with a space), making each
// move on a scratch copy of the position. Rendering stops at the first move
// that is not legal in its position.
func PVToSAN(pos *Position, pv []Move) string {
	var sb strings.Builder
	copy := pos.Copy()

	for _, m := range pv {
		if m == NoMove {
			break
		}
		if !copy.GenerateLegal().Contains(m) {
			break
		}
		sb.WriteByte(' ')
		sb.WriteString(ToSAN(copy, m))
		copy.MakeMove(m)
	}
	return sb.String()
}

// ValidateMove parses s and returns the corresponding move only if it is
// legal in the position; NoMove otherwise.
func ValidateMove(pos *Position, s string) Move {
	m := AlgebraicToMove(pos, s)
	if m == NoMove {
		return NoMove
	}
	if !pos.GenerateLegal().Contains(m) {
		return NoMove
	}
	return m
}
