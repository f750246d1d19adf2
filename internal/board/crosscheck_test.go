package board

import (
	"sort"
	"testing"

	"github.com/dylhunn/dragontoothmg"
)

// Legal move generation is compared against an independent generator by UCI
// string sets: both engines speak the same wire format, so any divergence in
// castling, en passant, or promotion handling shows up directly.
func TestLegalMovesMatchDragontooth(t *testing.T) {
	fens := []string{
		StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
		"rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
		"4k3/8/8/8/8/8/4q3/4K3 w - - 0 1",
		"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1",
	}

	for _, fen := range fens {
		pos, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("%s: %v", fen, err)
		}

		var ours []string
		for _, m := range pos.GenerateLegal().Slice() {
			ours = append(ours, m.String())
		}

		ref := dragontoothmg.ParseFen(fen)
		refMoves := ref.GenerateLegalMoves()
		var theirs []string
		for i := range refMoves {
			theirs = append(theirs, refMoves[i].String())
		}

		sort.Strings(ours)
		sort.Strings(theirs)

		if len(ours) != len(theirs) {
			t.Errorf("%s: %d legal moves, reference has %d\nours:   %v\ntheirs: %v",
				fen, len(ours), len(theirs), ours, theirs)
			continue
		}
		for i := range ours {
			if ours[i] != theirs[i] {
				t.Errorf("%s: move sets differ\nours:   %v\ntheirs: %v", fen, ours, theirs)
				break
			}
		}
	}
}
