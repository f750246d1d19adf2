package search

import (
	"testing"

	"golang.org/x/exp/slices"

	"github.com/hailam/chesskit/internal/board"
)

type testHists struct {
	butterfly   ButterflyHistory
	captureHist CapturePieceToHistory
	cont        ContinuationHistory
}

func (h *testHists) contSlices() [6]*PieceToHistory {
	sentinel := h.cont.At(board.NoPiece, board.A1)
	return [6]*PieceToHistory{sentinel, sentinel, sentinel, sentinel, sentinel, sentinel}
}

func (h *testHists) mainPicker(pos *board.Position, tt board.Move, depth int,
	counter board.Move, killers [2]board.Move) *MovePicker {
	return NewMovePicker(pos, tt, depth, &h.butterfly, &h.captureHist,
		h.contSlices(), counter, killers, false)
}

func (h *testHists) qPicker(pos *board.Position, tt board.Move, depth int, recapture board.Square) *MovePicker {
	return NewQuiescencePicker(pos, tt, depth, &h.butterfly, &h.captureHist,
		h.contSlices(), recapture, false)
}

func collect(p *MovePicker, skipQuiets bool) []board.Move {
	var moves []board.Move
	for m := p.NextMove(skipQuiets); m != board.NoMove; m = p.NextMove(skipQuiets) {
		moves = append(moves, m)
	}
	return moves
}

func mustPos(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("%s: %v", fen, err)
	}
	return pos
}

func countMoves(moves []board.Move) map[board.Move]int {
	counts := map[board.Move]int{}
	for _, m := range moves {
		counts[m]++
	}
	return counts
}

// The TT move must come out first and exactly once; in the start position the
// remainder is the other nineteen quiets.
func TestTTMoveFirst(t *testing.T) {
	var h testHists
	pos := board.NewPosition()
	tt := board.NewMove(board.E2, board.E4)

	moves := collect(h.mainPicker(pos, tt, 8, board.NoMove, [2]board.Move{}), false)

	if len(moves) != 20 {
		t.Fatalf("got %d moves, want 20", len(moves))
	}
	if moves[0] != tt {
		t.Errorf("first move = %s, want %s", moves[0], tt)
	}
	for _, count := range countMoves(moves) {
		if count != 1 {
			t.Errorf("duplicate emission in %v", moves)
		}
	}
}

// A TT move that is not pseudo-legal must be skipped entirely.
func TestIllegalTTMoveSkipped(t *testing.T) {
	var h testHists
	pos := board.NewPosition()
	tt := board.NewMove(board.E2, board.E5)

	moves := collect(h.mainPicker(pos, tt, 4, board.NoMove, [2]board.Move{}), false)

	if len(moves) != 20 {
		t.Fatalf("got %d moves, want 20", len(moves))
	}
	for _, m := range moves {
		if m == tt {
			t.Errorf("illegal TT move %s emitted", tt)
		}
	}
}

// With no captures on the board the capture stage emits nothing and the flow
// falls through to the quiet stage.
func TestNoCapturesFallThrough(t *testing.T) {
	var h testHists
	pos := mustPos(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2")

	moves := collect(h.mainPicker(pos, board.NoMove, 6, board.NoMove, [2]board.Move{}), false)

	var pseudo board.MoveList
	pos.GeneratePseudoLegal(&pseudo)

	if len(moves) != pseudo.Len() {
		t.Fatalf("got %d moves, want %d", len(moves), pseudo.Len())
	}
	for _, m := range moves {
		if pos.IsCapture(m) {
			t.Errorf("capture %s emitted in a capture-free position", m)
		}
	}
}

// Emissions must cover the pseudo-legal set exactly, with no duplicates. In
// check that set is the evasions, which is also what PseudoLegal admits.
func TestExhaustiveNonDuplicating(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
		"rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
	}

	for _, fen := range fens {
		var h testHists
		pos := mustPos(t, fen)

		moves := collect(h.mainPicker(pos, board.NoMove, 2, board.NoMove, [2]board.Move{}), false)

		var pseudo board.MoveList
		if pos.InCheck() {
			pos.GenerateEvasions(&pseudo)
		} else {
			pos.GeneratePseudoLegal(&pseudo)
		}

		counts := countMoves(moves)
		if len(moves) != pseudo.Len() {
			t.Errorf("%s: emitted %d, pseudo-legal %d", fen, len(moves), pseudo.Len())
		}
		for _, m := range pseudo.Slice() {
			if counts[m] != 1 {
				t.Errorf("%s: move %s emitted %d times", fen, m, counts[m])
			}
		}
	}
}

// In check the picker runs the evasion stages: the emission set is the
// evasion set and the checker capture sorts first.
func TestEvasionPicker(t *testing.T) {
	var h testHists
	pos := mustPos(t, "4k3/8/8/8/8/8/4q3/4K3 w - - 0 1")

	moves := collect(h.mainPicker(pos, board.NoMove, 4, board.NoMove, [2]board.Move{}), false)

	var evasions board.MoveList
	pos.GenerateEvasions(&evasions)

	if len(moves) != evasions.Len() {
		t.Fatalf("emitted %d evasions, want %d", len(moves), evasions.Len())
	}
	counts := countMoves(moves)
	for _, m := range evasions.Slice() {
		if counts[m] != 1 {
			t.Errorf("evasion %s emitted %d times", m, counts[m])
		}
	}

	// Capturing the checking queen outscores every quiet king step.
	if want := board.NewMove(board.E1, board.E2); moves[0] != want {
		t.Errorf("first evasion = %s, want %s", moves[0], want)
	}
}

// Good captures come out in descending score order and each passes the
// dynamic SEE bound; captures that fail it reappear in the bad-capture tail
// exactly once.
func TestCaptureStagesAndSEEBound(t *testing.T) {
	var h testHists
	pos := mustPos(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")

	moves := collect(h.mainPicker(pos, board.NoMove, 4, board.NoMove, [2]board.Move{}), true)

	var captures board.MoveList
	pos.GenerateCaptures(&captures)

	counts := countMoves(moves)
	if len(moves) != captures.Len() {
		t.Fatalf("emitted %d capture-stage moves, want %d", len(moves), captures.Len())
	}
	for _, m := range captures.Slice() {
		if counts[m] != 1 {
			t.Errorf("capture %s emitted %d times", m, counts[m])
		}
	}

	// With zeroed histories the capture score is reconstructible.
	score := func(m board.Move) int {
		victim := pos.PieceAt(m.To()).Type()
		return 7 * board.PieceValue[victim] / 16
	}
	passes := func(m board.Move) bool {
		return pos.SeeGe(m, -69*score(m)/1024)
	}

	// The emissions split into a good prefix and a bad tail.
	split := len(moves)
	for i, m := range moves {
		if !passes(m) {
			split = i
			break
		}
	}
	good, bad := moves[:split], moves[split:]

	for _, m := range bad {
		if passes(m) {
			t.Errorf("good capture %s emitted after the bad-capture boundary", m)
		}
	}
	for i := 1; i < len(good); i++ {
		if score(good[i]) > score(good[i-1]) {
			t.Errorf("good captures not in descending score order: %v", good)
			break
		}
	}
}

// A countermove equal to a killer is emitted only once, and refutations are
// not repeated by the quiet stage.
func TestRefutationDedup(t *testing.T) {
	var h testHists
	pos := board.NewPosition()

	killer := board.NewMove(board.B1, board.C3)
	other := board.NewMove(board.G1, board.F3)

	moves := collect(h.mainPicker(pos, board.NoMove, 4, killer, [2]board.Move{killer, other}), false)

	counts := countMoves(moves)
	if counts[killer] != 1 {
		t.Errorf("killer/countermove %s emitted %d times", killer, counts[killer])
	}
	if counts[other] != 1 {
		t.Errorf("killer %s emitted %d times", other, counts[other])
	}
	if len(moves) != 20 {
		t.Errorf("emitted %d moves, want 20", len(moves))
	}

	// Killers must precede ordinary quiets.
	if !slices.Contains(moves[:2], killer) || !slices.Contains(moves[:2], other) {
		t.Errorf("refutations not emitted first: %v", moves[:2])
	}
}

// With skipQuiets only captures and refutations may be emitted.
func TestSkipQuiets(t *testing.T) {
	var h testHists
	pos := board.NewPosition()

	killer := board.NewMove(board.B1, board.C3)
	moves := collect(h.mainPicker(pos, board.NoMove, 4, board.NoMove, [2]board.Move{killer, board.NoMove}), true)

	if len(moves) != 1 || moves[0] != killer {
		t.Errorf("skipQuiets emissions = %v, want only %s", moves, killer)
	}
}

// A strong butterfly entry must pull its quiet to the front of the quiet
// stage.
func TestHistoryDrivesQuietOrder(t *testing.T) {
	var h testHists
	pos := board.NewPosition()

	favored := board.NewMove(board.A2, board.A3)
	h.butterfly[board.White][favored.FromTo()] = 12000

	moves := collect(h.mainPicker(pos, board.NoMove, 4, board.NoMove, [2]board.Move{}), false)

	if moves[0] != favored {
		t.Errorf("first quiet = %s, want %s", moves[0], favored)
	}
}

// Probcut emits only captures meeting the SEE threshold, TT move first when
// it qualifies.
func TestProbcutPicker(t *testing.T) {
	var h testHists
	fen := "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 0 3"
	tt := board.NewMove(board.F3, board.E5)

	// Nxe5 loses the knight for a pawn; with a +200 bar nothing qualifies.
	pos := mustPos(t, fen)
	moves := collect(NewProbcutPicker(pos, tt, 200, &h.captureHist), false)
	for _, m := range moves {
		if !pos.SeeGe(m, 200) {
			t.Errorf("probcut emitted %s below threshold", m)
		}
	}
	if len(moves) != 0 {
		t.Errorf("probcut emissions = %v, want none above +200", moves)
	}

	// With a bar below the exchange loss the TT capture leads.
	pos = mustPos(t, fen)
	moves = collect(NewProbcutPicker(pos, tt, -300, &h.captureHist), false)
	if len(moves) != 1 || moves[0] != tt {
		t.Errorf("probcut emissions = %v, want [%s]", moves, tt)
	}
}

// Deep in quiescence only recaptures on the given square are searched.
func TestQuiescenceRecaptureFilter(t *testing.T) {
	var h testHists
	pos := mustPos(t, "4k3/8/8/3p1p2/4P3/8/8/4K3 w - - 0 1")

	moves := collect(h.qPicker(pos, board.NoMove, DepthQSRecaptures-1, board.D5), false)

	want := board.NewMove(board.E4, board.D5)
	if len(moves) != 1 || moves[0] != want {
		t.Errorf("recapture emissions = %v, want [%s]", moves, want)
	}
}

// At depth zero quiescence follows the captures with quiet checks.
func TestQuiescenceChecksAtDepthZero(t *testing.T) {
	var h testHists
	pos := mustPos(t, "4k3/8/8/8/8/8/4P3/R3K3 w - - 0 1")

	moves := collect(h.qPicker(pos, board.NoMove, DepthQSChecks, board.NoSquare), false)

	if len(moves) == 0 {
		t.Fatal("expected quiet check emissions")
	}
	for _, m := range moves {
		if pos.IsCapture(m) {
			t.Errorf("capture %s in a capture-free position", m)
		}
		if !pos.GivesCheck(m) {
			t.Errorf("emission %s does not give check", m)
		}
	}

	// Below depth zero the same position yields nothing.
	moves = collect(h.qPicker(pos, board.NoMove, -1, board.NoSquare), false)
	if len(moves) != 0 {
		t.Errorf("emissions below DepthQSChecks = %v, want none", moves)
	}
}

// In-check quiescence runs the evasion stages.
func TestQuiescenceInCheckUsesEvasions(t *testing.T) {
	var h testHists
	pos := mustPos(t, "4k3/8/8/8/8/5n2/8/4K3 w - - 0 1")

	moves := collect(h.qPicker(pos, board.NoMove, 0, board.NoSquare), false)

	var evasions board.MoveList
	pos.GenerateEvasions(&evasions)

	if len(moves) != evasions.Len() {
		t.Errorf("emitted %d, want %d evasions", len(moves), evasions.Len())
	}
	for _, m := range moves {
		if !evasions.Contains(m) {
			t.Errorf("emission %s is not an evasion", m)
		}
	}
}

// The mate-seeking scorer reorders but never changes the emission set.
func TestMateSearchSameMoveSet(t *testing.T) {
	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

	var h1, h2 testHists
	pos1 := mustPos(t, fen)
	pos2 := mustPos(t, fen)

	plain := collect(h1.mainPicker(pos1, board.NoMove, 4, board.NoMove, [2]board.Move{}), false)
	mate := collect(NewMovePicker(pos2, board.NoMove, 4, &h2.butterfly, &h2.captureHist,
		h2.contSlices(), board.NoMove, [2]board.Move{}, true), false)

	if len(plain) != len(mate) {
		t.Fatalf("emission counts differ: %d vs %d", len(plain), len(mate))
	}
	mateCounts := countMoves(mate)
	for m, n := range countMoves(plain) {
		if mateCounts[m] != n {
			t.Errorf("move %s emitted %d times plain, %d with mate scoring", m, n, mateCounts[m])
		}
	}
}

func TestPartialInsertionSort(t *testing.T) {
	list := []ExtMove{
		{Move: 1, Value: 5}, {Move: 2, Value: -400}, {Move: 3, Value: 900},
		{Move: 4, Value: 0}, {Move: 5, Value: 900}, {Move: 6, Value: -100},
		{Move: 7, Value: 120}, {Move: 8, Value: -900}, {Move: 9, Value: 44},
	}
	limit := int32(-100)

	before := countExt(list)
	partialInsertionSort(list, limit)
	after := countExt(list)

	for m, n := range before {
		if after[m] != n {
			t.Fatalf("sort changed the multiset: %v", list)
		}
	}

	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if list[i].Value >= limit && list[j].Value >= limit && list[i].Value < list[j].Value {
				t.Fatalf("qualifying entries out of order at %d,%d: %v", i, j, list)
			}
		}
	}

	// Stability among equal qualifying values: move 3 was generated before
	// move 5.
	for i := range list {
		if list[i].Value == 900 {
			if list[i].Move != 3 {
				t.Errorf("equal-valued entries reordered: %v", list)
			}
			break
		}
	}
}

func countExt(list []ExtMove) map[board.Move]int {
	counts := map[board.Move]int{}
	for _, em := range list {
		counts[em.Move]++
	}
	return counts
}
