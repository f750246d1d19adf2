package search

import (
	"math"

	"github.com/hailam/chesskit/internal/board"
)

// Quiescence depth thresholds. At DepthQSChecks the picker follows captures
// with quiet checks; below DepthQSRecaptures only recaptures on the given
// square are searched.
const (
	DepthQSChecks     = 0
	DepthQSRecaptures = -5
)

// ExtMove pairs a move with its ordering score.
type ExtMove struct {
	Move  board.Move
	Value int32
}

// Picker stages. Each picker flavor walks a contiguous run of these; the
// entry stage is chosen at construction and advances one step at a time.
const (
	stageMainTT = iota
	stageCaptureInit
	stageGoodCapture
	stageRefutation
	stageQuietInit
	stageQuiet
	stageBadCapture

	stageEvasionTT
	stageEvasionInit
	stageEvasion

	stageProbcutTT
	stageProbcutInit
	stageProbcut

	stageQSearchTT
	stageQCaptureInit
	stageQCapture
	stageQCheckInit
	stageQCheck
)

type genKind int

const (
	genCaptures genKind = iota
	genQuiets
	genEvasions
	genQuietChecks
)

// MovePicker enumerates the pseudo-legal moves of one search node in
// decreasing order of expected usefulness, generating and scoring lazily so
// that nodes which cut off early never pay for a full enumeration.
//
// A picker borrows its position and history tables for the duration of one
// node and must not outlive them. It is not safe for concurrent use and must
// not be copied: the live range of the embedded buffer is tracked by index.
type MovePicker struct {
	pos         *board.Position
	butterfly   *ButterflyHistory
	captureHist *CapturePieceToHistory
	contHist    [6]*PieceToHistory

	ttMove      board.Move
	refutations [3]ExtMove // killer0, killer1, countermove

	stage          int
	depth          int
	recaptureSq    board.Square
	threshold      int
	mateSearch     bool
	cur            int
	endMoves       int
	endBadCaptures int
	refCur, refEnd int

	ml    board.MoveList // generation scratch
	moves [board.MaxMoves]ExtMove
}

// NewMovePicker constructs a picker for a main-search node (depth > 0).
// The continuation history array holds the slices for ply offsets -1..-6;
// entries that are nil are simply not consulted. When mateSearch is set the
// scorer favors checking and check-threatening moves over the default
// history blend.
func NewMovePicker(pos *board.Position, ttMove board.Move, depth int,
	butterfly *ButterflyHistory, captureHist *CapturePieceToHistory,
	contHist [6]*PieceToHistory, counterMove board.Move, killers [2]board.Move,
	mateSearch bool) *MovePicker {

	if depth <= 0 {
		panic("search: main-search picker requires depth > 0")
	}

	p := &MovePicker{
		pos:         pos,
		butterfly:   butterfly,
		captureHist: captureHist,
		contHist:    contHist,
		ttMove:      ttMove,
		depth:       depth,
		mateSearch:  mateSearch,
	}
	p.refutations = [3]ExtMove{{Move: killers[0]}, {Move: killers[1]}, {Move: counterMove}}

	if pos.InCheck() {
		p.stage = stageEvasionTT
	} else {
		p.stage = stageMainTT
	}
	if !(ttMove != board.NoMove && pos.PseudoLegal(ttMove)) {
		p.stage++
	}
	return p
}

// NewQuiescencePicker constructs a picker for a quiescence node (depth <= 0).
// Below DepthQSRecaptures only captures landing on recaptureSq are emitted;
// at DepthQSChecks quiet checks follow the captures.
func NewQuiescencePicker(pos *board.Position, ttMove board.Move, depth int,
	butterfly *ButterflyHistory, captureHist *CapturePieceToHistory,
	contHist [6]*PieceToHistory, recaptureSq board.Square, mateSearch bool) *MovePicker {

	if depth > 0 {
		panic("search: quiescence picker requires depth <= 0")
	}

	p := &MovePicker{
		pos:         pos,
		butterfly:   butterfly,
		captureHist: captureHist,
		contHist:    contHist,
		ttMove:      ttMove,
		depth:       depth,
		recaptureSq: recaptureSq,
		mateSearch:  mateSearch,
	}

	if pos.InCheck() {
		p.stage = stageEvasionTT
	} else {
		p.stage = stageQSearchTT
	}
	if !(ttMove != board.NoMove && pos.PseudoLegal(ttMove)) {
		p.stage++
	}
	return p
}

// NewProbcutPicker constructs a picker emitting only captures whose static
// exchange evaluation meets the threshold. The position must not be in check.
func NewProbcutPicker(pos *board.Position, ttMove board.Move, threshold int,
	captureHist *CapturePieceToHistory) *MovePicker {

	if pos.InCheck() {
		panic("search: probcut picker requires a position not in check")
	}

	p := &MovePicker{
		pos:         pos,
		captureHist: captureHist,
		ttMove:      ttMove,
		threshold:   threshold,
	}

	p.stage = stageProbcutTT
	if !(ttMove != board.NoMove && pos.CaptureStage(ttMove) &&
		pos.PseudoLegal(ttMove) && pos.SeeGe(ttMove, threshold)) {
		p.stage++
	}
	return p
}

func acceptAll(*ExtMove) bool { return true }

// selectNext returns the first remaining entry accepted by filter, skipping
// the TT move. The filter may mutate picker state (the bad-capture partition
// grows this way).
func (p *MovePicker) selectNext(filter func(*ExtMove) bool) board.Move {
	for p.cur < p.endMoves {
		em := &p.moves[p.cur]
		p.cur++
		if em.Move != p.ttMove && filter(em) {
			return em.Move
		}
	}
	return board.NoMove
}

// selectBest is selectNext with a max-scan: the highest-valued remaining
// entry is swapped to the front before each test.
func (p *MovePicker) selectBest(filter func(*ExtMove) bool) board.Move {
	for p.cur < p.endMoves {
		best := p.cur
		for i := p.cur + 1; i < p.endMoves; i++ {
			if p.moves[i].Value > p.moves[best].Value {
				best = i
			}
		}
		p.moves[p.cur], p.moves[best] = p.moves[best], p.moves[p.cur]

		em := &p.moves[p.cur]
		p.cur++
		if em.Move != p.ttMove && filter(em) {
			return em.Move
		}
	}
	return board.NoMove
}

// fill runs a generator and copies the result into the buffer starting at
// the given offset, returning the new end index.
func (p *MovePicker) fill(kind genKind, at int) int {
	p.ml.Clear()
	switch kind {
	case genCaptures:
		p.pos.GenerateCaptures(&p.ml)
	case genQuiets:
		p.pos.GenerateQuiets(&p.ml)
	case genEvasions:
		p.pos.GenerateEvasions(&p.ml)
	case genQuietChecks:
		p.pos.GenerateQuietChecks(&p.ml)
	}
	n := p.ml.Len()
	for i := 0; i < n; i++ {
		p.moves[at+i] = ExtMove{Move: p.ml.Get(i)}
	}
	return at + n
}

// NextMove returns the next pseudo-legal move of the node, or NoMove when
// the node is exhausted. With skipQuiets set the quiet stage is suppressed;
// refutations and captures are still delivered.
func (p *MovePicker) NextMove(skipQuiets bool) board.Move {
	for {
		switch p.stage {
		case stageMainTT, stageEvasionTT, stageQSearchTT, stageProbcutTT:
			p.stage++
			return p.ttMove

		case stageCaptureInit, stageProbcutInit, stageQCaptureInit:
			p.cur = 0
			p.endBadCaptures = 0
			p.endMoves = p.fill(genCaptures, 0)
			p.scoreCaptures()
			partialInsertionSort(p.moves[p.cur:p.endMoves], math.MinInt32)
			p.stage++

		case stageGoodCapture:
			if m := p.selectNext(func(em *ExtMove) bool {
				if p.pos.SeeGe(em.Move, -69*int(em.Value)/1024) {
					return true
				}
				// Losing capture: park it for the bad-capture stage.
				p.moves[p.endBadCaptures] = *em
				p.endBadCaptures++
				return false
			}); m != board.NoMove {
				return m
			}

			// Set up the refutations pass. A countermove that repeats a
			// killer would be emitted twice, so its slot is dropped.
			p.refCur, p.refEnd = 0, len(p.refutations)
			if p.refutations[0].Move == p.refutations[2].Move ||
				p.refutations[1].Move == p.refutations[2].Move {
				p.refEnd--
			}
			p.stage++

		case stageRefutation:
			for p.refCur < p.refEnd {
				m := p.refutations[p.refCur].Move
				p.refCur++
				if m != board.NoMove && m != p.ttMove &&
					!p.pos.IsCapture(m) && p.pos.PseudoLegal(m) {
					return m
				}
			}
			p.stage++

		case stageQuietInit:
			if !skipQuiets {
				p.cur = p.endBadCaptures
				p.endMoves = p.fill(genQuiets, p.cur)
				p.scoreQuiets()
				partialInsertionSort(p.moves[p.cur:p.endMoves], int32(-3000*p.depth))
			}
			p.stage++

		case stageQuiet:
			if !skipQuiets {
				if m := p.selectNext(func(em *ExtMove) bool {
					return em.Move != p.refutations[0].Move &&
						em.Move != p.refutations[1].Move &&
						em.Move != p.refutations[2].Move
				}); m != board.NoMove {
					return m
				}
			}

			// Rewind over the parked bad captures.
			p.cur = 0
			p.endMoves = p.endBadCaptures
			p.stage++

		case stageBadCapture:
			return p.selectNext(acceptAll)

		case stageEvasionInit:
			p.cur = 0
			p.endMoves = p.fill(genEvasions, 0)
			p.scoreEvasions()
			p.stage++

		case stageEvasion:
			return p.selectBest(acceptAll)

		case stageProbcut:
			return p.selectNext(func(em *ExtMove) bool {
				return p.pos.SeeGe(em.Move, p.threshold)
			})

		case stageQCapture:
			if m := p.selectNext(func(em *ExtMove) bool {
				return p.depth > DepthQSRecaptures || em.Move.To() == p.recaptureSq
			}); m != board.NoMove {
				return m
			}
			if p.depth != DepthQSChecks {
				return board.NoMove
			}
			p.stage++

		case stageQCheckInit:
			p.cur = 0
			p.endMoves = p.fill(genQuietChecks, 0)
			p.stage++

		case stageQCheck:
			return p.selectNext(acceptAll)

		default:
			return board.NoMove
		}
	}
}

// scoreCaptures orders captures by victim value blended with capture
// history; the attacker's identity enters only through the history.
func (p *MovePicker) scoreCaptures() {
	pos := p.pos
	for i := p.cur; i < p.endMoves; i++ {
		em := &p.moves[i]
		piece := pos.MovedPiece(em.Move)
		to := em.Move.To()
		captured := pos.PieceAt(to).Type()

		em.Value = int32(7*board.PieceValue[captured]+p.captureHist.Get(piece, to, captured)) / 16

		if p.mateSearch {
			p.addMateBonuses(em)
		}
	}
}

// scoreQuiets blends the butterfly history with four continuation slices and
// adjusts for the tactical geometry of the move: escaping a hanging piece is
// rewarded, stepping into a cheaper piece's attack is punished, and direct
// checks get a flat bonus.
func (p *MovePicker) scoreQuiets() {
	pos := p.pos
	us := pos.SideToMove
	them := us.Other()

	threatenedByPawn := pos.AttacksBy(them, board.Pawn)
	threatenedByMinor := pos.AttacksBy(them, board.Knight) | pos.AttacksBy(them, board.Bishop) | threatenedByPawn
	threatenedByRook := pos.AttacksBy(them, board.Rook) | threatenedByMinor

	// Our pieces attacked by something cheaper than themselves.
	threatenedPieces := (pos.Pieces[us][board.Queen] & threatenedByRook) |
		(pos.Pieces[us][board.Rook] & threatenedByMinor) |
		((pos.Pieces[us][board.Knight] | pos.Pieces[us][board.Bishop]) & threatenedByPawn)

	var checkSquares [6]board.Bitboard
	if !p.mateSearch {
		for pt := board.Pawn; pt <= board.Queen; pt++ {
			checkSquares[pt] = pos.CheckSquares(pt)
		}
	}

	for i := p.cur; i < p.endMoves; i++ {
		em := &p.moves[i]
		m := em.Move
		from, to := m.From(), m.To()
		piece := pos.MovedPiece(m)
		pt := piece.Type()
		toBB := board.SquareBB(to)

		v := int32(p.butterfly.Get(us, m)) * 2
		if h := p.contHist[0]; h != nil {
			v += int32(h.Get(piece, to)) * 2
		}
		if h := p.contHist[1]; h != nil {
			v += int32(h.Get(piece, to))
		}
		if h := p.contHist[3]; h != nil {
			v += int32(h.Get(piece, to))
		}
		if h := p.contHist[5]; h != nil {
			v += int32(h.Get(piece, to))
		}

		if threatenedPieces.IsSet(from) {
			switch {
			case pt == board.Queen && threatenedByRook&toBB == 0:
				v += 50000
			case pt == board.Rook && threatenedByMinor&toBB == 0:
				v += 25000
			case threatenedByPawn&toBB == 0:
				v += 15000
			}
		}

		if !p.mateSearch {
			if h := p.contHist[2]; h != nil {
				v += int32(h.Get(piece, to)) / 4
			}

			if checkSquares[pt]&toBB != 0 {
				v += 16384
			}

			if !threatenedPieces.IsSet(from) {
				switch {
				case pt == board.Queen:
					if threatenedByRook&toBB != 0 {
						v -= 50000
					}
					if threatenedByMinor&toBB != 0 {
						v -= 10000
					}
					if threatenedByPawn&toBB != 0 {
						v -= 20000
					}
				case pt == board.Rook:
					if threatenedByMinor&toBB != 0 {
						v -= 25000
					}
					if threatenedByPawn&toBB != 0 {
						v -= 10000
					}
				case pt != board.Pawn:
					if threatenedByPawn&toBB != 0 {
						v -= 15000
					}
				}
			}
		}

		em.Value = v
		if p.mateSearch {
			p.addMateBonuses(em)
		}
	}
}

// scoreEvasions sorts checker captures above everything by MVV-LVA and
// orders the remaining evasions by history.
func (p *MovePicker) scoreEvasions() {
	pos := p.pos
	us := pos.SideToMove

	for i := p.cur; i < p.endMoves; i++ {
		em := &p.moves[i]
		m := em.Move

		if pos.CaptureStage(m) {
			captured := pos.PieceAt(m.To()).Type()
			moved := pos.MovedPiece(m).Type()
			em.Value = int32(board.PieceValue[captured]) - int32(moved) + (1 << 28)
		} else {
			em.Value = int32(p.butterfly.Get(us, m))
			if h := p.contHist[0]; h != nil {
				em.Value += int32(h.Get(pos.MovedPiece(m), m.To()))
			}
		}
	}
}

// addMateBonuses augments a capture or quiet score with incentives to
// deliver check now or threaten one next move.
func (p *MovePicker) addMateBonuses(em *ExtMove) {
	pos := p.pos
	us := pos.SideToMove
	theirKing := pos.KingSquare[us.Other()]
	kingRing := board.KingAttacks(theirKing)

	m := em.Move
	from, to := m.From(), m.To()
	pt := pos.MovedPiece(m).Type()
	v := int32(0)

	if pos.GivesCheck(m) {
		v += 20000 - 400*int32(board.Distance(theirKing, to))

		if pt == board.Knight {
			v += 3000
		} else if (pt == board.Queen || pt == board.Rook) && board.Distance(theirKing, to) == 1 {
			v += 4000
		}
	}

	if pt == board.Pawn {
		v += 640*int32(board.EdgeDistance(to.File())) + 1280*int32(to.RelativeRank(us))
		if board.RankDistance(from, to) == 2 {
			v += 4000
		}
	}

	// Threat of a check on the following move, weighted by how much of the
	// king's neighborhood the piece would cover.
	switch pt {
	case board.Knight:
		if pos.AttacksFrom(board.Knight, to)&pos.CheckSquares(board.Knight) != 0 {
			v += 6000
		}
		v += 2560 * int32((board.PseudoAttacks(board.Knight, to) & kingRing).PopCount())
	case board.Queen:
		if pos.AttacksFrom(board.Queen, to)&pos.CheckSquares(board.Queen) != 0 {
			v += 5000
		}
		v += 1280 * int32((board.PseudoAttacks(board.Queen, to) & kingRing).PopCount())
	case board.Rook:
		if pos.AttacksFrom(board.Rook, to)&pos.CheckSquares(board.Rook) != 0 {
			v += 4000
		}
		v += 960 * int32((board.PseudoAttacks(board.Rook, to) & kingRing).PopCount())
	case board.Bishop:
		if pos.AttacksFrom(board.Bishop, to)&pos.CheckSquares(board.Bishop) != 0 {
			v += 3000
		}
		v += 640 * int32((board.PseudoAttacks(board.Bishop, to) & kingRing).PopCount())
	}

	em.Value += v
}

// partialInsertionSort sorts the entries with Value >= limit into a
// descending prefix; entries below the limit end up in unspecified order
// after it. Stable among the sorted entries.
func partialInsertionSort(list []ExtMove, limit int32) {
	sortedEnd := 0
	for i := 1; i < len(list); i++ {
		if list[i].Value >= limit {
			tmp := list[i]
			list[i] = list[sortedEnd+1]
			sortedEnd++
			j := sortedEnd
			for ; j > 0 && list[j-1].Value < tmp.Value; j-- {
				list[j] = list[j-1]
			}
			list[j] = tmp
		}
	}
}
