// Package search implements the move-ordering core: history heuristics and
// the staged MovePicker that feeds an alpha-beta searcher one pseudo-legal
// move at a time, best-first.
package search

import (
	"github.com/hailam/chesskit/internal/board"
)

// History entries saturate toward these bounds; the gravity update keeps the
// magnitude at or below the limit so int16 storage never overflows.
const (
	butterflyHistoryLimit    = 16384
	captureHistoryLimit      = 16384
	continuationHistoryLimit = 16384
)

// ButterflyHistory records how often quiet moves succeed, indexed by the
// moving color and the move's from/to squares.
type ButterflyHistory [2][4096]int16

// Get returns the score for a quiet move by the given color.
func (h *ButterflyHistory) Get(c board.Color, m board.Move) int {
	return int(h[c][m.FromTo()])
}

// Update applies a (possibly negative) bonus with gravity toward zero, so
// frequently updated entries stabilize instead of saturating.
func (h *ButterflyHistory) Update(c board.Color, m board.Move, bonus int) {
	entry := &h[c][m.FromTo()]
	*entry += int16(bonus - int(*entry)*abs(bonus)/butterflyHistoryLimit)
}

// Clear zeroes the table.
func (h *ButterflyHistory) Clear() {
	*h = ButterflyHistory{}
}

// CapturePieceToHistory records capture success, indexed by the moving piece,
// the target square, and the captured piece type. Index NoPieceType covers
// promotions and en passant, where the target square is empty.
type CapturePieceToHistory [12][64][7]int16

// Get returns the score for piece capturing captured on to.
func (h *CapturePieceToHistory) Get(piece board.Piece, to board.Square, captured board.PieceType) int {
	return int(h[piece][to][captured])
}

// Update applies a bonus with gravity toward zero.
func (h *CapturePieceToHistory) Update(piece board.Piece, to board.Square, captured board.PieceType, bonus int) {
	entry := &h[piece][to][captured]
	*entry += int16(bonus - int(*entry)*abs(bonus)/captureHistoryLimit)
}

// Clear zeroes the table.
func (h *CapturePieceToHistory) Clear() {
	*h = CapturePieceToHistory{}
}

// PieceToHistory is a continuation history slice: success of a piece landing
// on a square, conditioned on an earlier move of the search line. The picker
// consumes an array of six of these, one per ply offset.
type PieceToHistory [12][64]int16

// Get returns the score for piece landing on to.
func (h *PieceToHistory) Get(piece board.Piece, to board.Square) int {
	return int(h[piece][to])
}

// Update applies a bonus with gravity toward zero.
func (h *PieceToHistory) Update(piece board.Piece, to board.Square, bonus int) {
	entry := &h[piece][to]
	*entry += int16(bonus - int(*entry)*abs(bonus)/continuationHistoryLimit)
}

// Clear zeroes the table.
func (h *PieceToHistory) Clear() {
	*h = PieceToHistory{}
}

// ContinuationHistory is the full continuation table a searcher owns, indexed
// by the earlier move's piece and target square. Slices of it are handed to
// the picker as *PieceToHistory entries. Index NoPiece holds the sentinel
// slice used when there is no earlier move.
type ContinuationHistory [13][64]PieceToHistory

// At returns the continuation slice conditioned on piece having just landed
// on to.
func (h *ContinuationHistory) At(piece board.Piece, to board.Square) *PieceToHistory {
	return &h[piece][to]
}

// Clear zeroes the table.
func (h *ContinuationHistory) Clear() {
	*h = ContinuationHistory{}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
