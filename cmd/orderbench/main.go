// Command orderbench exercises the move picker over a suite of positions and
// reports emission counts and throughput. It doubles as a smoke test: every
// position is enumerated to exhaustion with a picker of the flavor its check
// state demands.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hailam/chesskit/internal/board"
	"github.com/hailam/chesskit/internal/search"
)

var defaultSuite = []string{
	board.StartFEN,
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
	"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	"r4rk1/1pp1qppp/p1np1n2/2b1p1B1/2B1P1b1/P1NP1N2/1PP1QPPP/R4RK1 w - - 0 10",
	"4k3/8/8/8/8/8/4q3/4K3 w - - 0 1",
}

func main() {
	var (
		fenFile = flag.String("fens", "", "file with one FEN per line (default: built-in suite)")
		depth   = flag.Int("depth", 8, "nominal search depth handed to the picker")
		mate    = flag.Bool("mate", false, "use the mate-seeking scorer")
		rounds  = flag.Int("rounds", 1000, "enumeration rounds per position")
		workers = flag.Int("workers", runtime.NumCPU(), "parallel workers")
	)
	flag.Parse()

	fens := defaultSuite
	if *fenFile != "" {
		loaded, err := loadFens(*fenFile)
		if err != nil {
			log.Fatalf("loading %s: %v", *fenFile, err)
		}
		fens = loaded
	}

	var totalMoves, totalNodes atomic.Uint64
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(*workers)
	for _, fen := range fens {
		fen := fen
		g.Go(func() error {
			pos, err := board.ParseFEN(fen)
			if err != nil {
				return fmt.Errorf("bad FEN %q: %w", fen, err)
			}

			var butterfly search.ButterflyHistory
			var captureHist search.CapturePieceToHistory
			var cont search.ContinuationHistory
			contHist := [6]*search.PieceToHistory{
				cont.At(board.NoPiece, board.A1), cont.At(board.NoPiece, board.A1),
				cont.At(board.NoPiece, board.A1), cont.At(board.NoPiece, board.A1),
				cont.At(board.NoPiece, board.A1), cont.At(board.NoPiece, board.A1),
			}

			for r := 0; r < *rounds; r++ {
				mp := search.NewMovePicker(pos, board.NoMove, *depth,
					&butterfly, &captureHist, contHist,
					board.NoMove, [2]board.Move{}, *mate)

				n := uint64(0)
				for m := mp.NextMove(false); m != board.NoMove; m = mp.NextMove(false) {
					n++
				}
				totalMoves.Add(n)
				totalNodes.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}

	elapsed := time.Since(start)
	log.Printf("positions=%d nodes=%d moves=%d elapsed=%s (%.0f moves/s)",
		len(fens), totalNodes.Load(), totalMoves.Load(), elapsed,
		float64(totalMoves.Load())/elapsed.Seconds())
}

func loadFens(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fens = append(fens, line)
	}
	return fens, scanner.Err()
}
