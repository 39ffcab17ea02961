package domain

import (
	"sync"
	"testing"
)

func TestParsePositionRejectsGarbage(t *testing.T) {
	for _, fen := range []string{"", "   ", "not a fen", "8/8/8"} {
		if _, err := ParsePosition(fen); err == nil {
			t.Fatalf("ParsePosition(%q) accepted", fen)
		}
	}
}

func TestConcurrentParseAndValidate(t *testing.T) {
	fens := []string{
		StartingFEN,
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2",
		"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for iter := 0; iter < 200; iter++ {
				fen := fens[(seed+iter)%len(fens)]
				p, err := ParsePosition(fen)
				if err != nil {
					t.Errorf("ParsePosition(%q): %v", fen, err)
					return
				}
				if !p.Valid() {
					t.Errorf("position %q reported invalid", fen)
					return
				}
				if p.FEN() != fen {
					t.Errorf("position mutated: %q -> %q", fen, p.FEN())
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
