package engine

import "testing"

func TestSeedWindowsCoverage(t *testing.T) {
	s := seedWindows(0, 10000, 300)

	var pops []window
	for !s.empty() {
		w, ok := s.pop()
		if !ok {
			t.Fatal("pop on non-empty stack failed")
		}
		pops = append(pops, w)
	}
	// 33 full windows plus a 100s tail.
	if len(pops) != 34 {
		t.Fatalf("got %d windows, want 34", len(pops))
	}
	var next int64
	for i, w := range pops {
		if w.start != next {
			t.Fatalf("window %d starts at %d, want %d (gap or overlap)", i, w.start, next)
		}
		if w.end <= w.start {
			t.Fatalf("window %d is empty: [%d, %d)", i, w.start, w.end)
		}
		next = w.end
	}
	if next != 10000 {
		t.Fatalf("coverage ends at %d, want 10000", next)
	}
}

func TestSeedWindowsDegenerate(t *testing.T) {
	if s := seedWindows(100, 100, 300); !s.empty() {
		t.Fatal("empty range should seed no windows")
	}
	s := seedWindows(0, 10, 0)
	w, _ := s.pop()
	if w.start != 0 || w.end != 10 || !s.empty() {
		t.Fatalf("zero interval should seed one full window, got %+v", w)
	}
}

func TestSplitOrder(t *testing.T) {
	s := &windowStack{}
	lo, hi := s.split(window{start: 0, end: 100})
	if lo.start != 0 || lo.end != 50 || hi.start != 50 || hi.end != 100 {
		t.Fatalf("split halves: %+v %+v", lo, hi)
	}
	// Lower half must pop first so delivery stays chronological.
	first, _ := s.pop()
	second, _ := s.pop()
	if first != lo || second != hi {
		t.Fatalf("pop order: %+v then %+v", first, second)
	}
}

func TestSplitOddWidth(t *testing.T) {
	s := &windowStack{}
	lo, hi := s.split(window{start: 0, end: 7})
	if lo.end != 3 || hi.start != 3 {
		t.Fatalf("mid = %d, want 3", lo.end)
	}
	if lo.width()+hi.width() != 7 {
		t.Fatalf("halves lose coverage: %d + %d", lo.width(), hi.width())
	}
}
