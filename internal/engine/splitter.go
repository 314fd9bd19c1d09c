package engine

// window is one half-open retrieval interval [start, end) in unix seconds.
type window struct {
	start int64
	end   int64
}

func (w window) width() int64 { return w.end - w.start }

// windowStack is the LIFO of pending retrieval windows. Split halves are
// pushed upper-first so the lower half pops next and delivery stays
// chronological.
type windowStack struct {
	wins []window
}

func (s *windowStack) push(w window) {
	s.wins = append(s.wins, w)
}

func (s *windowStack) pop() (window, bool) {
	if len(s.wins) == 0 {
		return window{}, false
	}
	w := s.wins[len(s.wins)-1]
	s.wins = s.wins[:len(s.wins)-1]
	return w, true
}

func (s *windowStack) empty() bool { return len(s.wins) == 0 }

// split replaces a saturated window with its halves: (mid, end) is pushed
// first, then (start, mid), so the earlier half is retrieved next.
func (s *windowStack) split(w window) (lo, hi window) {
	mid := (w.start + w.end) / 2
	lo = window{start: w.start, end: mid}
	hi = window{start: mid, end: w.end}
	s.push(hi)
	s.push(lo)
	return lo, hi
}

// seedWindows pre-chunks [start, end) into windows of at most splitInterval
// seconds and returns them stacked so the earliest pops first.
func seedWindows(start, end, splitInterval int64) *windowStack {
	s := &windowStack{}
	if start >= end {
		return s
	}
	if splitInterval <= 0 {
		s.push(window{start: start, end: end})
		return s
	}
	// Push in reverse: the stack pops last-in first.
	var chunks []window
	for cur := start; cur < end; cur += splitInterval {
		next := cur + splitInterval
		if next > end {
			next = end
		}
		chunks = append(chunks, window{start: cur, end: next})
	}
	for i := len(chunks) - 1; i >= 0; i-- {
		s.push(chunks[i])
	}
	return s
}
