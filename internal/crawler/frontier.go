package crawler

// Frontier is the work queue of one crawl run. It hands out URLs in FIFO
// order and guarantees that no URL is handed out twice.
//
// A URL is tracked as enqueued from the moment it is pushed and as visited
// from the moment it is popped. Push ignores URLs in either set, so pushing
// the same URL again before or after it is processed has no effect.
//
// Frontier is not safe for concurrent use; a run owns its frontier.
type Frontier struct {
	pending  []NormalizedURL
	enqueued map[NormalizedURL]struct{}
	visited  map[NormalizedURL]struct{}
	order    []NormalizedURL
}

// NewFrontier creates a frontier holding the given seeds.
func NewFrontier(seeds ...NormalizedURL) *Frontier {
	f := &Frontier{
		enqueued: make(map[NormalizedURL]struct{}),
		visited:  make(map[NormalizedURL]struct{}),
	}
	for _, s := range seeds {
		f.Push(s)
	}
	return f
}

// Push appends u unless it is already pending or visited.
// It reports whether u was appended.
func (f *Frontier) Push(u NormalizedURL) bool {
	if _, ok := f.visited[u]; ok {
		return false
	}
	if _, ok := f.enqueued[u]; ok {
		return false
	}
	f.enqueued[u] = struct{}{}
	f.pending = append(f.pending, u)
	return true
}

// Pop removes the oldest pending URL and marks it visited.
// ok is false when nothing is pending.
func (f *Frontier) Pop() (u NormalizedURL, ok bool) {
	if len(f.pending) == 0 {
		return "", false
	}
	u = f.pending[0]
	f.pending[0] = ""
	f.pending = f.pending[1:]

	delete(f.enqueued, u)
	f.visited[u] = struct{}{}
	f.order = append(f.order, u)
	return u, true
}

// IsVisited reports whether u has been popped.
func (f *Frontier) IsVisited(u NormalizedURL) bool {
	_, ok := f.visited[u]
	return ok
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	return len(f.pending)
}

// Visited returns the popped URLs in the order they were popped.
func (f *Frontier) Visited() []NormalizedURL {
	out := make([]NormalizedURL, len(f.order))
	copy(out, f.order)
	return out
}
