package feed

import "sync"

// scrollState is the feed's scroll geometry in rows. The model writes it
// on the UI goroutine; the driver reads it from fetch and timer goroutines.
type scrollState struct {
	mu      sync.Mutex
	top     int
	height  int
	content int
}

func (s *scrollState) set(top, height, content int) {
	s.mu.Lock()
	s.top, s.height, s.content = top, height, content
	s.mu.Unlock()
}

func (s *scrollState) ScrollTop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.top
}

func (s *scrollState) ViewportHeight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

func (s *scrollState) ContentHeight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content
}
