// Package session holds the process-wide pointer to the currently active
// vector index.
package session

import (
	"sync"

	"document-qa/internal/vectorstore"
)

// Session is absent at startup, set on successful ingestion and cleared at
// the start of the next one. The handle is only ever mutated at those two
// points; readers always observe either the full old handle or the full
// new one.
type Session struct {
	mu     sync.RWMutex
	handle vectorstore.Handle
	topK   int
}

func New(topK int) *Session {
	return &Session{topK: topK}
}

// Get returns a snapshot of the active handle, or false when no document
// is indexed.
func (s *Session) Get() (vectorstore.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle, s.handle != nil
}

// Publish atomically swaps in the handle of a freshly built index.
func (s *Session) Publish(h vectorstore.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
}

// Clear marks the session absent and returns the previous handle so the
// caller can release it.
func (s *Session) Clear() vectorstore.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.handle
	s.handle = nil
	return prev
}

func (s *Session) TopK() int {
	return s.topK
}
