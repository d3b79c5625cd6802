package store

import (
	"context"
	"errors"
	"sync"

	"github.com/henryLiu9527/invoice-ocr/internal/engine"
)

// ErrNotFound is returned when no result exists for a session/filename
// pair, whether it expired or was never stored.
var ErrNotFound = errors.New("recognition result not found")

// Store keeps recognition results between the recognize step and the
// export step, keyed by the upload session and original filename.
type Store interface {
	Put(ctx context.Context, sessionID, filename string, res *engine.Result) error
	Get(ctx context.Context, sessionID, filename string) (*engine.Result, error)
	Delete(ctx context.Context, sessionID, filename string) error
}

// MemoryStore is the in-process fallback used when no Redis is
// configured, and the store the tests run against.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]*engine.Result
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[string]*engine.Result)}
}

func memoryKey(sessionID, filename string) string {
	return sessionID + "\x00" + filename
}

func (s *MemoryStore) Put(_ context.Context, sessionID, filename string, res *engine.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[memoryKey(sessionID, filename)] = res
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID, filename string) (*engine.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.results[memoryKey(sessionID, filename)]
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.results, memoryKey(sessionID, filename))
	return nil
}
