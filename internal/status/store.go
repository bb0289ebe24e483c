// internal/status/store.go
package status

import (
	"context"
	"sync"
)

// Store holds the last stolen status the backend confirmed for each asset.
// It is written only after a successful status push, so it mirrors what the
// backend believes, not what the sensors currently say.
type Store interface {
	// Load returns the known status for each serial. Serials never
	// reported are absent from the result.
	Load(ctx context.Context, serials []string) (map[string]bool, error)
	Save(ctx context.Context, serial string, stolen bool) error
}

// MemoryStore keeps reported status for the lifetime of the process.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]bool)}
}

func (s *MemoryStore) Load(_ context.Context, serials []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]bool, len(serials))
	for _, serial := range serials {
		if v, ok := s.m[serial]; ok {
			out[serial] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, serial string, stolen bool) error {
	s.mu.Lock()
	s.m[serial] = stolen
	s.mu.Unlock()
	return nil
}
