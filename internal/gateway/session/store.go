package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"archigen/internal/pipeline"
)

const (
	DefaultMaxSessions = 256
	DefaultTTL         = 30 * time.Minute
)

// Factory builds the controller for a new session.
type Factory func() *pipeline.Controller

// Store keeps one pipeline controller per browser session. Sessions expire
// after ttl without use; an evicted controller is reset so its in-flight
// run is canceled.
type Store struct {
	mu      sync.Mutex
	lru     *expirable.LRU[string, *pipeline.Controller]
	newCtrl Factory
}

func NewStore(size int, ttl time.Duration, f Factory) *Store {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	onEvict := func(_ string, c *pipeline.Controller) {
		if c != nil {
			c.Reset()
		}
	}
	return &Store{
		lru:     expirable.NewLRU[string, *pipeline.Controller](size, onEvict, ttl),
		newCtrl: f,
	}
}

// Resolve returns the controller for id, creating the session when it is
// unknown. An empty id gets a fresh one. The returned id is the one to echo
// back to the client.
func (s *Store) Resolve(id string) (string, *pipeline.Controller) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.lru.Get(id)
	if !ok {
		// An expired entry may linger until the cleanup tick. Removing it
		// runs onEvict so the stale controller is reset, not just dropped.
		s.lru.Remove(id)
		c = s.newCtrl()
	}
	// re-adding refreshes the expiry
	s.lru.Add(id, c)
	return id, c
}

// Get returns an existing session without creating one.
func (s *Store) Get(id string) (*pipeline.Controller, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	return s.lru.Get(id)
}

func (s *Store) Remove(id string) bool {
	return s.lru.Remove(strings.TrimSpace(id))
}

func (s *Store) Len() int { return s.lru.Len() }
