package session

import (
	"context"
	"sync"
	"time"

	"herald/internal/domain"
)

// MemoryStore is a lightweight Store for tests and single-process runs.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*domain.SessionState
}

// NewMemoryStore constructs an in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]*domain.SessionState)}
}

func (s *MemoryStore) Get(_ context.Context, sender string) (*domain.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sender]
	if !ok {
		return nil, ErrNotFound
	}
	return state.Clone(), nil
}

func (s *MemoryStore) Upsert(_ context.Context, sender string, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[sender]
	if ok && current.Version != state.Version {
		return ErrVersionConflict
	}
	saved := state.Clone()
	saved.Version++
	s.states[sender] = saved
	return nil
}

// MemoryHistory is a bounded in-memory history log.
type MemoryHistory struct {
	mu       sync.RWMutex
	maxPer   int
	messages map[string][]domain.Exchange
}

// NewMemoryHistory constructs an in-memory history log keeping at most
// maxPerSender exchanges per sender.
func NewMemoryHistory(maxPerSender int) *MemoryHistory {
	if maxPerSender <= 0 {
		maxPerSender = 200
	}
	return &MemoryHistory{
		maxPer:   maxPerSender,
		messages: make(map[string][]domain.Exchange),
	}
}

func (h *MemoryHistory) Append(_ context.Context, sender, userMessage, botResponse string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	log := append(h.messages[sender], domain.Exchange{
		UserMessage: userMessage,
		BotResponse: botResponse,
		At:          time.Now(),
	})
	if len(log) > h.maxPer {
		log = log[len(log)-h.maxPer:]
	}
	h.messages[sender] = log
	return nil
}

func (h *MemoryHistory) Recent(_ context.Context, sender string, limit int) ([]domain.Exchange, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	log := h.messages[sender]
	if limit <= 0 || limit > len(log) {
		limit = len(log)
	}
	// Most recent first.
	recent := make([]domain.Exchange, 0, limit)
	for i := len(log) - 1; i >= len(log)-limit; i-- {
		recent = append(recent, log[i])
	}
	return recent, nil
}
