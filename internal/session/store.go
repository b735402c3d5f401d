// Package session persists per-sender state blobs and the append-only
// conversation history log.
package session

import (
	"context"
	"errors"

	"herald/internal/domain"
)

// ErrNotFound is returned when no state exists for a sender.
var ErrNotFound = errors.New("session not found")

// ErrVersionConflict is returned when an Upsert loses a compare-and-swap
// race. Callers retry the whole turn once.
var ErrVersionConflict = errors.New("session version conflict")

// Store keeps one SessionState per sender identity. Upsert is a
// compare-and-swap on the state's Version: it succeeds only when the stored
// version still matches the version the caller loaded, then bumps it.
type Store interface {
	Get(ctx context.Context, sender string) (*domain.SessionState, error)
	Upsert(ctx context.Context, sender string, state *domain.SessionState) error
}

// History is the append-only (user message, bot response) log.
type History interface {
	Append(ctx context.Context, sender, userMessage, botResponse string) error
	// Recent returns up to limit exchanges, most recent first.
	Recent(ctx context.Context, sender string, limit int) ([]domain.Exchange, error)
}
