package identity

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no anonymous user matches the session id.
var ErrNotFound = errors.New("anonymous user not found")

// Repo persists anonymous users.
type Repo interface {
	// FindOrCreateBySessionID returns the user for the session id, creating
	// the row on first sight and touching last_seen_at on every call.
	FindOrCreateBySessionID(ctx context.Context, sessionID string) (AnonymousUser, error)
	FindBySessionID(ctx context.Context, sessionID string) (AnonymousUser, error)
}
