package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory Repo used for tests and database-less dev runs.
type MemoryRepo struct {
	mu        sync.Mutex
	bySession map[string]AnonymousUser
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{bySession: make(map[string]AnonymousUser)}
}

func (r *MemoryRepo) FindOrCreateBySessionID(ctx context.Context, sessionID string) (AnonymousUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.bySession[sessionID]; ok {
		u.LastSeenAt = time.Now().UTC()
		r.bySession[sessionID] = u
		return u, nil
	}

	now := time.Now().UTC()
	u := AnonymousUser{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	r.bySession[sessionID] = u
	return u, nil
}

func (r *MemoryRepo) FindBySessionID(ctx context.Context, sessionID string) (AnonymousUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.bySession[sessionID]
	if !ok {
		return AnonymousUser{}, ErrNotFound
	}
	return u, nil
}

var _ Repo = (*MemoryRepo)(nil)
