package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo used for tests and database-less dev runs.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Analysis
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Analysis)}
}

func (r *MemoryRepo) Create(ctx context.Context, a Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.rows[a.ID] = a
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) FindCompletedByHash(ctx context.Context, contentHash string) (Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Analysis
	for _, a := range r.rows {
		if a.ContentHash != contentHash || a.Status != StatusCompleted {
			continue
		}
		if best == nil || a.CreatedAt.After(best.CreatedAt) {
			copied := a
			best = &copied
		}
	}
	if best == nil {
		return Analysis{}, ErrNotFound
	}
	return *best, nil
}

func (r *MemoryRepo) SetStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok || IsTerminal(a.Status) {
		return nil
	}
	a.Status = status
	r.rows[id] = a
	return nil
}

func (r *MemoryRepo) SetCompleted(ctx context.Context, id string, result GapAnalysisResult, processingTimeMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok || IsTerminal(a.Status) {
		return nil
	}
	now := time.Now().UTC()
	a.Status = StatusCompleted
	a.Result = &result
	a.ErrorMessage = nil
	a.CompletedAt = &now
	a.ProcessingTimeMs = &processingTimeMs
	r.rows[id] = a
	return nil
}

func (r *MemoryRepo) SetFailed(ctx context.Context, id, errMsg string, retryCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok || IsTerminal(a.Status) {
		return nil
	}
	now := time.Now().UTC()
	a.Status = StatusFailed
	a.ErrorMessage = &errMsg
	a.RetryCount = retryCount
	a.CompletedAt = &now
	r.rows[id] = a
	return nil
}

func (r *MemoryRepo) IncrementRetry(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.rows[id]
	if !ok {
		return 0, ErrNotFound
	}
	a.RetryCount++
	r.rows[id] = a
	return a.RetryCount, nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, anonymousUserID string, limit int) ([]Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Analysis
	for _, a := range r.rows {
		if a.AnonymousUserID != nil && *a.AnonymousUserID == anonymousUserID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
