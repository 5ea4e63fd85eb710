package analyses

import "context"

// Repo persists analyses. Implementations must treat COMPLETED and FAILED as
// terminal: status writes against a terminal row are ignored.
type Repo interface {
	Create(ctx context.Context, a Analysis) error
	GetByID(ctx context.Context, id string) (Analysis, error)
	// FindCompletedByHash returns the most recent COMPLETED analysis with the
	// given content hash, or ErrNotFound.
	FindCompletedByHash(ctx context.Context, contentHash string) (Analysis, error)
	SetStatus(ctx context.Context, id, status string) error
	SetCompleted(ctx context.Context, id string, result GapAnalysisResult, processingTimeMs int64) error
	SetFailed(ctx context.Context, id, errMsg string, retryCount int) error
	// IncrementRetry bumps the retry counter and returns the new value.
	IncrementRetry(ctx context.Context, id string) (int, error)
	// ListByOwner returns the owner's analyses, newest first, without the
	// large text columns.
	ListByOwner(ctx context.Context, anonymousUserID string, limit int) ([]Analysis, error)
}
