package analyses

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"skillgap-backend/internal/identity"
	"skillgap-backend/internal/queue"
	"skillgap-backend/internal/shared/metrics"
	"skillgap-backend/internal/shared/telemetry"
	"skillgap-backend/internal/shared/util"
)

// Input bounds, in characters.
const (
	MinResumeChars = 50
	MaxResumeChars = 50000
	MinJDChars     = 50
	MaxJDChars     = 10000
)

// Processor runs an analysis to completion. The worker implements it; the
// service uses it as an in-process fallback when no queue is configured.
type Processor interface {
	ProcessAnalysis(ctx context.Context, id string) error
}

// Service coordinates submissions, polling, and history.
type Service struct {
	Repo     Repo
	Identity identity.Repo
	Cache    *ResultCache
	Queue    queue.Client
	// Processor handles analyses in-process when Queue is nil.
	Processor Processor
}

// SubmitInput is one analysis submission.
type SubmitInput struct {
	ResumeText     string
	JobDescription string
	ResumeFilename *string
	SessionID      string
	RequestID      string
}

// SubmitResult is the outcome of a submission. Cached indicates the result
// was served without new processing.
type SubmitResult struct {
	ID     string
	Status string
	Cached bool
	Result *GapAnalysisResult
}

// ValidateSubmitInput checks the submission bounds.
func ValidateSubmitInput(in SubmitInput) error {
	resumeLen := utf8.RuneCountInString(in.ResumeText)
	jdLen := utf8.RuneCountInString(in.JobDescription)

	switch {
	case resumeLen < MinResumeChars:
		return fmt.Errorf("%w: resume text must be at least %d characters", ErrInvalidInput, MinResumeChars)
	case resumeLen > MaxResumeChars:
		return fmt.Errorf("%w: resume text must be at most %d characters", ErrInvalidInput, MaxResumeChars)
	case jdLen < MinJDChars:
		return fmt.Errorf("%w: job description must be at least %d characters", ErrInvalidInput, MinJDChars)
	case jdLen > MaxJDChars:
		return fmt.Errorf("%w: job description must be at most %d characters", ErrInvalidInput, MaxJDChars)
	}
	return nil
}

// Submit deduplicates the pair by content hash, serving cached results when a
// completed analysis already exists and otherwise creating a pending record
// and enqueueing it for background processing.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	if err := ValidateSubmitInput(in); err != nil {
		return SubmitResult{}, err
	}
	metrics.IncSubmissions()

	hash := util.ContentHash(in.ResumeText, in.JobDescription)

	// Fast tier first, but the durable store has the final word: a cache
	// entry without a completed row behind it is stale and gets dropped.
	if cached, ok := s.Cache.Get(ctx, hash); ok {
		prior, err := s.Repo.FindCompletedByHash(ctx, hash)
		if err == nil {
			metrics.IncCacheHits()
			telemetry.Info("analysis.cache_hit", map[string]any{
				"request_id":   in.RequestID,
				"analysis_id":  prior.ID,
				"content_hash": hash,
			})
			return SubmitResult{ID: prior.ID, Status: StatusCompleted, Cached: true, Result: cached}, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return SubmitResult{}, err
		}
		s.Cache.Invalidate(ctx, hash)
	}

	// Store fallthrough: a completed row whose cache entry expired still
	// short-circuits, and repairs the fast tier on the way out.
	prior, err := s.Repo.FindCompletedByHash(ctx, hash)
	if err == nil && prior.Result != nil {
		s.Cache.Put(ctx, hash, *prior.Result)
		metrics.IncCacheHits()
		metrics.IncCacheHydrations()
		telemetry.Info("analysis.cache_hydrated", map[string]any{
			"request_id":   in.RequestID,
			"analysis_id":  prior.ID,
			"content_hash": hash,
		})
		return SubmitResult{ID: prior.ID, Status: StatusCompleted, Cached: true, Result: prior.Result}, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return SubmitResult{}, err
	}

	// Genuinely new work: only now does the submission bind to an owner, so
	// served-from-cache traffic never touches the identity table.
	var ownerID *string
	if in.SessionID != "" {
		user, err := s.Identity.FindOrCreateBySessionID(ctx, in.SessionID)
		if err != nil {
			// Identity is best effort: a failed upsert loses history
			// grouping, not the analysis.
			telemetry.Warn("identity.upsert.failed", map[string]any{
				"request_id": in.RequestID,
				"error":      err.Error(),
			})
		} else {
			ownerID = &user.ID
		}
	}

	a := Analysis{
		ID:              uuid.NewString(),
		AnonymousUserID: ownerID,
		ContentHash:     hash,
		ResumeText:      in.ResumeText,
		JobDescription:  in.JobDescription,
		ResumeFilename:  in.ResumeFilename,
		Status:          StatusPending,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return SubmitResult{}, err
	}

	if err := s.enqueue(ctx, a.ID, in.RequestID); err != nil {
		return SubmitResult{}, err
	}

	telemetry.Info("analysis.submitted", map[string]any{
		"request_id":   in.RequestID,
		"analysis_id":  a.ID,
		"content_hash": hash,
	})
	return SubmitResult{ID: a.ID, Status: StatusPending}, nil
}

func (s *Service) enqueue(ctx context.Context, analysisID, requestID string) error {
	if s.Queue == nil {
		if s.Processor == nil {
			return fmt.Errorf("no queue and no in-process worker configured")
		}
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			if err := s.Processor.ProcessAnalysis(bg, analysisID); err != nil {
				telemetry.Error("analysis.inline.failed", map[string]any{
					"analysis_id": analysisID,
					"error":       err.Error(),
				})
			}
		}()
		return nil
	}

	msg := queue.Message{
		AnalysisID: analysisID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue analysis: %w", err)
	}
	return nil
}

// Get returns the current state of an analysis. For completed analyses the
// fast tier is consulted first; a miss there is repaired from the stored row.
func (s *Service) Get(ctx context.Context, id string) (Analysis, error) {
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Analysis{}, err
	}

	if a.Status == StatusCompleted {
		if cached, ok := s.Cache.Get(ctx, a.ContentHash); ok {
			a.Result = cached
		} else if a.Result != nil {
			s.Cache.Put(ctx, a.ContentHash, *a.Result)
			metrics.IncCacheHydrations()
		}
	}
	return a, nil
}

// History returns the session's analyses, newest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]Analysis, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	user, err := s.Identity.FindBySessionID(ctx, sessionID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Repo.ListByOwner(ctx, user.ID, limit)
}
