package analyses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"skillgap-backend/internal/llm"
	"skillgap-backend/internal/shared/metrics"
	"skillgap-backend/internal/shared/telemetry"
	"skillgap-backend/internal/shared/util"
)

const (
	DefaultMaxAttempts    = 3
	DefaultAttemptTimeout = 45 * time.Second
)

// Worker drives a single analysis from PENDING to a terminal state. It is
// safe to call for the same id more than once: redeliveries of an already
// terminal analysis are no-ops.
type Worker struct {
	Repo     Repo
	Cache    *ResultCache
	Provider llm.Provider
	// Limiter throttles outbound provider calls across all goroutines.
	Limiter        *rate.Limiter
	MaxAttempts    int
	AttemptTimeout time.Duration
}

// ProcessAnalysis runs the bounded retry loop for one analysis. Every model
// response is coerced and validated; a failed attempt feeds its diagnostic
// back through a correction prompt. Errors returned here signal transport
// problems to the queue consumer; analysis-level failure is recorded on the
// row and returns nil.
func (w *Worker) ProcessAnalysis(ctx context.Context, id string) error {
	a, err := w.Repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load analysis %s: %w", id, err)
	}
	if IsTerminal(a.Status) {
		telemetry.Info("worker.analysis.already_terminal", w.fields(ctx, id, map[string]any{
			"status": a.Status,
		}))
		return nil
	}

	if err := w.Repo.SetStatus(ctx, id, StatusProcessing); err != nil {
		return fmt.Errorf("mark processing %s: %w", id, err)
	}
	metrics.IncAnalysisStarted()

	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := w.attempt(ctx, a, attempt, lastErr)
		if err == nil {
			elapsed := time.Since(start).Milliseconds()
			if err := w.Repo.SetCompleted(ctx, id, result, elapsed); err != nil {
				return fmt.Errorf("complete analysis %s: %w", id, err)
			}
			w.Cache.Put(ctx, util.ContentHash(a.ResumeText, a.JobDescription), result)
			metrics.IncAnalysisCompleted()
			metrics.ObserveAnalysisDurationMs(float64(elapsed))
			telemetry.Info("worker.analysis.completed", w.fields(ctx, id, map[string]any{
				"attempts":    attempt,
				"duration_ms": elapsed,
			}))
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("analysis %s interrupted: %w", id, ctx.Err())
		}

		lastErr = err
		retries, rerr := w.Repo.IncrementRetry(ctx, id)
		if rerr != nil {
			return fmt.Errorf("record retry %s: %w", id, rerr)
		}
		telemetry.Warn("worker.analysis.attempt_failed", w.fields(ctx, id, map[string]any{
			"attempt":     attempt,
			"retry_count": retries,
			"error":       sanitizeError(err),
		}))
	}

	if err := w.Repo.SetFailed(ctx, id, sanitizeError(lastErr), maxAttempts); err != nil {
		return fmt.Errorf("fail analysis %s: %w", id, err)
	}
	metrics.IncAnalysisFailed()
	telemetry.Error("worker.analysis.failed", w.fields(ctx, id, map[string]any{
		"attempts": maxAttempts,
		"error":    sanitizeError(lastErr),
	}))
	return nil
}

func (w *Worker) fields(ctx context.Context, id string, extra map[string]any) map[string]any {
	fields := map[string]any{"analysis_id": id}
	if rid := RequestIDFromContext(ctx); rid != "" {
		fields["request_id"] = rid
	}
	for k, v := range extra {
		fields[k] = v
	}
	return fields
}

func (w *Worker) attempt(ctx context.Context, a Analysis, attempt int, lastErr error) (GapAnalysisResult, error) {
	if w.Limiter != nil {
		if err := w.Limiter.Wait(ctx); err != nil {
			return GapAnalysisResult{}, fmt.Errorf("rate limiter: %w", err)
		}
	}

	timeout := w.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := llm.AnalysisPrompt(a.ResumeText, a.JobDescription)
	if attempt > 1 && lastErr != nil {
		prompt = llm.CorrectionPrompt(lastErr.Error(), a.ResumeText, a.JobDescription)
	}

	metrics.IncProviderAttempts()
	raw, err := w.Provider.Generate(attemptCtx, prompt)
	if err != nil {
		return GapAnalysisResult{}, fmt.Errorf("provider call: %w", err)
	}
	return Coerce(raw)
}

// sanitizeError flattens an error for storage: newlines collapsed, length
// capped so a runaway provider message cannot bloat the row.
func sanitizeError(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
