package analyses

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"skillgap-backend/internal/shared/storage/cache"
	"skillgap-backend/internal/shared/util"
)

// scriptedProvider returns canned responses in order, repeating the last one
// once the script runs out.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	count     int
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	idx := p.count - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx], nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func newTestWorker(provider *scriptedProvider) (*Worker, *MemoryRepo) {
	repo := NewMemoryRepo()
	return &Worker{
		Repo:     repo,
		Cache:    NewResultCache(cache.NewMemory(nil), time.Hour),
		Provider: provider,
	}, repo
}

func pendingAnalysis(t *testing.T, repo *MemoryRepo) Analysis {
	t.Helper()
	a := Analysis{
		ID:             uuid.NewString(),
		ContentHash:    util.ContentHash(strings.Repeat("A", 60), strings.Repeat("B", 60)),
		ResumeText:     strings.Repeat("A", 60),
		JobDescription: strings.Repeat("B", 60),
		Status:         StatusPending,
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
}

func TestProcessAnalysisCompletesAndCaches(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"missingSkills":["Go"],"learningPath":[{"step":"a"},{"step":"b"},{"step":"c"}],"interviewQuestions":["1?","2?","3?"],"status":"COMPLETED"}`,
	}}
	w, repo := newTestWorker(provider)
	a := pendingAnalysis(t, repo)

	if err := w.ProcessAnalysis(context.Background(), a.ID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != StatusCompleted {
		t.Fatalf("status: got %q want %q", stored.Status, StatusCompleted)
	}
	if stored.Result == nil || stored.Result.MissingSkills[0] != "Go" {
		t.Fatalf("unexpected result: %+v", stored.Result)
	}
	if stored.ProcessingTimeMs == nil {
		t.Fatalf("processing time not recorded")
	}

	if _, ok := w.Cache.Get(context.Background(), stored.ContentHash); !ok {
		t.Fatalf("completed result not cached under content hash")
	}
}

func TestProcessAnalysisRecoversViaCorrection(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"I cannot produce JSON right now.",
		`{"missingSkills":["Go"],"learningPath":[{"step":"a"},{"step":"b"},{"step":"c"}],"interviewQuestions":["1?","2?","3?"],"status":"COMPLETED"}`,
	}}
	w, repo := newTestWorker(provider)
	a := pendingAnalysis(t, repo)

	if err := w.ProcessAnalysis(context.Background(), a.ID); err != nil {
		t.Fatalf("ProcessAnalysis: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), a.ID)
	if stored.Status != StatusCompleted {
		t.Fatalf("status: got %q want %q", stored.Status, StatusCompleted)
	}
	if stored.RetryCount != 1 {
		t.Fatalf("retryCount: got %d want 1", stored.RetryCount)
	}
	if provider.calls() != 2 {
		t.Fatalf("provider calls: got %d want 2", provider.calls())
	}
}

func TestProcessAnalysisFailsAfterBoundedRetries(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"still not json"}}
	w, repo := newTestWorker(provider)
	a := pendingAnalysis(t, repo)

	if err := w.ProcessAnalysis(context.Background(), a.ID); err != nil {
		t.Fatalf("ProcessAnalysis should absorb analysis failure, got %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), a.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("status: got %q want %q", stored.Status, StatusFailed)
	}
	if stored.RetryCount != DefaultMaxAttempts {
		t.Fatalf("retryCount: got %d want %d", stored.RetryCount, DefaultMaxAttempts)
	}
	if stored.ErrorMessage == nil || *stored.ErrorMessage == "" {
		t.Fatalf("failed analysis must carry an error message")
	}
	if provider.calls() != DefaultMaxAttempts {
		t.Fatalf("provider calls: got %d want %d", provider.calls(), DefaultMaxAttempts)
	}
}

func TestProcessAnalysisIgnoresTerminalRedelivery(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"missingSkills":["Go"],"learningPath":[{"step":"a"},{"step":"b"},{"step":"c"}],"interviewQuestions":["1?","2?","3?"],"status":"COMPLETED"}`,
	}}
	w, repo := newTestWorker(provider)
	a := pendingAnalysis(t, repo)

	if err := w.ProcessAnalysis(context.Background(), a.ID); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	first, _ := repo.GetByID(context.Background(), a.ID)

	if err := w.ProcessAnalysis(context.Background(), a.ID); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	second, _ := repo.GetByID(context.Background(), a.ID)

	if provider.calls() != 1 {
		t.Fatalf("redelivery must not call the provider, got %d calls", provider.calls())
	}
	if second.Status != first.Status || second.RetryCount != first.RetryCount {
		t.Fatalf("redelivery mutated a terminal record: %+v vs %+v", first, second)
	}
}

func TestSanitizeErrorFlattensAndCaps(t *testing.T) {
	long := strings.Repeat("x\ny ", 400)
	got := sanitizeError(errTest(long))
	if strings.ContainsAny(got, "\n\r") {
		t.Fatalf("sanitized error contains newlines")
	}
	if len(got) > 500 {
		t.Fatalf("sanitized error too long: %d", len(got))
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
