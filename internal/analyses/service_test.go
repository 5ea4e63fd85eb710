package analyses

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"skillgap-backend/internal/identity"
	"skillgap-backend/internal/queue"
	"skillgap-backend/internal/shared/storage/cache"
	"skillgap-backend/internal/shared/util"
)

type recordingQueue struct {
	mu   sync.Mutex
	sent []queue.Message
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, msg)
	return nil
}

func (q *recordingQueue) messages() []queue.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queue.Message(nil), q.sent...)
}

func newTestService(q queue.Client, p Processor) (*Service, *MemoryRepo, *ResultCache) {
	repo := NewMemoryRepo()
	resultCache := NewResultCache(cache.NewMemory(nil), time.Hour)
	svc := &Service{
		Repo:      repo,
		Identity:  identity.NewMemoryRepo(),
		Cache:     resultCache,
		Queue:     q,
		Processor: p,
	}
	return svc, repo, resultCache
}

func validInput() SubmitInput {
	return SubmitInput{
		ResumeText:     strings.Repeat("A", 60),
		JobDescription: strings.Repeat("B", 60),
		SessionID:      uuid.NewString(),
		RequestID:      "req-test",
	}
}

func completedResult() GapAnalysisResult {
	return GapAnalysisResult{
		MissingSkills: []string{"Docker"},
		LearningPath: []LearningStep{
			{Step: "Install Docker"},
			{Step: "Build an image"},
			{Step: "Run a container"},
		},
		InterviewQuestions: []string{"Q1?", "Q2?", "Q3?"},
		Status:             StatusCompleted,
	}
}

func TestSubmitRejectsShortInputs(t *testing.T) {
	svc, _, _ := newTestService(&recordingQueue{}, nil)

	in := validInput()
	in.ResumeText = "too short"
	if _, err := svc.Submit(context.Background(), in); err == nil {
		t.Fatalf("expected validation error for short resume")
	}

	in = validInput()
	in.JobDescription = strings.Repeat("J", MaxJDChars+1)
	if _, err := svc.Submit(context.Background(), in); err == nil {
		t.Fatalf("expected validation error for oversized job description")
	}
}

func TestSubmitNewAnalysisEnqueuesOnce(t *testing.T) {
	q := &recordingQueue{}
	svc, repo, _ := newTestService(q, nil)

	in := validInput()
	res, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Cached {
		t.Fatalf("fresh submission should not be cached")
	}
	if res.Status != StatusPending {
		t.Fatalf("status: got %q want %q", res.Status, StatusPending)
	}

	stored, err := repo.GetByID(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.ContentHash != util.ContentHash(in.ResumeText, in.JobDescription) {
		t.Fatalf("stored hash mismatch")
	}
	if stored.AnonymousUserID == nil {
		t.Fatalf("expected analysis bound to anonymous user")
	}

	msgs := q.messages()
	if len(msgs) != 1 || msgs[0].AnalysisID != res.ID {
		t.Fatalf("expected one enqueue keyed by analysis id, got %+v", msgs)
	}
}

func TestSubmitServesCacheHitWithStoreConfirmation(t *testing.T) {
	q := &recordingQueue{}
	svc, repo, resultCache := newTestService(q, nil)

	in := validInput()
	hash := util.ContentHash(in.ResumeText, in.JobDescription)
	result := completedResult()
	now := time.Now().UTC()
	ms := int64(1200)
	prior := Analysis{
		ID:               uuid.NewString(),
		ContentHash:      hash,
		ResumeText:       in.ResumeText,
		JobDescription:   in.JobDescription,
		Status:           StatusCompleted,
		Result:           &result,
		CompletedAt:      &now,
		ProcessingTimeMs: &ms,
	}
	if err := repo.Create(context.Background(), prior); err != nil {
		t.Fatalf("Create: %v", err)
	}
	resultCache.Put(context.Background(), hash, result)

	res, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Cached || res.ID != prior.ID {
		t.Fatalf("expected cached hit on prior analysis, got %+v", res)
	}
	if res.Result == nil || res.Result.MissingSkills[0] != "Docker" {
		t.Fatalf("unexpected cached result: %+v", res.Result)
	}
	if len(q.messages()) != 0 {
		t.Fatalf("cache hit must not enqueue")
	}
}

func TestSubmitCacheHitSkipsIdentityUpsert(t *testing.T) {
	q := &recordingQueue{}
	svc, repo, resultCache := newTestService(q, nil)

	in := validInput()
	hash := util.ContentHash(in.ResumeText, in.JobDescription)
	result := completedResult()
	prior := Analysis{
		ID:             uuid.NewString(),
		ContentHash:    hash,
		ResumeText:     in.ResumeText,
		JobDescription: in.JobDescription,
		Status:         StatusCompleted,
		Result:         &result,
	}
	if err := repo.Create(context.Background(), prior); err != nil {
		t.Fatalf("Create: %v", err)
	}
	resultCache.Put(context.Background(), hash, result)

	res, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Cached {
		t.Fatalf("expected cached hit, got %+v", res)
	}
	if _, err := svc.Identity.FindBySessionID(context.Background(), in.SessionID); !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("cached hit must not create an anonymous user, lookup err %v", err)
	}
}

func TestSubmitDropsStaleCacheEntry(t *testing.T) {
	q := &recordingQueue{}
	svc, _, resultCache := newTestService(q, nil)

	in := validInput()
	hash := util.ContentHash(in.ResumeText, in.JobDescription)
	// Cache entry with no completed row behind it.
	resultCache.Put(context.Background(), hash, completedResult())

	res, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Cached {
		t.Fatalf("unconfirmed cache entry must not short-circuit")
	}
	if _, ok := resultCache.Get(context.Background(), hash); ok {
		t.Fatalf("stale cache entry should have been invalidated")
	}
	if len(q.messages()) != 1 {
		t.Fatalf("expected enqueue after stale hit, got %d", len(q.messages()))
	}
}

func TestSubmitHydratesCacheFromStore(t *testing.T) {
	q := &recordingQueue{}
	svc, repo, resultCache := newTestService(q, nil)

	in := validInput()
	hash := util.ContentHash(in.ResumeText, in.JobDescription)
	result := completedResult()
	prior := Analysis{
		ID:             uuid.NewString(),
		ContentHash:    hash,
		ResumeText:     in.ResumeText,
		JobDescription: in.JobDescription,
		Status:         StatusCompleted,
		Result:         &result,
	}
	if err := repo.Create(context.Background(), prior); err != nil {
		t.Fatalf("Create: %v", err)
	}

	res, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Cached || res.ID != prior.ID {
		t.Fatalf("expected store fallthrough hit, got %+v", res)
	}
	if _, ok := resultCache.Get(context.Background(), hash); !ok {
		t.Fatalf("expected cache to be hydrated from the store")
	}
	if len(q.messages()) != 0 {
		t.Fatalf("store hit must not enqueue")
	}
}

func TestHistoryScopedToSession(t *testing.T) {
	q := &recordingQueue{}
	svc, _, _ := newTestService(q, nil)

	in := validInput()
	if _, err := svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	items, err := svc.History(context.Background(), in.SessionID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one history item, got %d", len(items))
	}

	other, err := svc.History(context.Background(), uuid.NewString(), 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("foreign session must see no history, got %d", len(other))
	}
}

// End to end without a queue: the service runs the worker in process, the
// worker completes on the first attempt, and a resubmission of the same pair
// is served from cache.
func TestSubmitProcessAndResubmitCached(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		"```json\n" + `{"missingSkills":["Docker"],"learningPath":[{"step":"a"},{"step":"b"},{"step":"c"}],"interviewQuestions":["1?","2?","3?"],"status":"COMPLETED"}` + "\n```",
	}}

	svc, repo, resultCache := newTestService(nil, nil)
	worker := &Worker{
		Repo:     repo,
		Cache:    resultCache,
		Provider: provider,
	}
	svc.Processor = worker

	in := validInput()
	res, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Cached {
		t.Fatalf("first submission must not be cached")
	}

	waitForStatus(t, repo, res.ID, StatusCompleted)

	again, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !again.Cached || again.ID != res.ID {
		t.Fatalf("resubmission should be served cached from the first run, got %+v", again)
	}
	if again.Result == nil || again.Result.MissingSkills[0] != "Docker" {
		t.Fatalf("unexpected cached result: %+v", again.Result)
	}
	if provider.calls() != 1 {
		t.Fatalf("expected exactly one provider call, got %d", provider.calls())
	}
}

func waitForStatus(t *testing.T, repo Repo, id, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		a, err := repo.GetByID(context.Background(), id)
		if err == nil && a.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	a, _ := repo.GetByID(context.Background(), id)
	t.Fatalf("analysis %s never reached %s, last status %q", id, want, a.Status)
}
