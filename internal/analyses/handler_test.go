package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"skillgap-backend/internal/identity"
	"skillgap-backend/internal/shared/server/middleware"
	"skillgap-backend/internal/shared/storage/cache"
)

func newTestRouter(t *testing.T) (*gin.Engine, *MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewMemoryRepo()
	svc := &Service{
		Repo:     repo,
		Identity: identity.NewMemoryRepo(),
		Cache:    NewResultCache(cache.NewMemory(nil), time.Hour),
		Queue:    &recordingQueue{},
	}
	h := NewHandler(svc)

	r := gin.New()
	r.Use(middleware.Session("dev"))
	api := r.Group("/api/v1")
	api.POST("/analyses", h.Submit)
	api.GET("/analyses/:id", h.Get)
	api.GET("/analyses", h.History)
	return r, repo
}

func submitBody() []byte {
	body, _ := json.Marshal(submitRequest{
		ResumeText:     strings.Repeat("A", 60),
		JobDescription: strings.Repeat("B", 60),
	})
	return body
}

func TestHandlerSubmitAccepted(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(submitBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d want %d, body %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" || resp.Status != StatusPending || resp.Cached {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestHandlerSubmitRejectsShortResume(t *testing.T) {
	r, _ := newTestRouter(t)

	body, _ := json.Marshal(submitRequest{
		ResumeText:     "short",
		JobDescription: strings.Repeat("B", 60),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerPollLifecycle(t *testing.T) {
	r, repo := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(submitBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var submitted submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode submit: %v", err)
	}

	poll := func() analysisResponse {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+submitted.ID, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("poll status: got %d, body %s", rec.Code, rec.Body.String())
		}
		var resp analysisResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode poll: %v", err)
		}
		return resp
	}

	if got := poll(); got.Status != StatusPending {
		t.Fatalf("expected PENDING before processing, got %q", got.Status)
	}

	if err := repo.SetCompleted(context.Background(), submitted.ID, completedResult(), 800); err != nil {
		t.Fatalf("SetCompleted: %v", err)
	}

	done := poll()
	if done.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED after processing, got %q", done.Status)
	}
	if done.Result == nil || len(done.Result.InterviewQuestions) != 3 {
		t.Fatalf("completed poll missing result: %+v", done.Result)
	}
	if done.AIProcessingTimeMs == nil || *done.AIProcessingTimeMs != 800 {
		t.Fatalf("missing processing time: %+v", done.AIProcessingTimeMs)
	}
}

func TestHandlerPollRejectsBadID(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlerPollUnknownID(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/5f6e7cb4-6f65-4a5c-b9a2-d0c8f8f0a001", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandlerHistoryUsesSessionCookie(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", bytes.NewReader(submitBody()))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatalf("submit did not set a session cookie")
	}

	histReq := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	for _, ck := range cookies {
		histReq.AddCookie(ck)
	}
	histRec := httptest.NewRecorder()
	r.ServeHTTP(histRec, histReq)

	if histRec.Code != http.StatusOK {
		t.Fatalf("history status: got %d", histRec.Code)
	}
	var resp struct {
		Analyses []historyItem `json:"analyses"`
	}
	if err := json.Unmarshal(histRec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(resp.Analyses) != 1 {
		t.Fatalf("expected one history item, got %d", len(resp.Analyses))
	}
}
