package analyses

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skillgap-backend/internal/extract"
	"skillgap-backend/internal/shared/server/middleware"
	"skillgap-backend/internal/shared/server/respond"
)

// Handler exposes the analyses HTTP API.
type Handler struct {
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{Service: service}
}

type submitRequest struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

type submitResponse struct {
	ID     string             `json:"id"`
	Status string             `json:"status"`
	Cached bool               `json:"cached"`
	Result *GapAnalysisResult `json:"result,omitempty"`
}

type analysisResponse struct {
	ID                 string             `json:"id"`
	Status             string             `json:"status"`
	Result             *GapAnalysisResult `json:"result,omitempty"`
	ErrorMessage       *string            `json:"errorMessage,omitempty"`
	AIProcessingTimeMs *int64             `json:"aiProcessingTimeMs,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
}

type historyItem struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	ResumeFilename *string    `json:"resumeFilename,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Submit handles POST /api/v1/analyses. It accepts either a JSON body with
// both texts, or a multipart form with a PDF resume file plus a
// jobDescription field.
func (h *Handler) Submit(c *gin.Context) {
	in, ok := h.parseSubmit(c)
	if !ok {
		return
	}
	in.SessionID = middleware.SessionIDFromContext(c)
	in.RequestID = c.GetString("requestId")

	result, err := h.Service.Submit(c.Request.Context(), in)
	if errors.Is(err, ErrInvalidInput) {
		respond.Error(c, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "SUBMIT_FAILED", "could not submit analysis", nil)
		return
	}

	status := http.StatusAccepted
	if result.Cached {
		status = http.StatusOK
	}
	respond.JSON(c, status, submitResponse{
		ID:     result.ID,
		Status: result.Status,
		Cached: result.Cached,
		Result: result.Result,
	})
}

func (h *Handler) parseSubmit(c *gin.Context) (SubmitInput, bool) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return h.parseMultipart(c)
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON", nil)
		return SubmitInput{}, false
	}
	return SubmitInput{
		ResumeText:     strings.TrimSpace(req.ResumeText),
		JobDescription: strings.TrimSpace(req.JobDescription),
	}, true
}

func (h *Handler) parseMultipart(c *gin.Context) (SubmitInput, bool) {
	fileHeader, err := c.FormFile("resume")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "MISSING_FILE", "multipart submissions require a resume file", nil)
		return SubmitInput{}, false
	}
	if fileHeader.Size > extract.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "resume file exceeds the upload limit", nil)
		return SubmitInput{}, false
	}
	if !strings.EqualFold(strings.TrimSpace(c.PostForm("fileType")), "pdf") &&
		!strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		respond.Error(c, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE", "only PDF resumes are supported", nil)
		return SubmitInput{}, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file", nil)
		return SubmitInput{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, extract.MaxUploadBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "UNREADABLE_FILE", "could not read uploaded file", nil)
		return SubmitInput{}, false
	}

	resumeText, err := extract.FromPDF(data)
	if err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "EXTRACTION_FAILED", "could not extract text from the PDF", err.Error())
		return SubmitInput{}, false
	}

	filename := fileHeader.Filename
	return SubmitInput{
		ResumeText:     resumeText,
		JobDescription: strings.TrimSpace(c.PostForm("jobDescription")),
		ResumeFilename: &filename,
	}, true
}

// Get handles GET /api/v1/analyses/:id, the polling endpoint.
func (h *Handler) Get(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		respond.Error(c, http.StatusBadRequest, "INVALID_ID", "analysis id must be a UUID", nil)
		return
	}

	a, err := h.Service.Get(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "analysis not found", nil)
		return
	}
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "GET_FAILED", "could not load analysis", nil)
		return
	}

	respond.OK(c, analysisResponse{
		ID:                 a.ID,
		Status:             a.Status,
		Result:             a.Result,
		ErrorMessage:       a.ErrorMessage,
		AIProcessingTimeMs: a.ProcessingTimeMs,
		CreatedAt:          a.CreatedAt,
	})
}

// History handles GET /api/v1/analyses, listing the session's submissions.
func (h *Handler) History(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := h.Service.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "HISTORY_FAILED", "could not load history", nil)
		return
	}

	out := make([]historyItem, 0, len(items))
	for _, a := range items {
		out = append(out, historyItem{
			ID:             a.ID,
			Status:         a.Status,
			ResumeFilename: a.ResumeFilename,
			CreatedAt:      a.CreatedAt,
			CompletedAt:    a.CompletedAt,
		})
	}
	respond.OK(c, gin.H{"analyses": out})
}
