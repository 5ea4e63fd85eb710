package analyses

import "time"

// Analysis lifecycle states. Terminal states never transition again.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// IsTerminal reports whether a status is final.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Analysis is one resume-versus-job-description comparison request, tracked
// from submission through background processing.
type Analysis struct {
	ID               string
	AnonymousUserID  *string
	ContentHash      string
	ResumeText       string
	JobDescription   string
	ResumeFilename   *string
	Status           string
	Result           *GapAnalysisResult
	ErrorMessage     *string
	RetryCount       int
	CreatedAt        time.Time
	CompletedAt      *time.Time
	ProcessingTimeMs *int64
}

// GapAnalysisResult is the structured output of a completed analysis. The
// JSON tags define the wire format shared by the model response, the cache,
// and the API.
type GapAnalysisResult struct {
	MissingSkills      []string       `json:"missingSkills"`
	LearningPath       []LearningStep `json:"learningPath"`
	InterviewQuestions []string       `json:"interviewQuestions"`
	Status             string         `json:"status"`
}

// LearningStep is one entry of the three-step learning path.
type LearningStep struct {
	Step     string `json:"step"`
	Resource string `json:"resource,omitempty"`
}
