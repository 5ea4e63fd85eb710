package analyses

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:[a-zA-Z]+)?\\s*(.*?)```")
	htmlTagRe     = regexp.MustCompile(`<[^>]*>`)
)

// CoercionError describes why a model response could not be coerced into a
// GapAnalysisResult. Its message is fed back to the model verbatim as the
// correction diagnostic, so it lists every violation at once.
type CoercionError struct {
	Violations []string
}

func (e *CoercionError) Error() string {
	return "invalid analysis payload: " + strings.Join(e.Violations, "; ")
}

// Coerce turns raw model output into a validated GapAnalysisResult.
//
// The text is unwrapped from the first markdown code fence if one is present,
// parsed as JSON, recursively stripped of HTML tags, and then checked against
// the result contract. All violations are collected into a single
// CoercionError rather than failing on the first.
func Coerce(text string) (GapAnalysisResult, error) {
	payload := unwrapFence(text)

	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return GapAnalysisResult{}, &CoercionError{
			Violations: []string{fmt.Sprintf("response is not valid JSON: %v", err)},
		}
	}

	sanitized, _ := sanitize(raw).(map[string]any)

	normalized, err := json.Marshal(sanitized)
	if err != nil {
		return GapAnalysisResult{}, &CoercionError{
			Violations: []string{fmt.Sprintf("response could not be normalized: %v", err)},
		}
	}

	var result GapAnalysisResult
	if err := json.Unmarshal(normalized, &result); err != nil {
		return GapAnalysisResult{}, &CoercionError{
			Violations: []string{fmt.Sprintf("response shape mismatch: %v", err)},
		}
	}

	if violations := validateResult(result); len(violations) > 0 {
		return GapAnalysisResult{}, &CoercionError{Violations: violations}
	}
	return result, nil
}

// unwrapFence returns the contents of the first fenced code block, or the
// trimmed input when no fence is present.
func unwrapFence(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// sanitize walks the decoded JSON value and strips HTML tags from every
// string, trimming the remainder.
func sanitize(v any) any {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(htmlTagRe.ReplaceAllString(val, ""))
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitize(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = sanitize(item)
		}
		return out
	default:
		return v
	}
}

func validateResult(r GapAnalysisResult) []string {
	var violations []string

	if len(r.MissingSkills) == 0 {
		violations = append(violations, "missingSkills must contain at least one entry")
	}
	for i, s := range r.MissingSkills {
		if s == "" {
			violations = append(violations, fmt.Sprintf("missingSkills[%d] is empty", i))
		}
	}

	if len(r.LearningPath) != 3 {
		violations = append(violations, fmt.Sprintf("learningPath must contain exactly 3 steps, got %d", len(r.LearningPath)))
	}
	for i, step := range r.LearningPath {
		if step.Step == "" {
			violations = append(violations, fmt.Sprintf("learningPath[%d].step is empty", i))
		}
	}

	if len(r.InterviewQuestions) != 3 {
		violations = append(violations, fmt.Sprintf("interviewQuestions must contain exactly 3 questions, got %d", len(r.InterviewQuestions)))
	}
	for i, q := range r.InterviewQuestions {
		if q == "" {
			violations = append(violations, fmt.Sprintf("interviewQuestions[%d] is empty", i))
		}
	}

	if r.Status != StatusCompleted && r.Status != StatusFailed {
		violations = append(violations, fmt.Sprintf("status must be COMPLETED or FAILED, got %q", r.Status))
	}

	return violations
}
