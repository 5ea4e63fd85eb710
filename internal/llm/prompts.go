package llm

import (
	_ "embed"
	"fmt"
)

//go:embed prompts/system.txt
var systemPrompt string

// AnalysisPrompt builds the primary gap-analysis prompt for a resume and job
// description pair.
func AnalysisPrompt(resumeText, jobDescription string) string {
	return fmt.Sprintf(`%s

===== RESUME =====
%s

===== JOB DESCRIPTION =====
%s

Analyze and return the JSON response:`, systemPrompt, resumeText, jobDescription)
}

// CorrectionPrompt builds the follow-up prompt issued after a failed attempt.
// It embeds the prior diagnostic verbatim and restates the required shape.
func CorrectionPrompt(diagnostic, resumeText, jobDescription string) string {
	return fmt.Sprintf(`Your previous response was invalid. Error: %s

Please provide a corrected response following the EXACT JSON format:
{
  "missingSkills": ["skill1", "skill2"],
  "learningPath": [
    { "step": "concrete action", "resource": "optional url" },
    { "step": "concrete action" },
    { "step": "concrete action" }
  ],
  "interviewQuestions": ["question1", "question2", "question3"],
  "status": "COMPLETED"
}

CRITICAL REQUIREMENTS:
- missingSkills: At least 1 skill (array of strings)
- learningPath: EXACTLY 3 objects with "step" key
- interviewQuestions: EXACTLY 3 strings
- status: Must be "COMPLETED"
- Return ONLY valid JSON, no markdown blocks

===== RESUME =====
%s

===== JOB DESCRIPTION =====
%s

Return ONLY the JSON:`, diagnostic, resumeText, jobDescription)
}
