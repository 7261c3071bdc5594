package prompts

import (
	"fmt"
	"strings"
)

// InterviewerInput is everything the interviewer prompt is built from.
type InterviewerInput struct {
	InterviewContext string
	SectionContext   string
	Modality         string
	// Token is the marker the model appends when the section is covered.
	Token string
	// SectionComplete is set when time and response count say the section is done.
	SectionComplete bool
	// FinalSection suppresses the move-on marker.
	FinalSection bool
}

// Turn is one line of the transcript shown to the grader.
type Turn struct {
	Role    string
	Content string
}

// GradingInput feeds the analysis prompt.
type GradingInput struct {
	Position      string
	InterviewType string
	Difficulty    string
	Sections      []string
	Transcript    []Turn
}

// GenerateInterviewerPrompt builds the system prompt for one interviewer turn.
func GenerateInterviewerPrompt(in InterviewerInput) string {
	var prompt strings.Builder

	prompt.WriteString("You are an experienced technical interviewer running a structured mock job interview.\n\n")

	prompt.WriteString("INTERVIEW CONTEXT:\n")
	prompt.WriteString(in.InterviewContext)
	prompt.WriteString("\n")
	prompt.WriteString(in.SectionContext)
	prompt.WriteString("\n")

	prompt.WriteString("RULES:\n")
	prompt.WriteString("- Ask ONE question at a time and wait for the answer\n")
	prompt.WriteString("- Stay inside the focus areas of the current section\n")
	prompt.WriteString("- Ask a follow-up when an answer is vague, otherwise move to a new point\n")
	prompt.WriteString("- Do not grade the candidate or reveal scores during the interview\n")
	if in.Modality == "voice" || in.Modality == "video" {
		prompt.WriteString("- Keep replies short and conversational, they are read aloud\n")
	}
	prompt.WriteString("\n")

	prompt.WriteString("SECTION TRANSITION:\n")
	switch {
	case in.FinalSection:
		prompt.WriteString("This is the last section. When it is covered, thank the candidate and close the interview.\n")
	case in.SectionComplete:
		prompt.WriteString("The time for this section is nearly used up. Wrap up the current topic in one sentence ")
		prompt.WriteString(fmt.Sprintf("and end your message with %s.\n", in.Token))
	default:
		prompt.WriteString(fmt.Sprintf("When this section is covered, say that you are moving on and end your message with %s. ", in.Token))
		prompt.WriteString("Never use the marker otherwise.\n")
	}
	prompt.WriteString("\n")

	prompt.WriteString("ANSWER: Write only what you say to the candidate.")
	return prompt.String()
}

// GenerateOpeningInstruction asks for the greeting and first question.
func GenerateOpeningInstruction(position string) string {
	if position == "" {
		return "Greet the candidate briefly and ask your first question for the current section."
	}
	return fmt.Sprintf("Greet the candidate for the %s interview briefly and ask your first question for the current section.", position)
}

// GenerateSectionInstruction is sent when the interview moves to a new section.
func GenerateSectionInstruction(title string, focusAreas []string) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("We are now starting the %q section.", title))
	if len(focusAreas) > 0 {
		prompt.WriteString(fmt.Sprintf(" Focus on: %s.", strings.Join(focusAreas, ", ")))
	}
	prompt.WriteString(" Briefly introduce the section and ask the first question.")
	return prompt.String()
}

// GenerateGradingPrompt builds the analysis prompt. The model must answer with JSON only.
func GenerateGradingPrompt(in GradingInput) string {
	var prompt strings.Builder

	prompt.WriteString("You are a senior hiring manager. Evaluate the mock interview below.\n\n")

	if in.Position != "" {
		prompt.WriteString(fmt.Sprintf("POSITION: %s\n", in.Position))
	}
	if in.InterviewType != "" {
		prompt.WriteString(fmt.Sprintf("INTERVIEW TYPE: %s\n", in.InterviewType))
	}
	if in.Difficulty != "" {
		prompt.WriteString(fmt.Sprintf("DIFFICULTY: %s\n", in.Difficulty))
	}
	if len(in.Sections) > 0 {
		prompt.WriteString("SECTIONS:\n")
		for i, s := range in.Sections {
			prompt.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
		}
	}
	prompt.WriteString("\n")

	prompt.WriteString("TRANSCRIPT:\n")
	for _, t := range in.Transcript {
		speaker := "Candidate"
		if t.Role == "assistant" {
			speaker = "Interviewer"
		}
		prompt.WriteString(fmt.Sprintf("%s: %s\n", speaker, t.Content))
	}
	prompt.WriteString("\n")

	prompt.WriteString(`Return ONLY valid JSON, no markdown, in this shape:
{
  "overallScore": 1-10,
  "strengths": ["..."],
  "improvementAreas": ["..."],
  "technicalSkills": {"score": 1-10, "notes": "..."},
  "communication": {"score": 1-10, "notes": "..."},
  "problemSolving": {"score": 1-10, "notes": "..."},
  "culturalFit": {"score": 1-10, "notes": "..."},
  "recommendation": "HIRE" | "MAYBE" | "NO_HIRE",
  "summary": "...",
  "keyInsights": ["..."]
}
Base every score on evidence from the transcript.`)

	return prompt.String()
}
