package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateInterviewerPromptTransitionRules(t *testing.T) {
	base := InterviewerInput{
		InterviewContext: "Position: Backend Engineer\n",
		SectionContext:   "Current section: Introduction\n",
		Modality:         "text",
		Token:            "[[NEXT_SECTION]]",
	}

	tests := []struct {
		name     string
		mutate   func(*InterviewerInput)
		contains []string
		excludes []string
	}{
		{
			name:     "regular section",
			mutate:   func(*InterviewerInput) {},
			contains: []string{"end your message with [[NEXT_SECTION]]", "Never use the marker otherwise"},
		},
		{
			name:     "section time used up",
			mutate:   func(in *InterviewerInput) { in.SectionComplete = true },
			contains: []string{"nearly used up", "[[NEXT_SECTION]]"},
		},
		{
			name:     "final section",
			mutate:   func(in *InterviewerInput) { in.FinalSection = true; in.SectionComplete = true },
			contains: []string{"This is the last section"},
			excludes: []string{"[[NEXT_SECTION]]"},
		},
		{
			name:     "voice keeps replies short",
			mutate:   func(in *InterviewerInput) { in.Modality = "voice" },
			contains: []string{"read aloud"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			got := GenerateInterviewerPrompt(in)
			assert.Contains(t, got, "Position: Backend Engineer")
			assert.Contains(t, got, "Current section: Introduction")
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestGenerateSectionInstruction(t *testing.T) {
	assert.Equal(t,
		`We are now starting the "Coding" section. Focus on: algorithms, testing. Briefly introduce the section and ask the first question.`,
		GenerateSectionInstruction("Coding", []string{"algorithms", "testing"}))
	assert.NotContains(t, GenerateSectionInstruction("Wrap-up", nil), "Focus on")
}

func TestGenerateGradingPrompt(t *testing.T) {
	got := GenerateGradingPrompt(GradingInput{
		Position:      "Backend Engineer",
		InterviewType: "technical",
		Sections:      []string{"Introduction", "Coding"},
		Transcript: []Turn{
			{Role: "assistant", Content: "Tell me about yourself."},
			{Role: "user", Content: "I build Go services."},
		},
	})

	assert.Contains(t, got, "POSITION: Backend Engineer")
	assert.Contains(t, got, "2. Coding")
	assert.Contains(t, got, "Interviewer: Tell me about yourself.")
	assert.Contains(t, got, "Candidate: I build Go services.")
	assert.Contains(t, got, `"recommendation": "HIRE" | "MAYBE" | "NO_HIRE"`)
	assert.NotContains(t, got, "DIFFICULTY")
}
