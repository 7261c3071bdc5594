package interview

import (
	"fmt"
	"strings"
)

const contextTextLimit = 2000

// SectionContext describes the active section for a prompt.
func (s *State) SectionContext() string {
	section, ok := s.CurrentSection()
	if !ok {
		return "No active section."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("CURRENT SECTION: %q (%d of %d)\n", section.Title, s.sectionIndex+1, s.flow.Len()))
	if len(section.FocusAreas) > 0 {
		b.WriteString("FOCUS AREAS:\n")
		for _, area := range section.FocusAreas {
			b.WriteString(fmt.Sprintf("- %s\n", area))
		}
	}
	b.WriteString(fmt.Sprintf("Section budget: %d min, remaining: %s\n",
		section.EstimatedDuration, formatMinutes(s.SectionTimeRemaining().Minutes())))
	b.WriteString(fmt.Sprintf("Responses logged in this section: %d\n", s.sectionResponseCount()))
	if next, ok := s.NextSection(); ok {
		b.WriteString(fmt.Sprintf("Next section: %q\n", next.Title))
	} else {
		b.WriteString("This is the final section.\n")
	}
	return b.String()
}

// InterviewContext summarizes the whole session for a prompt.
func (s *State) InterviewContext() string {
	s.UpdateElapsedTime()

	var b strings.Builder
	if s.candidate.Position != "" {
		b.WriteString(fmt.Sprintf("POSITION: %s\n", s.candidate.Position))
	}
	if s.candidate.InterviewType != "" {
		b.WriteString(fmt.Sprintf("INTERVIEW TYPE: %s\n", s.candidate.InterviewType))
	}
	b.WriteString(fmt.Sprintf("DIFFICULTY: %s\n", s.flow.Difficulty()))
	if focus := s.flow.Focus(); focus != "" {
		b.WriteString(fmt.Sprintf("FOCUS: %s\n", focus))
	}
	b.WriteString(fmt.Sprintf("PROGRESS: section %d of %d (%.0f%%)\n", s.sectionIndex+1, s.flow.Len(), s.Progress()))
	b.WriteString(fmt.Sprintf("TIME: %s elapsed of %d min, %s remaining\n",
		formatMinutes(s.elapsedMinutes), s.flow.TotalDuration(), formatMinutes(s.TotalTimeRemaining().Minutes())))

	if s.sectionIndex > 0 {
		b.WriteString("COMPLETED SECTIONS:\n")
		for i := 0; i < s.sectionIndex; i++ {
			section, _ := s.flow.Section(i)
			b.WriteString(fmt.Sprintf("- %s\n", section.Title))
		}
	}

	if s.candidate.CVText != "" {
		b.WriteString("\nCANDIDATE CV:\n")
		b.WriteString(truncateRunes(s.candidate.CVText, contextTextLimit))
		b.WriteString("\n")
	}
	if s.candidate.JobDescription != "" {
		b.WriteString("\nJOB DESCRIPTION:\n")
		b.WriteString(truncateRunes(s.candidate.JobDescription, contextTextLimit))
		b.WriteString("\n")
	}
	return b.String()
}

func formatMinutes(m float64) string {
	return fmt.Sprintf("%.1f min", m)
}

func truncateRunes(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit]) + "..."
}
