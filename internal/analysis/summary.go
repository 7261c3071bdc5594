package analysis

import (
	"fmt"
	"strings"
)

// FormatSummary renders a short plain-text report for chat transports.
func FormatSummary(a Analysis) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 Interview feedback: %d/10, %s\n\n", a.OverallScore, a.Recommendation))

	writeList(&b, "💪 Strengths", a.Strengths)
	writeList(&b, "🎯 To improve", a.ImprovementAreas)

	b.WriteString("📈 Scores:\n")
	b.WriteString(fmt.Sprintf("- Technical skills: %d\n", a.TechnicalSkills.Score))
	b.WriteString(fmt.Sprintf("- Communication: %d\n", a.Communication.Score))
	b.WriteString(fmt.Sprintf("- Problem solving: %d\n", a.ProblemSolving.Score))
	b.WriteString(fmt.Sprintf("- Cultural fit: %d\n\n", a.CulturalFit.Score))

	if a.Summary != "" {
		b.WriteString(a.Summary)
		b.WriteString("\n")
	}
	if a.Fallback {
		b.WriteString("\n(automatic grading was unavailable, scores are placeholders)")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	// only the first three keep the chat message short
	if len(items) > 3 {
		items = items[:3]
	}
	b.WriteString(title + ":\n")
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")
}
