package session

import (
	"github.com/khushi491/interview-buddy-sub000/internal/advance"
	"github.com/khushi491/interview-buddy-sub000/internal/analysis"
	"github.com/khushi491/interview-buddy-sub000/internal/interview"
	"github.com/khushi491/interview-buddy-sub000/internal/storage"
)

// View is what a client renders: progress, timers, flags and the transcript.
type View struct {
	ID                   string             `json:"id"`
	Status               storage.Status     `json:"status"`
	Position             string             `json:"position"`
	InterviewType        string             `json:"interviewType"`
	Modality             string             `json:"modality"`
	Difficulty           string             `json:"difficulty"`
	CurrentSection       *interview.Section `json:"currentSection,omitempty"`
	SectionIndex         int                `json:"currentSectionIndex"`
	TotalSections        int                `json:"totalSections"`
	Progress             float64            `json:"progress"`
	SectionSecondsLeft   int                `json:"sectionTimeRemaining"`
	TotalSecondsLeft     int                `json:"totalTimeRemaining"`
	ElapsedMinutes       float64            `json:"elapsedTime"`
	Phase                advance.Phase      `json:"phase"`
	AutoAdvanceEnabled   bool               `json:"autoAdvanceEnabled"`
	Started              bool               `json:"started"`
	Ended                bool               `json:"ended"`
	Analyzing            bool               `json:"analyzing"`
	SectionComplete      bool               `json:"sectionComplete"`
	ChatDisabled         bool               `json:"chatDisabled"`
	AutoAdvancing        bool               `json:"autoAdvancing"`
	SectionResponseCount int                `json:"sectionResponseCount"`
	Transcript           []storage.Message  `json:"transcript"`
	Analysis             *analysis.Analysis `json:"analysis,omitempty"`
}

// View returns a consistent copy of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	phase := s.controller.Phase()
	ended := s.endedLocked()
	snap := s.state.Snapshot()

	v := View{
		ID:                   s.id,
		Status:               storage.StatusActive,
		Position:             snap.Position,
		InterviewType:        snap.InterviewType,
		Modality:             s.modality,
		Difficulty:           string(s.state.Flow().Difficulty()),
		SectionIndex:         snap.SectionIndex,
		TotalSections:        snap.TotalSections,
		Progress:             s.state.Progress(),
		ElapsedMinutes:       snap.ElapsedMinutes,
		Phase:                phase,
		AutoAdvanceEnabled:   s.controller.Enabled(),
		Started:              len(s.transcript) > 0,
		Ended:                ended,
		Analyzing:            s.analyzing,
		ChatDisabled:         ended || phase == advance.PhaseAdvancing || s.analyzing,
		AutoAdvancing:        phase == advance.PhaseScheduled || phase == advance.PhaseAdvancing,
		SectionResponseCount: s.state.SectionResponseCount(),
		Transcript:           make([]storage.Message, len(s.transcript)),
	}
	copy(v.Transcript, s.transcript)

	if !ended {
		if section, ok := s.state.CurrentSection(); ok {
			v.CurrentSection = &section
		}
		v.SectionSecondsLeft = int(s.state.SectionTimeRemaining().Seconds())
		v.TotalSecondsLeft = int(s.state.TotalTimeRemaining().Seconds())
		v.SectionComplete = s.state.IsSectionComplete()
	}
	if s.completedAt != nil || ended {
		v.Status = storage.StatusCompleted
	}
	if s.analysis != nil {
		a := *s.analysis
		v.Analysis = &a
	}
	return v
}
