package interview

import "time"

// UpdateElapsedTime recomputes the elapsed-minutes counter from the clock.
func (s *State) UpdateElapsedTime() float64 {
	s.elapsedMinutes = s.now().Sub(s.startTime).Minutes()
	return s.elapsedMinutes
}

// ElapsedMinutes returns the counter as of the last UpdateElapsedTime.
func (s *State) ElapsedMinutes() float64 {
	return s.elapsedMinutes
}

// Elapsed is the wall-clock time since the session started.
func (s *State) Elapsed() time.Duration {
	return clampZero(s.now().Sub(s.startTime))
}

// SectionElapsed is the wall-clock time since the current section started.
func (s *State) SectionElapsed() time.Duration {
	return clampZero(s.now().Sub(s.sectionStartedAt))
}

// SectionTimeRemaining counts down the current section's budget, never below zero.
func (s *State) SectionTimeRemaining() time.Duration {
	section, ok := s.CurrentSection()
	if !ok {
		return 0
	}
	return clampZero(section.Budget() - s.SectionElapsed())
}

// TotalTimeRemaining counts down the interview budget, never below zero.
func (s *State) TotalTimeRemaining() time.Duration {
	total := time.Duration(s.flow.TotalDuration()) * time.Minute
	return clampZero(total - s.Elapsed())
}

func clampZero(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
