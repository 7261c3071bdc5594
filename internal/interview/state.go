package interview

import (
	"strings"
	"time"

	"github.com/khushi491/interview-buddy-sub000/internal/transition"
)

const (
	// DefaultTimeCeiling ends an interview regardless of the section pointer.
	DefaultTimeCeiling = 25 * time.Minute
	// DefaultMinSectionResponses is the number of logged responses (about two Q/A pairs)
	// a section needs before it can count as complete.
	DefaultMinSectionResponses = 4

	// a section is complete once 4/5 of its budget has elapsed
	sectionCompleteNum = 4
	sectionCompleteDen = 5
)

// Candidate is the context copied into prompts.
type Candidate struct {
	Position       string `json:"position"`
	InterviewType  string `json:"interviewType"`
	CVText         string `json:"cvText,omitempty"`
	JobDescription string `json:"jobDescription,omitempty"`
}

// State is the single source of truth for where a session is and what has been said.
// It is not safe for concurrent use; the owner serializes access.
type State struct {
	flow      *Flow
	candidate Candidate

	sectionIndex     int
	currentSectionID string
	elapsedMinutes   float64
	startTime        time.Time
	sectionStartedAt time.Time
	finished         bool
	responses        []Response

	now                 func() time.Time
	detector            *transition.Detector
	timeCeiling         time.Duration
	minSectionResponses int
}

// Option configures a State.
type Option func(*State)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDetector sets the transition detector used by ShouldAutoAdvanceBasedOnResponse.
func WithDetector(d *transition.Detector) Option {
	return func(s *State) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithTimeCeiling overrides the 25 minute hard stop.
func WithTimeCeiling(d time.Duration) Option {
	return func(s *State) {
		if d > 0 {
			s.timeCeiling = d
		}
	}
}

// WithMinSectionResponses overrides the response-count gate of IsSectionComplete.
func WithMinSectionResponses(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.minSectionResponses = n
		}
	}
}

// NewState starts a session at the first section of flow.
func NewState(flow *Flow, candidate Candidate, opts ...Option) *State {
	s := &State{
		flow:                flow,
		candidate:           candidate,
		now:                 time.Now,
		detector:            transition.NewDetector(),
		timeCeiling:         DefaultTimeCeiling,
		minSectionResponses: DefaultMinSectionResponses,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startTime = s.now()
	s.sectionStartedAt = s.startTime
	if first, ok := flow.Section(0); ok {
		s.currentSectionID = first.ID
	}
	return s
}

// Flow returns the plan the state was built from.
func (s *State) Flow() *Flow {
	return s.flow
}

func (s *State) Candidate() Candidate {
	return s.candidate
}

func (s *State) SectionIndex() int {
	return s.sectionIndex
}

func (s *State) CurrentSectionID() string {
	return s.currentSectionID
}

func (s *State) StartTime() time.Time {
	return s.startTime
}

// Finished reports the terminal latch without evaluating the time ceiling.
func (s *State) Finished() bool {
	return s.finished
}

// Responses returns a copy of the log.
func (s *State) Responses() []Response {
	out := make([]Response, len(s.responses))
	copy(out, s.responses)
	return out
}

// CurrentSection returns the active section, or false when the index is out of range.
func (s *State) CurrentSection() (Section, bool) {
	return s.flow.Section(s.sectionIndex)
}

// NextSection returns the section after the active one, if any.
func (s *State) NextSection() (Section, bool) {
	return s.flow.Section(s.sectionIndex + 1)
}

// AddResponse logs a question/answer pair. Exact duplicates are ignored; a pending entry
// for the same question is filled in place when a non-empty answer arrives.
func (s *State) AddResponse(question, answer string) AddResult {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" {
		return IgnoredEmpty
	}

	for i := range s.responses {
		if s.responses[i].Question == question && s.responses[i].Answer == answer {
			return IgnoredDuplicate
		}
	}

	if answer != "" {
		for i := range s.responses {
			r := &s.responses[i]
			if r.Question == question && r.Pending() {
				r.Answer = answer
				r.CreatedAt = s.now()
				return FilledPending
			}
		}
	}

	s.responses = append(s.responses, Response{
		Question:  question,
		Answer:    answer,
		SectionID: s.currentSectionID,
		CreatedAt: s.now(),
	})
	return Appended
}

// ProgressToNextSection is the only way the section pointer moves. It returns false and
// latches finished when there is no next section or the interview is already complete.
func (s *State) ProgressToNextSection() bool {
	if s.IsInterviewComplete() {
		return false
	}
	next, ok := s.NextSection()
	if !ok {
		s.finished = true
		return false
	}
	s.sectionIndex++
	s.currentSectionID = next.ID
	s.sectionStartedAt = s.now()
	return true
}

// Finish ends the interview explicitly.
func (s *State) Finish() {
	s.finished = true
}

// IsInterviewComplete is true once finished or after the time ceiling. The result latches.
func (s *State) IsInterviewComplete() bool {
	if s.finished {
		return true
	}
	if s.now().Sub(s.startTime) > s.timeCeiling {
		s.finished = true
		return true
	}
	return false
}

// IsSectionComplete is a heuristic: enough responses logged in the section and at least
// 80% of its budget used.
func (s *State) IsSectionComplete() bool {
	section, ok := s.CurrentSection()
	if !ok {
		return false
	}
	if s.sectionResponseCount() < s.minSectionResponses {
		return false
	}
	elapsed := s.SectionElapsed()
	return elapsed*sectionCompleteDen >= section.Budget()*sectionCompleteNum
}

// ShouldAutoAdvance combines the section heuristic with the completion check.
func (s *State) ShouldAutoAdvance() bool {
	return s.IsSectionComplete() && !s.IsInterviewComplete()
}

// ShouldAutoAdvanceBasedOnResponse asks the detector about an assistant message.
func (s *State) ShouldAutoAdvanceBasedOnResponse(text string) bool {
	if s.IsInterviewComplete() {
		return false
	}
	return s.detector.Detect(text).Fired()
}

// Detector returns the transition detector in use.
func (s *State) Detector() *transition.Detector {
	return s.detector
}

// SectionResponseCount returns how many responses are tagged with the current section.
func (s *State) SectionResponseCount() int {
	return s.sectionResponseCount()
}

func (s *State) sectionResponseCount() int {
	n := 0
	for _, r := range s.responses {
		if r.SectionID == s.currentSectionID {
			n++
		}
	}
	return n
}

// Progress returns (index+1)/total as a percentage; 100 once finished.
func (s *State) Progress() float64 {
	if s.finished {
		return 100
	}
	total := s.flow.Len()
	if total == 0 {
		return 0
	}
	return float64(s.sectionIndex+1) / float64(total) * 100
}

// Snapshot is a serializable copy of the state.
type Snapshot struct {
	CurrentSectionID string     `json:"currentSectionId"`
	SectionIndex     int        `json:"currentSectionIndex"`
	TotalSections    int        `json:"totalSections"`
	ElapsedMinutes   float64    `json:"elapsedTime"`
	StartTime        time.Time  `json:"startTime"`
	Finished         bool       `json:"finished"`
	Responses        []Response `json:"responses"`
	Candidate
}

// Snapshot refreshes the elapsed counter and copies the state.
func (s *State) Snapshot() Snapshot {
	s.UpdateElapsedTime()
	return Snapshot{
		CurrentSectionID: s.currentSectionID,
		SectionIndex:     s.sectionIndex,
		TotalSections:    s.flow.Len(),
		ElapsedMinutes:   s.elapsedMinutes,
		StartTime:        s.startTime,
		Finished:         s.finished,
		Responses:        s.Responses(),
		Candidate:        s.candidate,
	}
}
