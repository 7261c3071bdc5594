// Package interview holds the interview plan and the per-session state manager.
package interview

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Difficulty of an interview.
type Difficulty string

const (
	DifficultyEntry  Difficulty = "entry"
	DifficultyMid    Difficulty = "mid"
	DifficultySenior Difficulty = "senior"
)

// Valid reports whether d is one of the known tags.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEntry, DifficultyMid, DifficultySenior:
		return true
	}
	return false
}

// Section is one named phase of an interview.
type Section struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Order             int      `json:"order"`
	EstimatedDuration int      `json:"estimatedDuration"` // minutes
	FocusAreas        []string `json:"focusAreas"`
}

// Budget returns the section's estimated duration.
func (s Section) Budget() time.Duration {
	return time.Duration(s.EstimatedDuration) * time.Minute
}

// Flow is the ordered, immutable plan of sections.
type Flow struct {
	sections      []Section
	totalDuration int
	difficulty    Difficulty
	focus         string
}

// FlowSpec is the raw input for NewFlow.
type FlowSpec struct {
	Sections      []Section
	TotalDuration int // minutes, 0 means sum of section budgets
	Difficulty    Difficulty
	Focus         string
}

var ErrInvalidFlow = errors.New("invalid interview flow")

// NewFlow validates the FlowSpec and returns an immutable Flow. Sections are sorted by Order.
func NewFlow(spec FlowSpec) (*Flow, error) {
	if len(spec.Sections) == 0 {
		return nil, fmt.Errorf("%w: at least one section is required", ErrInvalidFlow)
	}

	sections := make([]Section, len(spec.Sections))
	for i, s := range spec.Sections {
		s.FocusAreas = append([]string(nil), s.FocusAreas...)
		sections[i] = s
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})

	seen := make(map[string]bool, len(sections))
	sum := 0
	for i, s := range sections {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("%w: section %d has empty id", ErrInvalidFlow, i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: duplicate section id %q", ErrInvalidFlow, s.ID)
		}
		seen[s.ID] = true
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("%w: section %q has empty title", ErrInvalidFlow, s.ID)
		}
		if s.EstimatedDuration <= 0 {
			return nil, fmt.Errorf("%w: section %q must have a positive duration", ErrInvalidFlow, s.ID)
		}
		if i > 0 && s.Order == sections[i-1].Order {
			return nil, fmt.Errorf("%w: sections %q and %q share order %d", ErrInvalidFlow, sections[i-1].ID, s.ID, s.Order)
		}
		sum += s.EstimatedDuration
	}

	total := spec.TotalDuration
	if total < 0 {
		return nil, fmt.Errorf("%w: total duration cannot be negative", ErrInvalidFlow)
	}
	if total == 0 {
		total = sum
	}

	difficulty := spec.Difficulty
	if difficulty == "" {
		difficulty = DifficultyMid
	}
	if !difficulty.Valid() {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidFlow, difficulty)
	}

	return &Flow{
		sections:      sections,
		totalDuration: total,
		difficulty:    difficulty,
		focus:         spec.Focus,
	}, nil
}

// Sections returns a copy of the ordered sections.
func (f *Flow) Sections() []Section {
	out := make([]Section, len(f.sections))
	copy(out, f.sections)
	return out
}

// Len returns the number of sections.
func (f *Flow) Len() int {
	return len(f.sections)
}

// Section returns the section at i.
func (f *Flow) Section(i int) (Section, bool) {
	if i < 0 || i >= len(f.sections) {
		return Section{}, false
	}
	return f.sections[i], true
}

// TotalDuration returns the interview budget in minutes.
func (f *Flow) TotalDuration() int {
	return f.totalDuration
}

func (f *Flow) Difficulty() Difficulty {
	return f.difficulty
}

func (f *Flow) Focus() string {
	return f.focus
}
