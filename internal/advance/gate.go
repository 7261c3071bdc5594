package advance

import (
	"strings"

	"github.com/khushi491/interview-buddy-sub000/internal/transition"
)

// DefaultMinReplyLength is the shortest candidate reply that can lead to an auto-advance.
const DefaultMinReplyLength = 20

// DefaultStarters are canned openers that never count as content.
var DefaultStarters = []string{
	"i'm ready",
	"i am ready",
	"ready",
	"let's start",
	"let's begin",
	"start the interview",
	"hi",
	"hello",
}

// Gate is the minimum-content check applied to the candidate's last reply.
type Gate struct {
	minLength int
	starters  map[string]struct{}
}

// NewGate builds a gate. A non-positive minLength falls back to DefaultMinReplyLength.
func NewGate(minLength int, starters []string) Gate {
	if minLength <= 0 {
		minLength = DefaultMinReplyLength
	}
	if starters == nil {
		starters = DefaultStarters
	}
	set := make(map[string]struct{}, len(starters))
	for _, s := range starters {
		set[transition.Normalize(s)] = struct{}{}
	}
	return Gate{minLength: minLength, starters: set}
}

// Allow reports whether reply carries enough content.
func (g Gate) Allow(reply string) bool {
	reply = strings.TrimSpace(reply)
	if len([]rune(reply)) < g.minLength {
		return false
	}
	_, canned := g.starters[transition.Normalize(reply)]
	return !canned
}
