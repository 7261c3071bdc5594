package interview

import "time"

// Response is one logged exchange. Answer stays empty while the candidate has not replied.
type Response struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	SectionID string    `json:"sectionId"`
	CreatedAt time.Time `json:"timestamp"`
}

// Pending reports whether the response is still waiting for an answer.
func (r Response) Pending() bool {
	return r.Answer == ""
}

// AddResult tells the caller what AddResponse did.
type AddResult int

const (
	Appended AddResult = iota
	FilledPending
	IgnoredDuplicate
	IgnoredEmpty
)

func (r AddResult) String() string {
	switch r {
	case Appended:
		return "appended"
	case FilledPending:
		return "filled_pending"
	case IgnoredDuplicate:
		return "ignored_duplicate"
	case IgnoredEmpty:
		return "ignored_empty"
	default:
		return "unknown"
	}
}

// Changed reports whether the log was modified.
func (r AddResult) Changed() bool {
	return r == Appended || r == FilledPending
}
