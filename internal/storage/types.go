package storage

import (
	"time"

	"github.com/khushi491/interview-buddy-sub000/internal/analysis"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// InterviewRecord is the persisted view of one interview.
type InterviewRecord struct {
	ID               string  `json:"id" bson:"_id"`
	Status           Status  `json:"status" bson:"status"`
	Position         string  `json:"position" bson:"position"`
	InterviewType    string  `json:"interviewType" bson:"interview_type"`
	Modality         string  `json:"modality" bson:"modality"`
	Difficulty       string  `json:"difficulty" bson:"difficulty"`
	SectionIndex     int     `json:"currentSectionIndex" bson:"section_index"`
	CurrentSectionID string  `json:"currentSectionId" bson:"current_section_id"`
	ElapsedMinutes   float64 `json:"elapsedTime" bson:"elapsed_minutes"`

	Responses  []QA               `json:"responses" bson:"responses"`
	Transcript []Message          `json:"transcript" bson:"transcript"`
	Analysis   *analysis.Analysis `json:"analysis,omitempty" bson:"analysis,omitempty"`

	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updated_at"`
	// Version grows with every write; stores reject anything not newer than what they hold.
	Version int64 `json:"version" bson:"version"`
}

// QA is one logged question and answer.
type QA struct {
	Question  string    `json:"question" bson:"question"`
	Answer    string    `json:"answer" bson:"answer"`
	SectionID string    `json:"sectionId" bson:"section_id"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Message is one transcript turn.
type Message struct {
	ID        string    `json:"id" bson:"id"`
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	SectionID string    `json:"sectionId,omitempty" bson:"section_id,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}
