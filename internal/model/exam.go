package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
)

// DefaultPassingScore is applied when an exam has no explicit threshold.
const DefaultPassingScore = 60.0

// Exam represents an exam entity. Questions are owned by the content
// service; exams only reference them through ExamQuestion links.
type Exam struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	CreatorID        uuid.UUID  `json:"creator_id"`
	Status           ExamStatus `json:"status"`
	MaxAttempts      int        `json:"max_attempts"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	PassingScore     *float64   `json:"passing_score,omitempty"`
	// TotalQuestions is stamped at publish time and immutable afterward.
	TotalQuestions int        `json:"total_questions"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// PassingThreshold returns the effective passing score in percent.
func (e *Exam) PassingThreshold() float64 {
	if e.PassingScore != nil {
		return *e.PassingScore
	}
	return DefaultPassingScore
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title            string   `json:"title" binding:"required,min=3,max=255"`
	Description      string   `json:"description" binding:"omitempty,max=2000"`
	MaxAttempts      int      `json:"max_attempts" binding:"required,min=1,max=20"`
	TimeLimitMinutes int      `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	PassingScore     *float64 `json:"passing_score" binding:"omitempty,min=0,max=100"`
}
