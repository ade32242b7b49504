package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates exam attempt states. Transitions are one-way:
// IN_PROGRESS → COMPLETED, never reopened.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// ExamAttempt represents one student's run through an exam.
type ExamAttempt struct {
	ID            uuid.UUID     `json:"id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	StudentID     uuid.UUID     `json:"student_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	// TotalQuestions is snapshotted from the exam at start time so a later
	// republish cannot change how this attempt is scored.
	TotalQuestions    int        `json:"total_questions"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	AnsweredQuestions int        `json:"answered_questions"`
	CorrectAnswers    int        `json:"correct_answers"`
	IncorrectAnswers  int        `json:"incorrect_answers"`
	SkippedQuestions  int        `json:"skipped_questions"`
	TotalScore        int        `json:"total_score"`
	Percentage        float64    `json:"percentage"`
	Passed            bool       `json:"passed"`
}

// ExamResponse is one answered question within an attempt. Created at
// submission time and only touched once more by the evaluation step.
type ExamResponse struct {
	ID               uuid.UUID  `json:"id"`
	AttemptID        uuid.UUID  `json:"attempt_id"`
	ExamQuestionID   uuid.UUID  `json:"exam_question_id"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id,omitempty"`
	TextResponse     *string    `json:"text_response,omitempty"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`
	IsCorrect        bool       `json:"is_correct"`
	PointsEarned     int        `json:"points_earned"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Answered reports whether the response actually carries a selection or
// free text. Blank submissions count as skipped.
func (r *ExamResponse) Answered() bool {
	return r.SelectedOptionID != nil || (r.TextResponse != nil && *r.TextResponse != "")
}

// ActiveSession is the cache-only projection of an in-progress attempt.
// It expires on its own (TTL = 2x the exam time limit) as a safety net
// against orphaned sessions.
type ActiveSession struct {
	AttemptID        uuid.UUID      `json:"attempt_id"`
	ExamID           uuid.UUID      `json:"exam_id"`
	UserID           uuid.UUID      `json:"user_id"`
	StartedAt        time.Time      `json:"started_at"`
	TimeLimitMinutes int            `json:"time_limit_minutes"`
	Questions        []QuestionStub `json:"questions"`
}

// QuestionStub is the minimal per-question shape an ActiveSession keeps.
type QuestionStub struct {
	ExamQuestionID uuid.UUID `json:"exam_question_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	OrderNum       int       `json:"order_num"`
	Points         int       `json:"points"`
}

// ExamResults holds the aggregate outcome of one completed attempt.
type ExamResults struct {
	AnsweredQuestions int     `json:"answered_questions"`
	CorrectAnswers    int     `json:"correct_answers"`
	IncorrectAnswers  int     `json:"incorrect_answers"`
	SkippedQuestions  int     `json:"skipped_questions"`
	TotalScore        int     `json:"total_score"`
	Percentage        float64 `json:"percentage"`
	Passed            bool    `json:"passed"`
}

// ExamStatistics aggregates all COMPLETED attempts of an exam.
type ExamStatistics struct {
	TotalAttempts      int     `json:"total_attempts"`
	AveragePercentage  float64 `json:"average_percentage"`
	MinPercentage      float64 `json:"min_percentage"`
	MaxPercentage      float64 `json:"max_percentage"`
	PassRate           float64 `json:"pass_rate"`
	AverageTimeMinutes float64 `json:"average_time_minutes"`
}

// SubmittedResponse is one answer in a submit payload.
type SubmittedResponse struct {
	ExamQuestionID   uuid.UUID  `json:"exam_question_id" binding:"required"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id" binding:"omitempty"`
	TextResponse     string     `json:"text_response" binding:"omitempty,max=10000"`
	TimeSpentSeconds int        `json:"time_spent_seconds" binding:"omitempty,min=0"`
}

// SubmitAttemptRequest is the payload for submitting an attempt.
type SubmitAttemptRequest struct {
	Responses        []SubmittedResponse `json:"responses" binding:"dive"`
	TimeSpentSeconds int                 `json:"time_spent_seconds" binding:"omitempty,min=0"`
}

// StartAttemptResult is returned by ExamLifecycleService.StartAttempt.
type StartAttemptResult struct {
	AttemptID        uuid.UUID            `json:"attempt_id"`
	AttemptNumber    int                  `json:"attempt_number"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	TotalQuestions   int                  `json:"total_questions"`
	Questions        []QuestionForStudent `json:"questions,omitempty"`
}

// SubmitAttemptResult is returned by ExamLifecycleService.SubmitAttempt.
type SubmitAttemptResult struct {
	AttemptID   uuid.UUID   `json:"attempt_id"`
	ExamID      uuid.UUID   `json:"exam_id"`
	Results     ExamResults `json:"results"`
	CompletedAt time.Time   `json:"completed_at"`
}

// AttemptResultEvent is published to the exam's result channel when an
// attempt completes, feeding the live-results stream.
type AttemptResultEvent struct {
	ExamID        uuid.UUID `json:"exam_id"`
	AttemptID     uuid.UUID `json:"attempt_id"`
	StudentID     uuid.UUID `json:"student_id"`
	AttemptNumber int       `json:"attempt_number"`
	Percentage    float64   `json:"percentage"`
	Passed        bool      `json:"passed"`
	CompletedAt   time.Time `json:"completed_at"`
}
