package model

import (
	"github.com/google/uuid"
)

// ExamQuestion links an exam to a question owned by the content service.
// OrderNum values are unique per exam and define presentation order.
type ExamQuestion struct {
	ID         uuid.UUID `json:"id"`
	ExamID     uuid.UUID `json:"exam_id"`
	QuestionID uuid.UUID `json:"question_id"`
	OrderNum   int       `json:"order_num"`
	Points     int       `json:"points"`
}

// QuestionType mirrors the content service's question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeFreeText       QuestionType = "FREE_TEXT"
)

// QuestionOption is a single selectable answer option.
type QuestionOption struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// QuestionDetail is the authoritative question payload fetched from the
// content service. CorrectOptionID is only present on the ground-truth
// lookup path and is never forwarded to students.
type QuestionDetail struct {
	ID              uuid.UUID        `json:"id"`
	Text            string           `json:"text"`
	Type            QuestionType     `json:"type"`
	Options         []QuestionOption `json:"options"`
	CorrectOptionID *uuid.UUID       `json:"correct_option_id,omitempty"`
}

// QuestionForStudent is the student-facing projection: question content
// merged with the exam's ordering and points, correct answer stripped.
type QuestionForStudent struct {
	ExamQuestionID uuid.UUID        `json:"exam_question_id"`
	QuestionID     uuid.UUID        `json:"question_id"`
	Text           string           `json:"text"`
	Type           QuestionType     `json:"type"`
	Options        []QuestionOption `json:"options"`
	OrderNum       int              `json:"order_num"`
	Points         int              `json:"points"`
}

// AddQuestionItem attaches one externally-owned question to an exam.
type AddQuestionItem struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	OrderNum   int       `json:"order_num" binding:"required,min=1"`
	Points     int       `json:"points" binding:"omitempty,min=1,max=100"`
}

// AddQuestionsRequest is the payload for attaching questions in bulk.
type AddQuestionsRequest struct {
	Questions []AddQuestionItem `json:"questions" binding:"required,min=1,dive"`
}
