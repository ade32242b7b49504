// Package gateway holds the cross-service clients. Both gateways speak the
// request/reply bus and translate transport failures into the
// UpstreamUnavailable error kind so callers can decide whether a failure is
// fatal or degradable.
package gateway

import (
	"context"

	"github.com/examforge/exams-service/internal/apperr"
	"github.com/examforge/exams-service/internal/messaging"
	"github.com/examforge/exams-service/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuestionGateway validates and fetches questions from the content service.
type QuestionGateway struct {
	bus messaging.Requester
	log zerolog.Logger
}

// NewQuestionGateway creates a new QuestionGateway.
func NewQuestionGateway(bus messaging.Requester, log zerolog.Logger) *QuestionGateway {
	return &QuestionGateway{
		bus: bus,
		log: log.With().Str("component", "question_gateway").Logger(),
	}
}

type validateRequest struct {
	QuestionIDs []uuid.UUID `json:"questionIds"`
}

type validateReply struct {
	Valid bool `json:"valid"`
}

type findByIDsRequest struct {
	QuestionIDs []uuid.UUID `json:"questionIds"`
}

type findByIDsReply struct {
	Questions []model.QuestionDetail `json:"questions"`
}

type findByIDRequest struct {
	ID uuid.UUID `json:"id"`
}

// Validate asks the content service whether every ID references an
// existing question.
func (g *QuestionGateway) Validate(ctx context.Context, questionIDs []uuid.UUID) (bool, error) {
	var reply validateReply
	err := g.bus.Request(ctx, messaging.SubjectQuestionsValidate, validateRequest{QuestionIDs: questionIDs}, &reply)
	if err != nil {
		g.log.Warn().Err(err).Int("count", len(questionIDs)).Msg("Question validation failed")
		return false, apperr.Wrap(apperr.KindUpstreamUnavailable, "content service unavailable", err)
	}
	return reply.Valid, nil
}

// FetchByIDs bulk-fetches full question detail. Correct-option references
// are stripped before the result reaches any student-facing payload.
func (g *QuestionGateway) FetchByIDs(ctx context.Context, questionIDs []uuid.UUID) ([]model.QuestionDetail, error) {
	var reply findByIDsReply
	err := g.bus.Request(ctx, messaging.SubjectQuestionsFindByIDs, findByIDsRequest{QuestionIDs: questionIDs}, &reply)
	if err != nil {
		g.log.Warn().Err(err).Int("count", len(questionIDs)).Msg("Question fetch failed")
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "content service unavailable", err)
	}
	return reply.Questions, nil
}

// FetchCorrectAnswer returns the ground-truth option ID for a question.
// A nil option ID means the question has no auto-scorable answer
// (free-text questions).
func (g *QuestionGateway) FetchCorrectAnswer(ctx context.Context, questionID uuid.UUID) (*uuid.UUID, error) {
	var reply model.QuestionDetail
	err := g.bus.Request(ctx, messaging.SubjectQuestionFindByID, findByIDRequest{ID: questionID}, &reply)
	if err != nil {
		g.log.Warn().Err(err).Str("question_id", questionID.String()).Msg("Ground truth fetch failed")
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "content service unavailable", err)
	}
	return reply.CorrectOptionID, nil
}
