// Package messaging provides the request/reply abstraction the exams
// service uses to reach the content and auth services. The transport is
// deliberately behind an interface; production wires the Redis
// implementation, tests wire fakes.
package messaging

import (
	"context"
	"errors"
)

// Request/reply subjects served by the other platform services.
const (
	SubjectQuestionsValidate  = "content.questions.validate"
	SubjectQuestionsFindByIDs = "content.questions.findByIds"
	SubjectQuestionFindByID   = "content.question.findById"
	SubjectAuthValidateToken  = "auth.validate.token"
	SubjectAuthUserFindByID   = "auth.user.findById"
)

// ErrTimeout is returned when no reply arrives within the bus timeout.
var ErrTimeout = errors.New("messaging: request timed out")

// Requester performs a request/reply round-trip with a bounded timeout.
// req is marshaled as the request payload; the reply payload is
// unmarshaled into reply, which must be a pointer.
type Requester interface {
	Request(ctx context.Context, subject string, req any, reply any) error
}

// Publisher emits fire-and-forget events on a named channel. Used for the
// live-results stream; delivery is at-most-once to currently connected
// subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel string, event any) error
}
