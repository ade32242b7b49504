package gateway

import (
	"context"

	"github.com/examforge/exams-service/internal/apperr"
	"github.com/examforge/exams-service/internal/messaging"
	"github.com/examforge/exams-service/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthGateway resolves tokens and user identities against the auth service.
// The HTTP middleware verifies JWTs locally; this gateway is used where a
// remote check is required (long-lived WebSocket connections that must
// observe revocation) and for user lookups.
type AuthGateway struct {
	bus messaging.Requester
	log zerolog.Logger
}

// NewAuthGateway creates a new AuthGateway.
func NewAuthGateway(bus messaging.Requester, log zerolog.Logger) *AuthGateway {
	return &AuthGateway{
		bus: bus,
		log: log.With().Str("component", "auth_gateway").Logger(),
	}
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type validateTokenReply struct {
	Valid bool        `json:"valid"`
	User  *model.User `json:"user,omitempty"`
}

type userFindByIDRequest struct {
	ID uuid.UUID `json:"id"`
}

// ValidateToken checks a bearer token against the auth service and
// returns the resolved user when valid.
func (g *AuthGateway) ValidateToken(ctx context.Context, token string) (*model.User, error) {
	var reply validateTokenReply
	err := g.bus.Request(ctx, messaging.SubjectAuthValidateToken, validateTokenRequest{Token: token}, &reply)
	if err != nil {
		g.log.Warn().Err(err).Msg("Token validation failed")
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "auth service unavailable", err)
	}
	if !reply.Valid || reply.User == nil {
		return nil, apperr.New(apperr.KindForbidden, "token is not valid")
	}
	return reply.User, nil
}

// FindUserByID resolves a user's identity, role and contact data.
func (g *AuthGateway) FindUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := g.bus.Request(ctx, messaging.SubjectAuthUserFindByID, userFindByIDRequest{ID: id}, &user)
	if err != nil {
		g.log.Warn().Err(err).Str("user_id", id.String()).Msg("User lookup failed")
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "auth service unavailable", err)
	}
	return &user, nil
}
