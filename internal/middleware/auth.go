package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/examforge/exams-service/internal/model"
	"github.com/examforge/exams-service/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

// Claims is the JWT payload the auth service issues. Tokens are verified
// locally against the shared HS256 secret so the hot path never waits on
// the auth service.
type Claims struct {
	jwt.RegisteredClaims
	Role  model.Role `json:"role"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
}

// User converts the claims into the shared identity shape.
func (c *Claims) User() (model.User, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return model.User{}, err
	}
	return model.User{ID: id, Role: c.Role, Name: c.Name, Email: c.Email}, nil
}

// TokenValidator validates a token remotely. Used for WebSocket upgrades,
// where the connection outlives the token and must observe revocation.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.User, error)
}

// RequireAuth validates the bearer JWT and stores the claims in the context.
func RequireAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := parseToken(tokenStr, secret)
		if err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = response.ErrTokenExpired
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireRole gates a route to the given roles. Must run after RequireAuth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
	}
}

// RequireWSAuth validates a JWT from the ?token= query param against the
// auth service. Browsers cannot set headers on WebSocket upgrades.
func RequireWSAuth(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		user, err := auth.ValidateToken(c.Request.Context(), tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyClaims, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID.String()},
			Role:             user.Role,
			Name:             user.Name,
			Email:            user.Email,
		})
		c.Next()
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// GetUser resolves the authenticated user from the context claims.
func GetUser(c *gin.Context) (model.User, bool) {
	claims := GetClaims(c)
	if claims == nil {
		return model.User{}, false
	}
	user, err := claims.User()
	if err != nil {
		return model.User{}, false
	}
	return user, true
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	// Fallback for EventSource (SSE) which cannot send headers
	return c.Query("token")
}

func parseToken(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}
