package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/examforge/exams-service/internal/config"
	"github.com/examforge/exams-service/internal/middleware"
	"github.com/examforge/exams-service/internal/model"
	"github.com/examforge/exams-service/internal/service"
	ws "github.com/examforge/exams-service/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams completed-attempt results to exam owners in real time.
type WSHandler struct {
	rdb      *redis.Client
	svc      *service.ExamLifecycleService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, svc *service.ExamLifecycleService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		svc:      svc,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ResultStream godoc
// WS /ws/v1/exams/:exam_id/results
// Upgrades to WebSocket and forwards every completed attempt on the exam
// as it happens. Restricted to the exam creator and admins.
func (h *WSHandler) ResultStream(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	exam, err := h.svc.GetExam(c.Request.Context(), examID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
		return
	}
	if exam.CreatorID != user.ID && !user.Role.Elevated() {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the exam creator"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Pongs and result events write from different goroutines; StreamConn
	// serializes them onto the single permitted writer.
	stream := ws.NewStreamConn(conn)

	wsLog := h.log.With().
		Str("exam_id", examID.String()).
		Str("viewer_id", user.ID.String()).
		Logger()
	wsLog.Info().Msg("Result stream connected")

	ctx := c.Request.Context()
	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.ExamResultsChannel(examID))
	defer pubsub.Close()

	// Read pump: answer pings and detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := stream.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			if msg.Action == ws.ActionPing {
				stream.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	events := pubsub.Channel()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case m, ok := <-events:
			if !ok {
				return
			}
			var result model.AttemptResultEvent
			if err := json.Unmarshal([]byte(m.Payload), &result); err != nil {
				wsLog.Warn().Err(err).Msg("Malformed result event, skipping")
				continue
			}
			if err := stream.WriteTyped(ws.ResultMessage{Event: ws.EventResult, Result: result}); err != nil {
				wsLog.Debug().Err(err).Msg("Write failed, closing stream")
				return
			}
		}
	}
}
