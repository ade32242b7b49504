package websocket

import "github.com/examforge/exams-service/internal/model"

// Actions (Client -> Server)

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// Events (Server -> Client)

type Event string

const (
	EventResult Event = "result"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// ResultMessage streams one completed attempt to subscribed viewers.
type ResultMessage struct {
	Event  Event                    `json:"event"`
	Result model.AttemptResultEvent `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
