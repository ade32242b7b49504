package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// requestQueuePrefix namespaces the per-subject request lists.
	requestQueuePrefix = "rpc:"
	// replyKeyPrefix namespaces the per-request reply lists.
	replyKeyPrefix = "rpc:reply:"
)

// ReplyTTL is the expiry responders must set on the ReplyTo list when
// pushing a reply. The requester may have timed out and walked away, and
// EXPIRE from the requester side cannot work because the key does not
// exist until the reply lands.
const ReplyTTL = 30 * time.Second

// envelope is the wire format pushed onto a subject's request list.
// The responder RPushes its reply onto the ReplyTo list and applies
// ReplyTTL to it.
type envelope struct {
	ReplyTo string          `json:"reply_to"`
	Body    json.RawMessage `json:"body"`
}

// RedisBus implements Requester over Redis lists: requests are RPushed to
// rpc:{subject}, replies awaited with BLPOP on a unique reply key. The
// responding service pops requests with BLPOP on its subject list.
type RedisBus struct {
	rdb     *redis.Client
	timeout time.Duration
	log     zerolog.Logger
}

// NewRedisBus creates a RedisBus with the given round-trip timeout.
func NewRedisBus(rdb *redis.Client, timeout time.Duration, log zerolog.Logger) *RedisBus {
	return &RedisBus{
		rdb:     rdb,
		timeout: timeout,
		log:     log.With().Str("component", "redis_bus").Logger(),
	}
}

// Request sends req on the subject's queue and blocks for the reply.
// Returns ErrTimeout when the responder does not answer in time.
func (b *RedisBus) Request(ctx context.Context, subject string, req any, reply any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	replyTo := replyKeyPrefix + uuid.New().String()
	env, err := json.Marshal(envelope{ReplyTo: replyTo, Body: body})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := b.rdb.RPush(ctx, requestQueuePrefix+subject, env).Err(); err != nil {
		return fmt.Errorf("push request: %w", err)
	}

	// Bound the reply wait by the bus timeout regardless of the caller's
	// context deadline.
	item, err := b.rdb.BLPop(ctx, b.timeout, replyTo).Result()
	if err != nil {
		// Drop any reply that raced in between the pop returning and this
		// cleanup. A reply arriving later still expires on its own because
		// responders apply ReplyTTL when pushing.
		b.rdb.Del(context.WithoutCancel(ctx), replyTo)

		if err == redis.Nil {
			b.log.Warn().Str("subject", subject).Msg("Request timed out")
			return ErrTimeout
		}
		return fmt.Errorf("await reply: %w", err)
	}

	// BLPop returns [key, value].
	if len(item) < 2 {
		return fmt.Errorf("malformed reply for subject %s", subject)
	}

	if reply == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(item[1]), reply); err != nil {
		return fmt.Errorf("unmarshal reply: %w", err)
	}
	return nil
}

// Publish emits an event on a Redis PubSub channel.
func (b *RedisBus) Publish(ctx context.Context, channel string, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.rdb.Publish(ctx, channel, raw).Err()
}
