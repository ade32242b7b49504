// Package cache implements the cache-aside store for ephemeral exam state:
// active sessions, question bundles, statistics and per-student results.
// The cache is a pure optimization — a failed Get is a miss and a failed
// Set is logged and swallowed, never surfaced to the caller.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/examforge/exams-service/internal/config"
	"github.com/examforge/exams-service/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisSessionCache is the Redis-backed SessionCache.
type RedisSessionCache struct {
	rdb       *redis.Client
	bundleTTL time.Duration
	statsTTL  time.Duration
	log       zerolog.Logger
}

// NewRedisSessionCache creates a RedisSessionCache with TTLs from config.
func NewRedisSessionCache(rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *RedisSessionCache {
	return &RedisSessionCache{
		rdb:       rdb,
		bundleTTL: cfg.QuestionBundleTTL,
		statsTTL:  cfg.StatsTTL,
		log:       log.With().Str("component", "session_cache").Logger(),
	}
}

// GetActiveSession returns the user's active exam session, if cached.
// Any cache failure reads as a miss.
func (c *RedisSessionCache) GetActiveSession(ctx context.Context, userID uuid.UUID) (*model.ActiveSession, bool) {
	var sess model.ActiveSession
	if !c.get(ctx, config.CacheKey.ActiveExamKey(userID), &sess) {
		return nil, false
	}
	return &sess, true
}

// SetActiveSession stores the session with TTL = 2x the exam time limit,
// bounding orphaned sessions when a submission never happens.
func (c *RedisSessionCache) SetActiveSession(ctx context.Context, sess *model.ActiveSession) {
	ttl := 2 * time.Duration(sess.TimeLimitMinutes) * time.Minute
	c.set(ctx, config.CacheKey.ActiveExamKey(sess.UserID), sess, ttl)
}

// ClearActiveSession removes the user's active session entry. Best-effort:
// a failed delete degrades to TTL expiry.
func (c *RedisSessionCache) ClearActiveSession(ctx context.Context, userID uuid.UUID) {
	if err := c.rdb.Del(ctx, config.CacheKey.ActiveExamKey(userID)).Err(); err != nil {
		c.log.Warn().Err(err).Str("user_id", userID.String()).Msg("Cache delete failed")
	}
}

// GetQuestionBundle returns the cached student-facing question set.
func (c *RedisSessionCache) GetQuestionBundle(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, bool) {
	var questions []model.QuestionForStudent
	if !c.get(ctx, config.CacheKey.ContentQuestionsKey(examID), &questions) {
		return nil, false
	}
	return questions, true
}

// SetQuestionBundle caches the student-facing question set.
func (c *RedisSessionCache) SetQuestionBundle(ctx context.Context, examID uuid.UUID, questions []model.QuestionForStudent) {
	c.set(ctx, config.CacheKey.ContentQuestionsKey(examID), questions, c.bundleTTL)
}

// GetStats returns cached exam statistics.
func (c *RedisSessionCache) GetStats(ctx context.Context, examID uuid.UUID) (*model.ExamStatistics, bool) {
	var stats model.ExamStatistics
	if !c.get(ctx, config.CacheKey.ExamStatsKey(examID), &stats) {
		return nil, false
	}
	return &stats, true
}

// SetStats caches exam statistics.
func (c *RedisSessionCache) SetStats(ctx context.Context, examID uuid.UUID, stats *model.ExamStatistics) {
	c.set(ctx, config.CacheKey.ExamStatsKey(examID), stats, c.statsTTL)
}

// GetResults returns a student's cached completed attempts for an exam.
func (c *RedisSessionCache) GetResults(ctx context.Context, examID, userID uuid.UUID) ([]model.ExamAttempt, bool) {
	var attempts []model.ExamAttempt
	if !c.get(ctx, config.CacheKey.ExamResultsKey(examID, userID), &attempts) {
		return nil, false
	}
	return attempts, true
}

// SetResults caches a student's completed attempts for an exam.
func (c *RedisSessionCache) SetResults(ctx context.Context, examID, userID uuid.UUID, attempts []model.ExamAttempt) {
	c.set(ctx, config.CacheKey.ExamResultsKey(examID, userID), attempts, c.statsTTL)
}

func (c *RedisSessionCache) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache entry corrupt, treating as miss")
		return false
	}
	return true
}

func (c *RedisSessionCache) set(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Error().Err(err).Str("key", key).Msg("Cache marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
