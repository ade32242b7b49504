package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ActiveExamKey returns the cache key for a user's active exam session.
func (r *CacheKeyStruct) ActiveExamKey(userID uuid.UUID) string {
	return fmt.Sprintf("active_exam:%s", userID)
}

// ContentQuestionsKey returns the cache key for an exam's question bundle.
func (r *CacheKeyStruct) ContentQuestionsKey(examID uuid.UUID) string {
	return fmt.Sprintf("content_questions:%s", examID)
}

// ExamStatsKey returns the cache key for an exam's aggregate statistics.
func (r *CacheKeyStruct) ExamStatsKey(examID uuid.UUID) string {
	return fmt.Sprintf("exam_stats:%s", examID)
}

// ExamResultsKey returns the cache key for a student's results on an exam.
func (r *CacheKeyStruct) ExamResultsKey(examID, userID uuid.UUID) string {
	return fmt.Sprintf("exam_results:%s:%s", examID, userID)
}

// ExamResultsChannel returns the Redis PubSub channel carrying completed
// attempt events for an exam.
func (r *CacheKeyStruct) ExamResultsChannel(examID uuid.UUID) string {
	return fmt.Sprintf("exam:%s:results", examID)
}

var CacheKey = NewCacheKeyStruct()
