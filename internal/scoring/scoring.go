// Package scoring evaluates submitted responses against ground truth and
// aggregates per-attempt results. Pure and deterministic: no I/O here —
// ground truth is supplied by the caller, which obtained it from the
// content service.
package scoring

import (
	"github.com/examforge/exams-service/internal/model"
	"github.com/google/uuid"
)

// GroundTruth is the authoritative answer data for one exam question.
// CorrectOptionID is nil for questions that cannot be auto-scored.
type GroundTruth struct {
	CorrectOptionID *uuid.UUID
	Points          int
}

// Evaluate scores a single response. A response is correct iff its selected
// option exactly matches the ground truth option. Free-text responses are
// never auto-scored and always evaluate to incorrect pending manual review.
func Evaluate(resp *model.ExamResponse, truth GroundTruth) (isCorrect bool, pointsEarned int) {
	if !resp.Answered() {
		return false, 0
	}
	if resp.SelectedOptionID == nil {
		// Free text only.
		return false, 0
	}
	if truth.CorrectOptionID == nil {
		return false, 0
	}
	if *resp.SelectedOptionID != *truth.CorrectOptionID {
		return false, 0
	}
	return true, truth.Points
}

// Aggregate folds evaluated responses into per-attempt results.
// Percentage is correct/totalQuestions, not correct/answered: unanswered
// questions count against the student.
func Aggregate(responses []model.ExamResponse, totalQuestions int, passingScore float64) model.ExamResults {
	var results model.ExamResults

	for i := range responses {
		r := &responses[i]
		if !r.Answered() {
			continue
		}
		results.AnsweredQuestions++
		if r.IsCorrect {
			results.CorrectAnswers++
		} else {
			results.IncorrectAnswers++
		}
		results.TotalScore += r.PointsEarned
	}

	results.SkippedQuestions = totalQuestions - results.AnsweredQuestions
	if results.SkippedQuestions < 0 {
		results.SkippedQuestions = 0
	}

	if totalQuestions > 0 {
		results.Percentage = float64(results.CorrectAnswers) / float64(totalQuestions) * 100
	}
	results.Passed = results.Percentage >= passingScore

	return results
}
