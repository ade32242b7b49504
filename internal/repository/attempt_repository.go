package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/examforge/exams-service/internal/apperr"
	"github.com/examforge/exams-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles exam attempt and response data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new IN_PROGRESS attempt. The unique
// (exam_id, student_id, attempt_number) index is the durable backstop
// against two racing starts claiming the same attempt number: the loser
// gets Conflict.
func (r *AttemptRepository) Create(ctx context.Context, a *model.ExamAttempt) error {
	a.Status = model.AttemptStatusInProgress
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_attempts (exam_id, student_id, attempt_number, status, total_questions)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, started_at`,
		a.ExamID, a.StudentID, a.AttemptNumber, a.Status, a.TotalQuestions,
	).Scan(&a.ID, &a.StartedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Wrap(apperr.KindConflict, "attempt already in progress", err)
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a := &model.ExamAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, attempt_number, status, total_questions,
		        started_at, completed_at, answered_questions, correct_answers,
		        incorrect_answers, skipped_questions, total_score, percentage, passed
		 FROM exam_attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.AttemptNumber, &a.Status, &a.TotalQuestions,
		&a.StartedAt, &a.CompletedAt, &a.AnsweredQuestions, &a.CorrectAnswers,
		&a.IncorrectAnswers, &a.SkippedQuestions, &a.TotalScore, &a.Percentage, &a.Passed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "attempt not found")
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// CountByExamAndStudent returns how many attempts the student has made on
// the exam, regardless of status.
func (r *AttemptRepository) CountByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_attempts WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return count, nil
}

// Complete transitions IN_PROGRESS → COMPLETED and persists the aggregates.
// The status check is part of the UPDATE so two concurrent submits cannot
// both win; the loser gets InvalidState.
func (r *AttemptRepository) Complete(ctx context.Context, attemptID uuid.UUID, results model.ExamResults, completedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_attempts
		 SET status = $1, completed_at = $2, answered_questions = $3,
		     correct_answers = $4, incorrect_answers = $5, skipped_questions = $6,
		     total_score = $7, percentage = $8, passed = $9
		 WHERE id = $10 AND status = $11`,
		model.AttemptStatusCompleted, completedAt, results.AnsweredQuestions,
		results.CorrectAnswers, results.IncorrectAnswers, results.SkippedQuestions,
		results.TotalScore, results.Percentage, results.Passed,
		attemptID, model.AttemptStatusInProgress)
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindInvalidState, "attempt is not in progress")
	}
	return nil
}

// CreateResponse inserts one pre-evaluation response row.
func (r *AttemptRepository) CreateResponse(ctx context.Context, resp *model.ExamResponse) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_responses (attempt_id, exam_question_id, selected_option_id, text_response, time_spent_seconds)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		resp.AttemptID, resp.ExamQuestionID, resp.SelectedOptionID, resp.TextResponse, resp.TimeSpentSeconds,
	).Scan(&resp.ID, &resp.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Wrap(apperr.KindConflict, "response already recorded for question", err)
		}
		return fmt.Errorf("create response: %w", err)
	}
	return nil
}

// ApplyEvaluation records the scoring outcome on a stored response. This is
// the only mutation a response ever sees after creation.
func (r *AttemptRepository) ApplyEvaluation(ctx context.Context, responseID uuid.UUID, isCorrect bool, pointsEarned int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_responses SET is_correct = $1, points_earned = $2 WHERE id = $3`,
		isCorrect, pointsEarned, responseID)
	if err != nil {
		return fmt.Errorf("apply evaluation: %w", err)
	}
	return nil
}

// GetStatistics aggregates all COMPLETED attempts of an exam in one query.
// Returns zeros when no completed attempts exist.
func (r *AttemptRepository) GetStatistics(ctx context.Context, examID uuid.UUID) (*model.ExamStatistics, error) {
	stats := &model.ExamStatistics{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(AVG(percentage), 0),
		        COALESCE(MIN(percentage), 0),
		        COALESCE(MAX(percentage), 0),
		        COALESCE(AVG(CASE WHEN passed THEN 1.0 ELSE 0.0 END), 0),
		        COALESCE(AVG(EXTRACT(EPOCH FROM completed_at - started_at) / 60), 0)
		 FROM exam_attempts
		 WHERE exam_id = $1 AND status = $2`,
		examID, model.AttemptStatusCompleted,
	).Scan(&stats.TotalAttempts, &stats.AveragePercentage, &stats.MinPercentage,
		&stats.MaxPercentage, &stats.PassRate, &stats.AverageTimeMinutes)
	if err != nil {
		return nil, fmt.Errorf("exam statistics: %w", err)
	}
	return stats, nil
}

// ListCompletedByExamAndStudent returns a student's completed attempts on
// an exam, newest first.
func (r *AttemptRepository) ListCompletedByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) ([]model.ExamAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, attempt_number, status, total_questions,
		        started_at, completed_at, answered_questions, correct_answers,
		        incorrect_answers, skipped_questions, total_score, percentage, passed
		 FROM exam_attempts
		 WHERE exam_id = $1 AND student_id = $2 AND status = $3
		 ORDER BY completed_at DESC`,
		examID, studentID, model.AttemptStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []model.ExamAttempt
	for rows.Next() {
		var a model.ExamAttempt
		if err := rows.Scan(&a.ID, &a.ExamID, &a.StudentID, &a.AttemptNumber, &a.Status, &a.TotalQuestions,
			&a.StartedAt, &a.CompletedAt, &a.AnsweredQuestions, &a.CorrectAnswers,
			&a.IncorrectAnswers, &a.SkippedQuestions, &a.TotalScore, &a.Percentage, &a.Passed); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
