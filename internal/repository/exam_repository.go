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

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

// ExamRepository handles exam and exam-question data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// Create inserts a new exam as DRAFT.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	e.Status = model.ExamStatusDraft
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, creator_id, status, max_attempts, time_limit_minutes, passing_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.CreatorID, e.Status, e.MaxAttempts, e.TimeLimitMinutes, e.PassingScore,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, creator_id, status, max_attempts,
		        time_limit_minutes, passing_score, total_questions, published_at,
		        created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Description, &e.CreatorID, &e.Status, &e.MaxAttempts,
		&e.TimeLimitMinutes, &e.PassingScore, &e.TotalQuestions, &e.PublishedAt,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.KindNotFound, "exam not found")
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// Publish flips DRAFT → PUBLISHED, stamps published_at and freezes the
// question count. The status check sits in the WHERE clause so exactly one
// concurrent publish wins; the loser sees zero rows.
func (r *ExamRepository) Publish(ctx context.Context, examID uuid.UUID, totalQuestions int, publishedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET status = $1, total_questions = $2, published_at = $3, updated_at = NOW()
		 WHERE id = $4 AND status = $5`,
		model.ExamStatusPublished, totalQuestions, publishedAt, examID, model.ExamStatusDraft)
	if err != nil {
		return fmt.Errorf("publish exam: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindConflict, "exam is already published")
	}
	return nil
}

// AddQuestions bulk-inserts exam-question links using UNNEST. A unique
// violation on (exam_id, order_num) surfaces as Conflict.
func (r *ExamRepository) AddQuestions(ctx context.Context, examID uuid.UUID, items []model.ExamQuestion) error {
	n := len(items)
	questionIDs := make([]uuid.UUID, n)
	orderNums := make([]int, n)
	points := make([]int, n)
	for i, item := range items {
		questionIDs[i] = item.QuestionID
		orderNums[i] = item.OrderNum
		points[i] = item.Points
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_questions (exam_id, question_id, order_num, points)
		 SELECT $1, u.question_id, u.order_num, u.points
		 FROM UNNEST($2::uuid[], $3::int[], $4::int[]) AS u (question_id, order_num, points)`,
		examID, questionIDs, orderNums, points)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperr.Wrap(apperr.KindConflict, "duplicate question order for this exam", err)
		}
		return fmt.Errorf("add questions: %w", err)
	}
	return nil
}

// ListQuestions retrieves an exam's question links ordered by order_num.
func (r *ExamRepository) ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_id, order_num, points
		 FROM exam_questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []model.ExamQuestion
	for rows.Next() {
		var q model.ExamQuestion
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionID, &q.OrderNum, &q.Points); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountQuestions returns the number of questions attached to an exam.
func (r *ExamRepository) CountQuestions(ctx context.Context, examID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_questions WHERE exam_id = $1`, examID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}
