package service

import (
	"context"
	"fmt"
	"time"

	"github.com/examforge/exams-service/internal/apperr"
	"github.com/examforge/exams-service/internal/config"
	"github.com/examforge/exams-service/internal/metrics"
	"github.com/examforge/exams-service/internal/model"
	"github.com/examforge/exams-service/internal/scoring"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ExamStore is the persistence boundary for exams and their question links.
type ExamStore interface {
	Create(ctx context.Context, e *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Publish(ctx context.Context, examID uuid.UUID, totalQuestions int, publishedAt time.Time) error
	AddQuestions(ctx context.Context, examID uuid.UUID, items []model.ExamQuestion) error
	ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestion, error)
	CountQuestions(ctx context.Context, examID uuid.UUID) (int, error)
}

// AttemptStore is the persistence boundary for attempts and responses.
type AttemptStore interface {
	Create(ctx context.Context, a *model.ExamAttempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamAttempt, error)
	CountByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) (int, error)
	Complete(ctx context.Context, attemptID uuid.UUID, results model.ExamResults, completedAt time.Time) error
	CreateResponse(ctx context.Context, resp *model.ExamResponse) error
	ApplyEvaluation(ctx context.Context, responseID uuid.UUID, isCorrect bool, pointsEarned int) error
	GetStatistics(ctx context.Context, examID uuid.UUID) (*model.ExamStatistics, error)
	ListCompletedByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) ([]model.ExamAttempt, error)
}

// SessionCache is the cache-aside store for ephemeral exam state. All
// methods are best-effort: a miss and a failure look the same to callers.
type SessionCache interface {
	GetActiveSession(ctx context.Context, userID uuid.UUID) (*model.ActiveSession, bool)
	SetActiveSession(ctx context.Context, sess *model.ActiveSession)
	ClearActiveSession(ctx context.Context, userID uuid.UUID)
	GetQuestionBundle(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, bool)
	SetQuestionBundle(ctx context.Context, examID uuid.UUID, questions []model.QuestionForStudent)
	GetStats(ctx context.Context, examID uuid.UUID) (*model.ExamStatistics, bool)
	SetStats(ctx context.Context, examID uuid.UUID, stats *model.ExamStatistics)
	GetResults(ctx context.Context, examID, userID uuid.UUID) ([]model.ExamAttempt, bool)
	SetResults(ctx context.Context, examID, userID uuid.UUID, attempts []model.ExamAttempt)
}

// QuestionProvider is the cross-service client for question data.
type QuestionProvider interface {
	Validate(ctx context.Context, questionIDs []uuid.UUID) (bool, error)
	FetchByIDs(ctx context.Context, questionIDs []uuid.UUID) ([]model.QuestionDetail, error)
	FetchCorrectAnswer(ctx context.Context, questionID uuid.UUID) (*uuid.UUID, error)
}

// ResultPublisher emits completed-attempt events for the live stream.
type ResultPublisher interface {
	Publish(ctx context.Context, channel string, event any) error
}

// ClientMeta carries request-level context for audit logging.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// ExamLifecycleService orchestrates the exam-attempt lifecycle: publishing,
// starting and submitting attempts, and aggregate statistics.
type ExamLifecycleService struct {
	exams     ExamStore
	attempts  AttemptStore
	cache     SessionCache
	questions QuestionProvider
	events    ResultPublisher
	log       zerolog.Logger
}

// NewExamLifecycleService creates a new ExamLifecycleService.
func NewExamLifecycleService(
	exams ExamStore,
	attempts AttemptStore,
	cache SessionCache,
	questions QuestionProvider,
	events ResultPublisher,
	log zerolog.Logger,
) *ExamLifecycleService {
	return &ExamLifecycleService{
		exams:     exams,
		attempts:  attempts,
		cache:     cache,
		questions: questions,
		events:    events,
		log:       log.With().Str("component", "exam_lifecycle").Logger(),
	}
}

// CreateExam inserts a new DRAFT exam owned by the actor.
func (s *ExamLifecycleService) CreateExam(ctx context.Context, actor model.User, req model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Title:            req.Title,
		Description:      req.Description,
		CreatorID:        actor.ID,
		MaxAttempts:      req.MaxAttempts,
		TimeLimitMinutes: req.TimeLimitMinutes,
		PassingScore:     req.PassingScore,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Str("creator_id", actor.ID.String()).
		Msg("Exam created")
	return exam, nil
}

// GetExam loads a single exam.
func (s *ExamLifecycleService) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	return s.exams.GetByID(ctx, examID)
}

// AddQuestions attaches externally-owned questions to a DRAFT exam after
// validating the IDs with the content service. An unavailable content
// service is fatal here: attaching unverified questions would let an exam
// publish with dangling references.
func (s *ExamLifecycleService) AddQuestions(ctx context.Context, examID uuid.UUID, actor model.User, req model.AddQuestionsRequest) error {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.CreatorID != actor.ID && !actor.Role.Elevated() {
		return apperr.New(apperr.KindForbidden, "only the exam creator may modify it")
	}
	if exam.Status != model.ExamStatusDraft {
		// total_questions is frozen at publish time; the question set
		// must be too.
		return apperr.New(apperr.KindInvalidState, "cannot modify questions of a published exam")
	}

	ids := make([]uuid.UUID, len(req.Questions))
	for i, q := range req.Questions {
		ids[i] = q.QuestionID
	}

	valid, err := s.questions.Validate(ctx, ids)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("content").Inc()
		return err
	}
	if !valid {
		return apperr.New(apperr.KindNotFound, "one or more questions do not exist")
	}

	items := make([]model.ExamQuestion, len(req.Questions))
	for i, q := range req.Questions {
		points := q.Points
		if points == 0 {
			points = 1
		}
		items[i] = model.ExamQuestion{
			ExamID:     examID,
			QuestionID: q.QuestionID,
			OrderNum:   q.OrderNum,
			Points:     points,
		}
	}
	return s.exams.AddQuestions(ctx, examID, items)
}

// Publish transitions DRAFT → PUBLISHED, freezing the question count.
func (s *ExamLifecycleService) Publish(ctx context.Context, examID uuid.UUID, actor model.User) (*model.Exam, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.CreatorID != actor.ID && !actor.Role.Elevated() {
		return nil, apperr.New(apperr.KindForbidden, "only the exam creator may publish it")
	}
	if exam.Status != model.ExamStatusDraft {
		return nil, apperr.New(apperr.KindConflict, "exam is already published")
	}

	count, err := s.exams.CountQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, apperr.New(apperr.KindInvalidState, "exam has no questions")
	}

	now := time.Now()
	if err := s.exams.Publish(ctx, examID, count, now); err != nil {
		return nil, err
	}

	exam.Status = model.ExamStatusPublished
	exam.TotalQuestions = count
	exam.PublishedAt = &now

	// Prewarm the question bundle so the first attempt start is a cache
	// hit. Best-effort: a cold cache just means a bus round-trip later.
	links, err := s.exams.ListQuestions(ctx, examID)
	if err == nil {
		if _, err := s.resolveQuestionBundle(ctx, examID, links); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Question bundle prewarm failed")
		}
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("questions", count).
		Msg("Exam published")
	return exam, nil
}

// StartAttempt begins a new attempt for the student.
//
// The active-session check is a best-effort guard over the cache, not a
// linearizable lock: two near-simultaneous starts can both pass it. The
// durable attempt-number uniqueness and the maxAttempts count are the hard
// backstops.
//
// When the content service is unreachable the attempt is still created
// (durable state wins) and the call returns the partial result alongside a
// ServiceDegraded error; the caller retries fetching questions.
func (s *ExamLifecycleService) StartAttempt(ctx context.Context, examID, studentID uuid.UUID, meta ClientMeta) (*model.StartAttemptResult, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, apperr.New(apperr.KindInvalidState, "exam is not published")
	}

	prior, err := s.attempts.CountByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if prior >= exam.MaxAttempts {
		return nil, apperr.New(apperr.KindLimitExceeded, "maximum attempts reached for this exam")
	}

	if sess, ok := s.cache.GetActiveSession(ctx, studentID); ok && sess.ExamID == examID {
		return nil, apperr.New(apperr.KindConflict, "attempt already in progress")
	}

	links, err := s.exams.ListQuestions(ctx, examID)
	if err != nil {
		return nil, err
	}

	attempt := &model.ExamAttempt{
		ExamID:        examID,
		StudentID:     studentID,
		AttemptNumber: prior + 1,
		// Snapshot so a later republish cannot change this attempt's
		// denominator.
		TotalQuestions: exam.TotalQuestions,
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	metrics.AttemptsStarted.Inc()
	s.log.Info().
		Str("exam_id", examID.String()).
		Str("student_id", studentID.String()).
		Int("attempt_number", attempt.AttemptNumber).
		Str("client_ip", meta.IP).
		Str("user_agent", meta.UserAgent).
		Msg("Attempt started")

	stubs := make([]model.QuestionStub, len(links))
	for i, l := range links {
		stubs[i] = model.QuestionStub{
			ExamQuestionID: l.ID,
			QuestionID:     l.QuestionID,
			OrderNum:       l.OrderNum,
			Points:         l.Points,
		}
	}
	s.cache.SetActiveSession(ctx, &model.ActiveSession{
		AttemptID:        attempt.ID,
		ExamID:           examID,
		UserID:           studentID,
		StartedAt:        attempt.StartedAt,
		TimeLimitMinutes: exam.TimeLimitMinutes,
		Questions:        stubs,
	})

	result := &model.StartAttemptResult{
		AttemptID:        attempt.ID,
		AttemptNumber:    attempt.AttemptNumber,
		TimeLimitMinutes: exam.TimeLimitMinutes,
		TotalQuestions:   attempt.TotalQuestions,
	}

	questions, err := s.resolveQuestionBundle(ctx, examID, links)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("content").Inc()
		s.log.Warn().Err(err).
			Str("attempt_id", attempt.ID.String()).
			Msg("Attempt started without question payload")
		return result, apperr.Wrap(apperr.KindServiceDegraded, "attempt created but questions unavailable, retry fetching", err)
	}
	result.Questions = questions

	return result, nil
}

// SubmitAttempt records responses, evaluates them and completes the attempt.
// Evaluation failures for individual questions are fail-safe: the response
// scores as incorrect and the submission continues.
func (s *ExamLifecycleService) SubmitAttempt(ctx context.Context, attemptID, studentID uuid.UUID, req model.SubmitAttemptRequest) (*model.SubmitAttemptResult, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.StudentID != studentID {
		return nil, apperr.New(apperr.KindForbidden, "attempt belongs to another student")
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, apperr.New(apperr.KindInvalidState, "attempt is already completed")
	}

	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	links, err := s.exams.ListQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	linkByID := make(map[uuid.UUID]model.ExamQuestion, len(links))
	for _, l := range links {
		linkByID[l.ID] = l
	}

	responses := make([]model.ExamResponse, 0, len(req.Responses))
	seen := make(map[uuid.UUID]bool, len(req.Responses))
	for _, sub := range req.Responses {
		link, ok := linkByID[sub.ExamQuestionID]
		if !ok {
			s.log.Warn().
				Str("attempt_id", attemptID.String()).
				Str("exam_question_id", sub.ExamQuestionID.String()).
				Msg("Response references unknown exam question, dropping")
			continue
		}
		// One response per question; the first occurrence wins and a
		// repeat would trip the unique index on (attempt_id, exam_question_id).
		if seen[sub.ExamQuestionID] {
			s.log.Warn().
				Str("attempt_id", attemptID.String()).
				Str("exam_question_id", sub.ExamQuestionID.String()).
				Msg("Duplicate response for question, keeping the first")
			continue
		}
		seen[sub.ExamQuestionID] = true

		resp := model.ExamResponse{
			AttemptID:        attemptID,
			ExamQuestionID:   sub.ExamQuestionID,
			SelectedOptionID: sub.SelectedOptionID,
			TimeSpentSeconds: sub.TimeSpentSeconds,
		}
		if sub.TextResponse != "" {
			text := sub.TextResponse
			resp.TextResponse = &text
		}

		if err := s.attempts.CreateResponse(ctx, &resp); err != nil {
			return nil, err
		}

		resp.IsCorrect, resp.PointsEarned = s.evaluateResponse(ctx, &resp, link)
		if err := s.attempts.ApplyEvaluation(ctx, resp.ID, resp.IsCorrect, resp.PointsEarned); err != nil {
			s.log.Error().Err(err).
				Str("response_id", resp.ID.String()).
				Msg("Persisting evaluation failed")
		}

		responses = append(responses, resp)
	}

	results := scoring.Aggregate(responses, attempt.TotalQuestions, exam.PassingThreshold())

	completedAt := time.Now()
	if err := s.attempts.Complete(ctx, attemptID, results, completedAt); err != nil {
		return nil, err
	}

	metrics.AttemptsCompleted.WithLabelValues(outcomeLabel(results.Passed)).Inc()
	s.cache.ClearActiveSession(ctx, studentID)

	event := model.AttemptResultEvent{
		ExamID:        attempt.ExamID,
		AttemptID:     attemptID,
		StudentID:     studentID,
		AttemptNumber: attempt.AttemptNumber,
		Percentage:    results.Percentage,
		Passed:        results.Passed,
		CompletedAt:   completedAt,
	}
	if err := s.events.Publish(ctx, config.CacheKey.ExamResultsChannel(attempt.ExamID), event); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Result event publish failed")
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("percentage", results.Percentage).
		Bool("passed", results.Passed).
		Msg("Attempt completed")

	return &model.SubmitAttemptResult{
		AttemptID:   attemptID,
		ExamID:      attempt.ExamID,
		Results:     results,
		CompletedAt: completedAt,
	}, nil
}

// GetStatistics aggregates COMPLETED attempts, cache-aside.
func (s *ExamLifecycleService) GetStatistics(ctx context.Context, examID uuid.UUID) (*model.ExamStatistics, error) {
	if stats, ok := s.cache.GetStats(ctx, examID); ok {
		return stats, nil
	}
	metrics.CacheMisses.WithLabelValues("exam_stats").Inc()

	if _, err := s.exams.GetByID(ctx, examID); err != nil {
		return nil, err
	}

	stats, err := s.attempts.GetStatistics(ctx, examID)
	if err != nil {
		return nil, err
	}
	s.cache.SetStats(ctx, examID, stats)
	return stats, nil
}

// GetResults returns a student's completed attempts on an exam, cache-aside.
func (s *ExamLifecycleService) GetResults(ctx context.Context, examID, studentID uuid.UUID) ([]model.ExamAttempt, error) {
	if attempts, ok := s.cache.GetResults(ctx, examID, studentID); ok {
		return attempts, nil
	}
	metrics.CacheMisses.WithLabelValues("exam_results").Inc()

	attempts, err := s.attempts.ListCompletedByExamAndStudent(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []model.ExamAttempt{}
	}
	s.cache.SetResults(ctx, examID, studentID, attempts)
	return attempts, nil
}

// evaluateResponse scores one persisted response. Ground-truth fetch
// failures evaluate to incorrect so one lost question cannot block the
// whole submission.
func (s *ExamLifecycleService) evaluateResponse(ctx context.Context, resp *model.ExamResponse, link model.ExamQuestion) (bool, int) {
	if !resp.Answered() || resp.SelectedOptionID == nil {
		return scoring.Evaluate(resp, scoring.GroundTruth{Points: link.Points})
	}

	truth, err := s.questions.FetchCorrectAnswer(ctx, link.QuestionID)
	if err != nil {
		metrics.UpstreamFailures.WithLabelValues("content").Inc()
		s.log.Warn().Err(err).
			Str("question_id", link.QuestionID.String()).
			Msg("Ground truth unavailable, scoring as incorrect")
		return false, 0
	}

	return scoring.Evaluate(resp, scoring.GroundTruth{CorrectOptionID: truth, Points: link.Points})
}

func outcomeLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}

// resolveQuestionBundle returns the student-facing question set for an
// exam, cache-aside: cached bundle if present, otherwise a bulk fetch from
// the content service merged with the exam's ordering and points.
func (s *ExamLifecycleService) resolveQuestionBundle(ctx context.Context, examID uuid.UUID, links []model.ExamQuestion) ([]model.QuestionForStudent, error) {
	if bundle, ok := s.cache.GetQuestionBundle(ctx, examID); ok {
		return bundle, nil
	}
	metrics.CacheMisses.WithLabelValues("content_questions").Inc()

	ids := make([]uuid.UUID, len(links))
	for i, l := range links {
		ids[i] = l.QuestionID
	}

	details, err := s.questions.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	detailByID := make(map[uuid.UUID]model.QuestionDetail, len(details))
	for _, d := range details {
		detailByID[d.ID] = d
	}

	bundle := make([]model.QuestionForStudent, 0, len(links))
	for _, l := range links {
		d, ok := detailByID[l.QuestionID]
		if !ok {
			s.log.Warn().
				Str("question_id", l.QuestionID.String()).
				Str("exam_id", examID.String()).
				Msg("Content service omitted a linked question")
			continue
		}
		// The correct-option reference never crosses into the
		// student-facing projection.
		bundle = append(bundle, model.QuestionForStudent{
			ExamQuestionID: l.ID,
			QuestionID:     l.QuestionID,
			Text:           d.Text,
			Type:           d.Type,
			Options:        d.Options,
			OrderNum:       l.OrderNum,
			Points:         l.Points,
		})
	}

	s.cache.SetQuestionBundle(ctx, examID, bundle)
	return bundle, nil
}
