package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/examforge/exams-service/internal/apperr"
	"github.com/examforge/exams-service/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeExamStore struct {
	exams      map[uuid.UUID]*model.Exam
	links      map[uuid.UUID][]model.ExamQuestion
	added      []model.ExamQuestion
	publishErr error
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{
		exams: make(map[uuid.UUID]*model.Exam),
		links: make(map[uuid.UUID][]model.ExamQuestion),
	}
}

func (f *fakeExamStore) Create(_ context.Context, e *model.Exam) error {
	e.ID = uuid.New()
	e.Status = model.ExamStatusDraft
	f.exams[e.ID] = e
	return nil
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "exam not found")
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExamStore) Publish(_ context.Context, examID uuid.UUID, totalQuestions int, publishedAt time.Time) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	e := f.exams[examID]
	e.Status = model.ExamStatusPublished
	e.TotalQuestions = totalQuestions
	e.PublishedAt = &publishedAt
	return nil
}

func (f *fakeExamStore) AddQuestions(_ context.Context, examID uuid.UUID, items []model.ExamQuestion) error {
	f.added = append(f.added, items...)
	f.links[examID] = append(f.links[examID], items...)
	return nil
}

func (f *fakeExamStore) ListQuestions(_ context.Context, examID uuid.UUID) ([]model.ExamQuestion, error) {
	return f.links[examID], nil
}

func (f *fakeExamStore) CountQuestions(_ context.Context, examID uuid.UUID) (int, error) {
	return len(f.links[examID]), nil
}

type fakeAttemptStore struct {
	attempts    map[uuid.UUID]*model.ExamAttempt
	responses   []model.ExamResponse
	evaluations map[uuid.UUID][2]int
	priorCount  int
	createErr   error
	completeErr error
	stats       *model.ExamStatistics
	statsCalls  int
	completed   []model.ExamAttempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts:    make(map[uuid.UUID]*model.ExamAttempt),
		evaluations: make(map[uuid.UUID][2]int),
	}
}

func (f *fakeAttemptStore) Create(_ context.Context, a *model.ExamAttempt) error {
	if f.createErr != nil {
		return f.createErr
	}
	a.ID = uuid.New()
	a.Status = model.AttemptStatusInProgress
	a.StartedAt = time.Now()
	f.attempts[a.ID] = a
	return nil
}

func (f *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamAttempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "attempt not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) CountByExamAndStudent(_ context.Context, _, _ uuid.UUID) (int, error) {
	return f.priorCount, nil
}

func (f *fakeAttemptStore) Complete(_ context.Context, attemptID uuid.UUID, results model.ExamResults, completedAt time.Time) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	a := f.attempts[attemptID]
	a.Status = model.AttemptStatusCompleted
	a.CompletedAt = &completedAt
	a.Percentage = results.Percentage
	a.Passed = results.Passed
	a.TotalScore = results.TotalScore
	return nil
}

func (f *fakeAttemptStore) CreateResponse(_ context.Context, resp *model.ExamResponse) error {
	resp.ID = uuid.New()
	f.responses = append(f.responses, *resp)
	return nil
}

func (f *fakeAttemptStore) ApplyEvaluation(_ context.Context, responseID uuid.UUID, isCorrect bool, pointsEarned int) error {
	correct := 0
	if isCorrect {
		correct = 1
	}
	f.evaluations[responseID] = [2]int{correct, pointsEarned}
	return nil
}

func (f *fakeAttemptStore) GetStatistics(_ context.Context, _ uuid.UUID) (*model.ExamStatistics, error) {
	f.statsCalls++
	if f.stats != nil {
		return f.stats, nil
	}
	return &model.ExamStatistics{}, nil
}

func (f *fakeAttemptStore) ListCompletedByExamAndStudent(_ context.Context, _, _ uuid.UUID) ([]model.ExamAttempt, error) {
	return f.completed, nil
}

type fakeCache struct {
	active  map[uuid.UUID]*model.ActiveSession
	bundles map[uuid.UUID][]model.QuestionForStudent
	stats   map[uuid.UUID]*model.ExamStatistics
	results map[string][]model.ExamAttempt
	cleared []uuid.UUID
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		active:  make(map[uuid.UUID]*model.ActiveSession),
		bundles: make(map[uuid.UUID][]model.QuestionForStudent),
		stats:   make(map[uuid.UUID]*model.ExamStatistics),
		results: make(map[string][]model.ExamAttempt),
	}
}

func (f *fakeCache) GetActiveSession(_ context.Context, userID uuid.UUID) (*model.ActiveSession, bool) {
	s, ok := f.active[userID]
	return s, ok
}

func (f *fakeCache) SetActiveSession(_ context.Context, sess *model.ActiveSession) {
	f.active[sess.UserID] = sess
}

func (f *fakeCache) ClearActiveSession(_ context.Context, userID uuid.UUID) {
	delete(f.active, userID)
	f.cleared = append(f.cleared, userID)
}

func (f *fakeCache) GetQuestionBundle(_ context.Context, examID uuid.UUID) ([]model.QuestionForStudent, bool) {
	b, ok := f.bundles[examID]
	return b, ok
}

func (f *fakeCache) SetQuestionBundle(_ context.Context, examID uuid.UUID, questions []model.QuestionForStudent) {
	f.bundles[examID] = questions
}

func (f *fakeCache) GetStats(_ context.Context, examID uuid.UUID) (*model.ExamStatistics, bool) {
	s, ok := f.stats[examID]
	return s, ok
}

func (f *fakeCache) SetStats(_ context.Context, examID uuid.UUID, stats *model.ExamStatistics) {
	f.stats[examID] = stats
}

func (f *fakeCache) GetResults(_ context.Context, examID, userID uuid.UUID) ([]model.ExamAttempt, bool) {
	r, ok := f.results[examID.String()+userID.String()]
	return r, ok
}

func (f *fakeCache) SetResults(_ context.Context, examID, userID uuid.UUID, attempts []model.ExamAttempt) {
	f.results[examID.String()+userID.String()] = attempts
}

type fakeQuestions struct {
	valid      bool
	validErr   error
	details    []model.QuestionDetail
	fetchErr   error
	answers    map[uuid.UUID]*uuid.UUID
	answerErr  error
	fetchCalls int
}

func (f *fakeQuestions) Validate(_ context.Context, _ []uuid.UUID) (bool, error) {
	return f.valid, f.validErr
}

func (f *fakeQuestions) FetchByIDs(_ context.Context, _ []uuid.UUID) ([]model.QuestionDetail, error) {
	f.fetchCalls++
	return f.details, f.fetchErr
}

func (f *fakeQuestions) FetchCorrectAnswer(_ context.Context, questionID uuid.UUID) (*uuid.UUID, error) {
	if f.answerErr != nil {
		return nil, f.answerErr
	}
	return f.answers[questionID], nil
}

type fakePublisher struct {
	channels []string
	events   []any
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, event any) error {
	if f.err != nil {
		return f.err
	}
	f.channels = append(f.channels, channel)
	f.events = append(f.events, event)
	return nil
}

type fixture struct {
	svc       *ExamLifecycleService
	exams     *fakeExamStore
	attempts  *fakeAttemptStore
	cache     *fakeCache
	questions *fakeQuestions
	events    *fakePublisher
}

func newFixture() *fixture {
	f := &fixture{
		exams:     newFakeExamStore(),
		attempts:  newFakeAttemptStore(),
		cache:     newFakeCache(),
		questions: &fakeQuestions{valid: true},
		events:    &fakePublisher{},
	}
	f.svc = NewExamLifecycleService(f.exams, f.attempts, f.cache, f.questions, f.events, zerolog.Nop())
	return f
}

func (f *fixture) seedExam(t *testing.T, status model.ExamStatus, creator uuid.UUID, questions int) *model.Exam {
	t.Helper()
	exam := &model.Exam{
		Title:            "Midterm",
		CreatorID:        creator,
		MaxAttempts:      2,
		TimeLimitMinutes: 30,
	}
	require.NoError(t, f.exams.Create(context.Background(), exam))
	for i := 0; i < questions; i++ {
		f.exams.links[exam.ID] = append(f.exams.links[exam.ID], model.ExamQuestion{
			ID:         uuid.New(),
			ExamID:     exam.ID,
			QuestionID: uuid.New(),
			OrderNum:   i + 1,
			Points:     1,
		})
	}
	exam.Status = status
	exam.TotalQuestions = questions
	return exam
}

func TestPublish(t *testing.T) {
	creator := uuid.New()
	teacher := model.User{ID: creator, Role: model.RoleTeacher}

	t.Run("requires at least one question", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 0)

		_, err := f.svc.Publish(context.Background(), exam.ID, teacher)
		require.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	})

	t.Run("rejects non-creator without elevated role", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 2)

		other := model.User{ID: uuid.New(), Role: model.RoleTeacher}
		_, err := f.svc.Publish(context.Background(), exam.ID, other)
		require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	})

	t.Run("allows admin who is not the creator", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 2)

		admin := model.User{ID: uuid.New(), Role: model.RoleAdmin}
		published, err := f.svc.Publish(context.Background(), exam.ID, admin)
		require.NoError(t, err)
		require.Equal(t, model.ExamStatusPublished, published.Status)
	})

	t.Run("already published is a conflict", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 2)

		_, err := f.svc.Publish(context.Background(), exam.ID, teacher)
		require.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("freezes question count and timestamp", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 3)
		for _, l := range f.exams.links[exam.ID] {
			f.questions.details = append(f.questions.details, model.QuestionDetail{
				ID:   l.QuestionID,
				Text: "q",
				Type: model.QuestionTypeMultipleChoice,
			})
		}

		published, err := f.svc.Publish(context.Background(), exam.ID, teacher)
		require.NoError(t, err)
		require.Equal(t, 3, published.TotalQuestions)
		require.NotNil(t, published.PublishedAt)

		// Publish prewarms the question bundle.
		bundle, ok := f.cache.GetQuestionBundle(context.Background(), exam.ID)
		require.True(t, ok)
		require.Len(t, bundle, 3)
	})

	t.Run("lost publish race surfaces the store conflict", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 1)
		f.exams.publishErr = apperr.New(apperr.KindConflict, "exam is already published")

		_, err := f.svc.Publish(context.Background(), exam.ID, teacher)
		require.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestAddQuestions(t *testing.T) {
	creator := uuid.New()
	teacher := model.User{ID: creator, Role: model.RoleTeacher}

	req := model.AddQuestionsRequest{Questions: []model.AddQuestionItem{
		{QuestionID: uuid.New(), OrderNum: 1},
		{QuestionID: uuid.New(), OrderNum: 2, Points: 5},
	}}

	t.Run("rejects published exams", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 1)

		err := f.svc.AddQuestions(context.Background(), exam.ID, teacher, req)
		require.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	})

	t.Run("content outage is fatal", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 0)
		f.questions.validErr = apperr.New(apperr.KindUpstreamUnavailable, "bus timeout")

		err := f.svc.AddQuestions(context.Background(), exam.ID, teacher, req)
		require.True(t, apperr.IsKind(err, apperr.KindUpstreamUnavailable))
		require.Empty(t, f.exams.added)
	})

	t.Run("unknown question ids rejected", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 0)
		f.questions.valid = false

		err := f.svc.AddQuestions(context.Background(), exam.ID, teacher, req)
		require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("defaults points to one", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 0)

		require.NoError(t, f.svc.AddQuestions(context.Background(), exam.ID, teacher, req))
		require.Len(t, f.exams.added, 2)
		require.Equal(t, 1, f.exams.added[0].Points)
		require.Equal(t, 5, f.exams.added[1].Points)
	})
}

func TestStartAttempt(t *testing.T) {
	creator := uuid.New()
	student := uuid.New()

	t.Run("unknown exam is not found", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.StartAttempt(context.Background(), uuid.New(), student, ClientMeta{})
		require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("unpublished exam rejected", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusDraft, creator, 2)

		_, err := f.svc.StartAttempt(context.Background(), exam.ID, student, ClientMeta{})
		require.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	})

	t.Run("attempt limit enforced", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 2)
		f.attempts.priorCount = 2

		_, err := f.svc.StartAttempt(context.Background(), exam.ID, student, ClientMeta{})
		require.True(t, apperr.IsKind(err, apperr.KindLimitExceeded))
	})

	t.Run("active session on same exam is a conflict", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 2)
		f.cache.SetActiveSession(context.Background(), &model.ActiveSession{
			UserID: student,
			ExamID: exam.ID,
		})

		_, err := f.svc.StartAttempt(context.Background(), exam.ID, student, ClientMeta{})
		require.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("active session on another exam does not block", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 1)
		for _, l := range f.exams.links[exam.ID] {
			f.questions.details = append(f.questions.details, model.QuestionDetail{ID: l.QuestionID})
		}
		f.cache.SetActiveSession(context.Background(), &model.ActiveSession{
			UserID: student,
			ExamID: uuid.New(),
		})

		_, err := f.svc.StartAttempt(context.Background(), exam.ID, student, ClientMeta{})
		require.NoError(t, err)
	})

	t.Run("happy path returns questions and writes the session", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 2)
		for _, l := range f.exams.links[exam.ID] {
			f.questions.details = append(f.questions.details, model.QuestionDetail{
				ID:      l.QuestionID,
				Text:    "what is",
				Type:    model.QuestionTypeMultipleChoice,
				Options: []model.QuestionOption{{ID: uuid.New(), Text: "a"}},
			})
		}

		res, err := f.svc.StartAttempt(context.Background(), exam.ID, student, ClientMeta{IP: "10.0.0.1"})
		require.NoError(t, err)
		require.Equal(t, 1, res.AttemptNumber)
		require.Equal(t, 2, res.TotalQuestions)
		require.Len(t, res.Questions, 2)

		sess, ok := f.cache.GetActiveSession(context.Background(), student)
		require.True(t, ok)
		require.Equal(t, res.AttemptID, sess.AttemptID)
		require.Equal(t, exam.ID, sess.ExamID)
		require.Len(t, sess.Questions, 2)
	})

	t.Run("cached bundle skips the content service", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 1)
		f.cache.SetQuestionBundle(context.Background(), exam.ID, []model.QuestionForStudent{{Text: "cached"}})

		res, err := f.svc.StartAttempt(context.Background(), exam.ID, student, ClientMeta{})
		require.NoError(t, err)
		require.Equal(t, "cached", res.Questions[0].Text)
		require.Zero(t, f.questions.fetchCalls)
	})

	t.Run("content outage keeps the attempt and degrades", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 2)
		f.questions.fetchErr = errors.New("bus timeout")

		res, err := f.svc.StartAttempt(context.Background(), exam.ID, student, ClientMeta{})
		require.True(t, apperr.IsKind(err, apperr.KindServiceDegraded))
		require.NotNil(t, res)
		require.Empty(t, res.Questions)
		require.Len(t, f.attempts.attempts, 1)

		// The session still exists so the client can resume.
		_, ok := f.cache.GetActiveSession(context.Background(), student)
		require.True(t, ok)
	})

	t.Run("lost create race surfaces the store conflict", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 1)
		f.attempts.createErr = apperr.New(apperr.KindConflict, "attempt already in progress")

		_, err := f.svc.StartAttempt(context.Background(), exam.ID, student, ClientMeta{})
		require.True(t, apperr.IsKind(err, apperr.KindConflict))
	})
}

func TestSubmitAttempt(t *testing.T) {
	creator := uuid.New()
	student := uuid.New()

	// seedAttempt publishes a 4-question exam and starts an attempt with the
	// first two questions answerable correctly via fakeQuestions.answers.
	seedAttempt := func(t *testing.T, f *fixture) (*model.Exam, *model.ExamAttempt) {
		t.Helper()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 4)
		f.questions.answers = make(map[uuid.UUID]*uuid.UUID)
		for _, l := range f.exams.links[exam.ID] {
			correct := uuid.New()
			f.questions.answers[l.QuestionID] = &correct
		}
		attempt := &model.ExamAttempt{
			ExamID:         exam.ID,
			StudentID:      student,
			AttemptNumber:  1,
			TotalQuestions: 4,
		}
		require.NoError(t, f.attempts.Create(context.Background(), attempt))
		return exam, attempt
	}

	answer := func(f *fixture, exam *model.Exam, idx int, correct bool) model.SubmittedResponse {
		link := f.exams.links[exam.ID][idx]
		selected := uuid.New()
		if correct {
			selected = *f.questions.answers[link.QuestionID]
		}
		return model.SubmittedResponse{ExamQuestionID: link.ID, SelectedOptionID: &selected}
	}

	t.Run("foreign attempt is forbidden", func(t *testing.T) {
		f := newFixture()
		_, attempt := seedAttempt(t, f)

		_, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, uuid.New(), model.SubmitAttemptRequest{})
		require.True(t, apperr.IsKind(err, apperr.KindForbidden))

		// The owner's attempt is untouched and can still be submitted.
		require.Equal(t, model.AttemptStatusInProgress, f.attempts.attempts[attempt.ID].Status)
		require.Empty(t, f.attempts.responses)
	})

	t.Run("completed attempt rejected", func(t *testing.T) {
		f := newFixture()
		_, attempt := seedAttempt(t, f)
		f.attempts.attempts[attempt.ID].Status = model.AttemptStatusCompleted

		_, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, model.SubmitAttemptRequest{})
		require.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	})

	t.Run("three of four correct passes at 75 percent", func(t *testing.T) {
		f := newFixture()
		exam, attempt := seedAttempt(t, f)
		req := model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
			answer(f, exam, 0, true),
			answer(f, exam, 1, true),
			answer(f, exam, 2, true),
			answer(f, exam, 3, false),
		}}

		res, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, req)
		require.NoError(t, err)
		require.Equal(t, 4, res.Results.AnsweredQuestions)
		require.Equal(t, 3, res.Results.CorrectAnswers)
		require.Equal(t, 1, res.Results.IncorrectAnswers)
		require.Zero(t, res.Results.SkippedQuestions)
		require.InDelta(t, 75.0, res.Results.Percentage, 0.001)
		require.True(t, res.Results.Passed)
	})

	t.Run("unanswered questions count as skipped", func(t *testing.T) {
		f := newFixture()
		exam, attempt := seedAttempt(t, f)
		req := model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
			answer(f, exam, 0, true),
			answer(f, exam, 1, true),
		}}

		res, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, req)
		require.NoError(t, err)
		require.Equal(t, 2, res.Results.AnsweredQuestions)
		require.Equal(t, 2, res.Results.SkippedQuestions)
		require.InDelta(t, 50.0, res.Results.Percentage, 0.001)
		require.False(t, res.Results.Passed)
	})

	t.Run("ground truth outage scores the question incorrect", func(t *testing.T) {
		f := newFixture()
		exam, attempt := seedAttempt(t, f)
		f.questions.answerErr = errors.New("bus timeout")
		req := model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
			answer(f, exam, 0, true),
		}}

		res, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, req)
		require.NoError(t, err)
		require.Zero(t, res.Results.CorrectAnswers)
		require.Equal(t, 1, res.Results.IncorrectAnswers)
	})

	t.Run("free text is persisted but never auto-correct", func(t *testing.T) {
		f := newFixture()
		exam, attempt := seedAttempt(t, f)
		req := model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
			{ExamQuestionID: f.exams.links[exam.ID][0].ID, TextResponse: "an essay answer"},
		}}

		res, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, req)
		require.NoError(t, err)
		require.Equal(t, 1, res.Results.AnsweredQuestions)
		require.Zero(t, res.Results.CorrectAnswers)
		require.Len(t, f.attempts.responses, 1)
		require.NotNil(t, f.attempts.responses[0].TextResponse)
	})

	t.Run("unknown exam question ids are dropped", func(t *testing.T) {
		f := newFixture()
		exam, attempt := seedAttempt(t, f)
		req := model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
			answer(f, exam, 0, true),
			{ExamQuestionID: uuid.New()},
		}}

		res, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, req)
		require.NoError(t, err)
		require.Len(t, f.attempts.responses, 1)
		require.Equal(t, 1, res.Results.AnsweredQuestions)
	})

	t.Run("duplicate responses keep the first occurrence", func(t *testing.T) {
		f := newFixture()
		exam, attempt := seedAttempt(t, f)
		req := model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
			answer(f, exam, 0, true),
			answer(f, exam, 0, false),
			answer(f, exam, 0, false),
		}}

		res, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, req)
		require.NoError(t, err)
		require.Len(t, f.attempts.responses, 1)
		require.Equal(t, 1, res.Results.AnsweredQuestions)
		require.Equal(t, 1, res.Results.CorrectAnswers)
		require.Equal(t, model.AttemptStatusCompleted, f.attempts.attempts[attempt.ID].Status)
	})

	t.Run("clears the active session and publishes the result", func(t *testing.T) {
		f := newFixture()
		exam, attempt := seedAttempt(t, f)
		f.cache.SetActiveSession(context.Background(), &model.ActiveSession{
			UserID: student, ExamID: exam.ID, AttemptID: attempt.ID,
		})
		req := model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
			answer(f, exam, 0, true),
		}}

		_, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, req)
		require.NoError(t, err)

		_, ok := f.cache.GetActiveSession(context.Background(), student)
		require.False(t, ok)
		require.Len(t, f.events.events, 1)
		ev := f.events.events[0].(model.AttemptResultEvent)
		require.Equal(t, attempt.ID, ev.AttemptID)
		require.Equal(t, exam.ID, ev.ExamID)
	})

	t.Run("publish failure does not fail the submission", func(t *testing.T) {
		f := newFixture()
		exam, attempt := seedAttempt(t, f)
		f.events.err = errors.New("redis down")
		req := model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
			answer(f, exam, 0, true),
		}}

		_, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, req)
		require.NoError(t, err)
	})

	t.Run("lost completion race surfaces the store error", func(t *testing.T) {
		f := newFixture()
		_, attempt := seedAttempt(t, f)
		f.attempts.completeErr = apperr.New(apperr.KindInvalidState, "attempt is not in progress")

		_, err := f.svc.SubmitAttempt(context.Background(), attempt.ID, student, model.SubmitAttemptRequest{})
		require.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	})
}

func TestGetStatistics(t *testing.T) {
	creator := uuid.New()

	t.Run("cache hit skips the store", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 1)
		f.cache.SetStats(context.Background(), exam.ID, &model.ExamStatistics{TotalAttempts: 7})

		stats, err := f.svc.GetStatistics(context.Background(), exam.ID)
		require.NoError(t, err)
		require.Equal(t, 7, stats.TotalAttempts)
		require.Zero(t, f.attempts.statsCalls)
	})

	t.Run("miss loads, returns and caches", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 1)
		f.attempts.stats = &model.ExamStatistics{TotalAttempts: 3, AveragePercentage: 80}

		stats, err := f.svc.GetStatistics(context.Background(), exam.ID)
		require.NoError(t, err)
		require.Equal(t, 3, stats.TotalAttempts)

		cached, ok := f.cache.GetStats(context.Background(), exam.ID)
		require.True(t, ok)
		require.Equal(t, stats, cached)
	})

	t.Run("no attempts yields zero values", func(t *testing.T) {
		f := newFixture()
		exam := f.seedExam(t, model.ExamStatusPublished, creator, 1)

		stats, err := f.svc.GetStatistics(context.Background(), exam.ID)
		require.NoError(t, err)
		require.Zero(t, stats.TotalAttempts)
		require.Zero(t, stats.AveragePercentage)
	})

	t.Run("unknown exam is not found", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.GetStatistics(context.Background(), uuid.New())
		require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})
}

func TestGetResults(t *testing.T) {
	f := newFixture()
	examID := uuid.New()
	student := uuid.New()
	f.attempts.completed = []model.ExamAttempt{{ID: uuid.New(), Percentage: 90, Passed: true}}

	res, err := f.svc.GetResults(context.Background(), examID, student)
	require.NoError(t, err)
	require.Len(t, res, 1)

	cached, ok := f.cache.GetResults(context.Background(), examID, student)
	require.True(t, ok)
	require.Equal(t, res, cached)
}
