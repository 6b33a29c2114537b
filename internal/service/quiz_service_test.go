package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pedagosys-api/internal/models"
	"github.com/noah-isme/pedagosys-api/internal/quiz"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

type manualClock struct {
	tickers chan *manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{tickers: make(chan *manualTicker, 4)}
}

func (c *manualClock) Now() time.Time { return testNow }

func (c *manualClock) NewTicker(d time.Duration) quiz.Ticker {
	t := &manualTicker{ch: make(chan time.Time)}
	c.tickers <- t
	return t
}

func (c *manualClock) nextTicker(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-c.tickers:
		return tk
	case <-time.After(time.Second):
		t.Fatal("no ticker created")
		return nil
	}
}

func (tk *manualTicker) fire(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case tk.ch <- testNow:
		case <-time.After(time.Second):
			t.Fatalf("tick %d not consumed", i+1)
		}
	}
}

func newQuizServiceForTest(repo *mockAssignmentRepo, clock quiz.Clock) *QuizService {
	leaderboard := NewLeaderboardService(repo, nil, time.Minute, nil)
	return NewQuizService(repo, leaderboard, NewMetricsService(), nil, nil, QuizServiceOptions{Clock: clock})
}

func answerAll(t *testing.T, svc *QuizService, assignmentID string, choices map[int]string) {
	t.Helper()
	for q, c := range choices {
		_, err := svc.Answer(context.Background(), studentViewer, assignmentID, models.AnswerRequest{Question: q, Choice: c})
		require.NoError(t, err)
	}
}

func TestQuizServiceManualSubmitPersistsBeforeReporting(t *testing.T) {
	repo := &mockAssignmentRepo{items: []models.Assignment{quizFixture("q1", nil)}}
	svc := newQuizServiceForTest(repo, newManualClock())
	defer svc.Close()
	ctx := context.Background()

	status, err := svc.Start(ctx, studentViewer, "q1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, status.State)
	assert.Nil(t, status.RemainingSeconds)

	answerAll(t, svc, "q1", map[int]string{1: "a", 2: "B", 3: "D"})

	result, err := svc.Submit(ctx, studentViewer, "q1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.Score)
	assert.False(t, result.AlreadySubmitted)
	assert.Equal(t, models.AttemptSubmitted, result.Status.State)

	sub, ok := repo.submission("q1", studentViewer.ID)
	require.True(t, ok)
	require.NotNil(t, sub.Score)
	assert.Equal(t, 5.0, *sub.Score)

	again, err := svc.Submit(ctx, studentViewer, "q1")
	require.NoError(t, err)
	assert.True(t, again.AlreadySubmitted)
	assert.Equal(t, 5.0, again.Score)
	assert.Equal(t, 1, repo.updates)
}

func TestQuizServiceAutoSubmitMatchesManualScore(t *testing.T) {
	repo := &mockAssignmentRepo{items: []models.Assignment{quizFixture("q1", intPtr(1))}}
	clock := newManualClock()
	svc := newQuizServiceForTest(repo, clock)
	defer svc.Close()
	ctx := context.Background()

	status, err := svc.Start(ctx, studentViewer, "q1")
	require.NoError(t, err)
	require.NotNil(t, status.RemainingSeconds)
	assert.Equal(t, 60, *status.RemainingSeconds)
	ticker := clock.nextTicker(t)

	answerAll(t, svc, "q1", map[int]string{1: "A", 2: "B", 3: "D"})
	ticker.fire(t, 60)

	require.Eventually(t, func() bool {
		_, ok := repo.submission("q1", studentViewer.ID)
		return ok
	}, time.Second, 5*time.Millisecond)

	status, err = svc.Status(ctx, studentViewer, "q1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptSubmitted, status.State)
	assert.True(t, status.AutoSubmitted)
	require.NotNil(t, status.Score)
	assert.Equal(t, 5.0, *status.Score)

	_, err = svc.Answer(ctx, studentViewer, "q1", models.AnswerRequest{Question: 4, Choice: "D"})
	assert.ErrorIs(t, err, appErrors.ErrAttemptNotActive)
}

func TestQuizServiceStartRejections(t *testing.T) {
	locked := quizFixture("locked", nil)
	locked.Deadline = testNow.Add(-time.Minute)
	done := quizFixture("done", nil)
	done.Submissions = []models.Submission{{StudentID: studentViewer.ID, Score: floatPtr(8)}}
	plain := quizFixture("plain", nil)
	plain.QuizConfig = nil

	repo := &mockAssignmentRepo{items: []models.Assignment{locked, done, plain}}
	svc := newQuizServiceForTest(repo, newManualClock())
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Start(ctx, studentViewer, "locked")
	assert.ErrorIs(t, err, appErrors.ErrAssignmentLocked)
	_, err = svc.Start(ctx, studentViewer, "done")
	assert.ErrorIs(t, err, appErrors.ErrAlreadySubmitted)
	_, err = svc.Start(ctx, studentViewer, "plain")
	assert.ErrorIs(t, err, appErrors.ErrNotAQuiz)
	_, err = svc.Start(ctx, studentViewer, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	status, err := svc.Status(ctx, studentViewer, "done")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptSubmitted, status.State)
	assert.Equal(t, 8.0, *status.Score)
}

func TestQuizServiceStartAbandonsPrevious(t *testing.T) {
	repo := &mockAssignmentRepo{items: []models.Assignment{quizFixture("q1", intPtr(45)), quizFixture("q2", nil)}}
	clock := newManualClock()
	svc := newQuizServiceForTest(repo, clock)
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Start(ctx, studentViewer, "q1")
	require.NoError(t, err)
	first := clock.nextTicker(t)

	_, err = svc.Start(ctx, studentViewer, "q2")
	require.NoError(t, err)
	assert.True(t, first.stopped.Load())

	_, err = svc.Submit(ctx, studentViewer, "q1")
	assert.ErrorIs(t, err, appErrors.ErrAttemptNotFound)

	status, err := svc.Status(ctx, studentViewer, "q1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptNotStarted, status.State)
}

func TestQuizServiceStatusHidesOtherClassQuiz(t *testing.T) {
	other := quizFixture("q11", nil)
	other.AuthorID = teacherViewer.ID
	other.Audience = models.ClassAudience("11.2")
	repo := &mockAssignmentRepo{items: []models.Assignment{other}}
	svc := newQuizServiceForTest(repo, newManualClock())
	defer svc.Close()

	status, err := svc.Status(context.Background(), studentViewer, "q11")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Nil(t, status)

	status, err = svc.Status(context.Background(), teacherViewer, "q11")
	require.NoError(t, err)
	assert.Equal(t, 4, status.TotalQuestions)
}

func TestQuizServiceAbandonDiscardsAnswers(t *testing.T) {
	repo := &mockAssignmentRepo{items: []models.Assignment{quizFixture("q1", nil)}}
	svc := newQuizServiceForTest(repo, newManualClock())
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Start(ctx, studentViewer, "q1")
	require.NoError(t, err)
	answerAll(t, svc, "q1", map[int]string{1: "A"})

	require.NoError(t, svc.Abandon(ctx, studentViewer, "q1"))
	require.NoError(t, svc.Abandon(ctx, studentViewer, "q1"))

	_, err = svc.Submit(ctx, studentViewer, "q1")
	assert.ErrorIs(t, err, appErrors.ErrAttemptNotFound)
	_, ok := repo.submission("q1", studentViewer.ID)
	assert.False(t, ok)

	status, err := svc.Start(ctx, studentViewer, "q1")
	require.NoError(t, err)
	assert.Empty(t, status.Answers)
}

func TestQuizServiceAnswerValidation(t *testing.T) {
	repo := &mockAssignmentRepo{items: []models.Assignment{quizFixture("q1", nil)}}
	svc := newQuizServiceForTest(repo, newManualClock())
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Answer(ctx, studentViewer, "q1", models.AnswerRequest{Question: 1, Choice: "A"})
	assert.ErrorIs(t, err, appErrors.ErrAttemptNotFound)

	_, err = svc.Start(ctx, studentViewer, "q1")
	require.NoError(t, err)

	_, err = svc.Answer(ctx, studentViewer, "q1", models.AnswerRequest{Question: 9, Choice: "A"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidQuestion)
	_, err = svc.Answer(ctx, studentViewer, "q1", models.AnswerRequest{Question: 1})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	status, err := svc.Answer(ctx, studentViewer, "q1", models.AnswerRequest{Question: 2, Choice: "c"})
	require.NoError(t, err)
	assert.Equal(t, "C", status.Answers[2])
}

func TestQuizServiceSubmitKeepsResultWhenSaveFails(t *testing.T) {
	repo := &mockAssignmentRepo{
		items:   []models.Assignment{quizFixture("q1", nil)},
		saveErr: appErrors.ErrPersistence,
	}
	svc := newQuizServiceForTest(repo, newManualClock())
	defer svc.Close()
	ctx := context.Background()

	_, err := svc.Start(ctx, studentViewer, "q1")
	require.NoError(t, err)
	answerAll(t, svc, "q1", map[int]string{1: "A", 2: "B", 3: "C", 4: "D"})

	result, err := svc.Submit(ctx, studentViewer, "q1")
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
	require.NotNil(t, result)
	assert.Equal(t, 10.0, result.Score)
	assert.Equal(t, models.AttemptSubmitted, result.Status.State)
}
