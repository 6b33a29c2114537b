package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

type recordingTrigger struct {
	calls []models.Viewer
}

func (r *recordingTrigger) TriggerDaily(ctx context.Context, viewer models.Viewer) {
	r.calls = append(r.calls, viewer)
}

func teacherAssignment(id, className string, created time.Time) models.Assignment {
	return models.Assignment{
		ID:          id,
		AuthorID:    teacherViewer.ID,
		AuthorName:  teacherViewer.Name,
		Title:       "Bài tập " + id,
		Audience:    models.ClassAudience(className),
		Deadline:    testNow.Add(24 * time.Hour),
		CreatedAt:   created,
		Submissions: []models.Submission{},
		Comments:    []models.Comment{},
	}
}

func newAssignmentServiceForTest(repo *mockAssignmentRepo, trigger generationTrigger) *AssignmentService {
	svc := NewAssignmentService(repo, NewLeaderboardService(repo, nil, time.Minute, nil), trigger, nil, nil)
	svc.now = fixedClock
	return svc
}

func TestAssignmentServiceListFiltersAndRedacts(t *testing.T) {
	ai := quizFixture("ai1", intPtr(45))
	ai.Submissions = []models.Submission{
		{StudentID: "s2", Score: floatPtr(9)},
		{StudentID: studentViewer.ID, Score: floatPtr(4)},
	}
	repo := &mockAssignmentRepo{items: []models.Assignment{
		teacherAssignment("own", "10.1", testNow),
		teacherAssignment("other", "11.2", testNow),
		ai,
	}}
	trigger := &recordingTrigger{}
	svc := newAssignmentServiceForTest(repo, trigger)

	views, err := svc.List(context.Background(), studentViewer, models.AssignmentFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Empty(t, trigger.calls)

	var quizView models.AssignmentView
	for _, v := range views {
		if v.ID == "ai1" {
			quizView = v
		}
	}
	require.NotNil(t, quizView.QuizConfig)
	assert.Empty(t, quizView.QuizConfig.AnswerKey)
	require.Len(t, quizView.Submissions, 1)
	assert.Equal(t, studentViewer.ID, quizView.Submissions[0].StudentID)
	assert.True(t, quizView.HasSubmitted)

	aiOnly, err := svc.List(context.Background(), studentViewer, models.AssignmentFilter{Source: models.SourceAI})
	require.NoError(t, err)
	require.Len(t, aiOnly, 1)
	assert.Equal(t, "ai1", aiOnly[0].ID)
}

func TestAssignmentServiceListTriggersGenerationForPrivileged(t *testing.T) {
	repo := &mockAssignmentRepo{items: []models.Assignment{
		teacherAssignment("a", "10.1", testNow),
		teacherAssignment("b", "11.2", testNow),
	}}
	trigger := &recordingTrigger{}
	svc := newAssignmentServiceForTest(repo, trigger)

	views, err := svc.List(context.Background(), adminViewer, models.AssignmentFilter{ClassName: "11.2"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "b", views[0].ID)
	require.Len(t, trigger.calls, 1)
	assert.Equal(t, adminViewer.ID, trigger.calls[0].ID)

	// teachers keep seeing every class they can view
	views, err = svc.List(context.Background(), teacherViewer, models.AssignmentFilter{ClassName: "11.2"})
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestAssignmentServiceCreateQuiz(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentServiceForTest(repo, nil)
	req := models.CreateAssignmentRequest{
		Title:          "  Kiểm tra 15 phút ",
		Body:           "Chương 1",
		TargetAudience: "10.1",
		Deadline:       testNow.Add(2 * time.Hour),
		Quiz: &models.CreateQuizRequest{
			TotalQuestions:  2,
			DurationMinutes: intPtr(15),
			AnswerKey:       map[int]string{1: "a", 2: "D"},
		},
	}

	created, err := svc.Create(context.Background(), teacherViewer, req)
	require.NoError(t, err)
	assert.Equal(t, "Kiểm tra 15 phút", created.Title)
	assert.Equal(t, models.ClassAudience("10.1"), created.Audience)
	assert.Equal(t, map[int]string{1: "A", 2: "D"}, created.QuizConfig.AnswerKey)
	require.Len(t, repo.items, 1)

	_, err = svc.Create(context.Background(), studentViewer, req)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	bad := req
	bad.Quiz = &models.CreateQuizRequest{TotalQuestions: 2, AnswerKey: map[int]string{1: "A", 3: "B"}}
	_, err = svc.Create(context.Background(), teacherViewer, bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	past := req
	past.Deadline = testNow.Add(-time.Minute)
	_, err = svc.Create(context.Background(), teacherViewer, past)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAssignmentServiceCommentRequiresVisibility(t *testing.T) {
	repo := &mockAssignmentRepo{items: []models.Assignment{
		teacherAssignment("own", "10.1", testNow),
		teacherAssignment("other", "11.2", testNow),
	}}
	svc := newAssignmentServiceForTest(repo, nil)

	comment, err := svc.Comment(context.Background(), studentViewer, "own", models.CommentRequest{Content: " Em hỏi câu 2 "})
	require.NoError(t, err)
	assert.Equal(t, "Em hỏi câu 2", comment.Content)
	assert.Equal(t, models.RoleStudent, comment.UserRole)
	assert.Len(t, repo.items[0].Comments, 1)

	_, err = svc.Comment(context.Background(), studentViewer, "other", models.CommentRequest{Content: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAssignmentServiceAuthored(t *testing.T) {
	mine := teacherAssignment("mine", "10.1", testNow)
	theirs := teacherAssignment("theirs", "10.1", testNow)
	theirs.AuthorID = "t2"
	repo := &mockAssignmentRepo{items: []models.Assignment{mine, theirs, quizFixture("ai", nil)}}
	svc := newAssignmentServiceForTest(repo, nil)

	own, err := svc.Authored(context.Background(), teacherViewer)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "mine", own[0].ID)

	all, err := svc.Authored(context.Background(), adminViewer)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Authored(context.Background(), studentViewer)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestLeaderboardServiceRanksGeneratedQuizzes(t *testing.T) {
	first := quizFixture("ai1", nil)
	first.Submissions = []models.Submission{
		{StudentID: "s1", StudentName: "An", Score: floatPtr(6)},
		{StudentID: "s2", StudentName: "Bình", Score: floatPtr(9)},
	}
	second := quizFixture("ai2", nil)
	second.Submissions = []models.Submission{{StudentID: "s1", StudentName: "An", Score: floatPtr(5)}}
	teacherQuiz := teacherAssignment("t", "10.1", testNow)
	teacherQuiz.Submissions = []models.Submission{{StudentID: "s2", Score: floatPtr(10)}}

	repo := &mockAssignmentRepo{items: []models.Assignment{first, second, teacherQuiz}}
	board, err := NewLeaderboardService(repo, nil, time.Minute, nil).Get(context.Background())
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "s1", board[0].StudentID)
	assert.Equal(t, 11.0, board[0].TotalScore)
	assert.Equal(t, 9.0, board[1].TotalScore)
}
