package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
)

type mockGradeRepo struct {
	mu      sync.Mutex
	records map[string]models.GradeRecord
	updates int
}

func (m *mockGradeRepo) FindByStudent(ctx context.Context, studentID string) (models.GradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[studentID]; ok {
		return r, nil
	}
	return models.GradeRecord{ID: studentID, StudentID: studentID}, nil
}

func (m *mockGradeRepo) ListByStudents(ctx context.Context, studentIDs []string) (map[string]models.GradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]models.GradeRecord{}
	for _, id := range studentIDs {
		if r, ok := m.records[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (m *mockGradeRepo) Update(ctx context.Context, studentID string, fn func(models.GradeRecord) (models.GradeRecord, error)) (models.GradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = map[string]models.GradeRecord{}
	}
	current, ok := m.records[studentID]
	if !ok {
		current = models.GradeRecord{ID: studentID, StudentID: studentID}
	}
	next, err := fn(current)
	if err != nil {
		return current, err
	}
	m.records[studentID] = next
	m.updates++
	return next, nil
}

func newGradeFixture() (*GradeService, *mockGradeRepo) {
	users := &mockUserRepo{users: []models.User{
		{ID: "s1", Name: "Nguyễn Văn An", Role: models.RoleStudent, ClassName: "10.1"},
		{ID: "s2", Name: "Trần Thị Yến", Role: models.RoleStudent, ClassName: "10.1"},
		{ID: "s3", Name: "Lê Minh Bảo", Role: models.RoleStudent, ClassName: "10.1"},
		{ID: "s4", Name: "Phạm Hà", Role: models.RoleStudent, ClassName: "11.2"},
		{ID: "t1", Name: "Cô Lan", Role: models.RoleTeacher},
	}}
	grades := &mockGradeRepo{}
	return NewGradeService(grades, users, nil, nil, nil), grades
}

func setScore(t *testing.T, svc *GradeService, studentID string, kind models.ScoreKind, index int, value float64) {
	t.Helper()
	_, err := svc.SetScore(context.Background(), teacherViewer, models.SetScoreRequest{
		StudentID: studentID,
		Semester:  models.SemesterOne,
		Subject:   "Toán",
		Kind:      kind,
		Index:     index,
		Value:     floatPtr(value),
	})
	require.NoError(t, err)
}

func TestGradeServiceSetScoreRejectsOutOfRange(t *testing.T) {
	svc, repo := newGradeFixture()
	setScore(t, svc, "s1", models.ScoreMidterm, 0, 7)

	for _, v := range []float64{-0.5, 10.5} {
		_, err := svc.SetScore(context.Background(), teacherViewer, models.SetScoreRequest{
			StudentID: "s1", Semester: models.SemesterOne, Subject: "Toán", Kind: models.ScoreMidterm, Value: floatPtr(v),
		})
		assert.ErrorIs(t, err, appErrors.ErrScoreOutOfRange)
	}
	assert.Equal(t, 1, repo.updates)
	score := repo.records["s1"].Score(models.SemesterOne, "Toán")
	require.NotNil(t, score.Midterm)
	assert.Equal(t, 7.0, *score.Midterm)

	_, err := svc.SetScore(context.Background(), studentViewer, models.SetScoreRequest{
		StudentID: "s1", Semester: models.SemesterOne, Subject: "Toán", Kind: models.ScoreFinal, Value: floatPtr(10),
	})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.SetScore(context.Background(), teacherViewer, models.SetScoreRequest{
		StudentID: "s1", Semester: models.SemesterOne, Subject: "Thiên văn", Kind: models.ScoreFinal, Value: floatPtr(5),
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.SetScore(context.Background(), teacherViewer, models.SetScoreRequest{
		StudentID: "t1", Semester: models.SemesterOne, Subject: "Toán", Kind: models.ScoreFinal, Value: floatPtr(5),
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestGradeServiceSetScoreExtendsRegularColumns(t *testing.T) {
	svc, repo := newGradeFixture()
	setScore(t, svc, "s1", models.ScoreRegular, 4, 9)

	score := repo.records["s1"].Score(models.SemesterOne, "Toán")
	require.Len(t, score.Regular, 5)
	assert.Nil(t, score.Regular[0])
	assert.Equal(t, 9.0, *score.Regular[4])

	sheet, err := svc.ClassSheet(context.Background(), teacherViewer, ClassSheetQuery{ClassName: "10.1", Subject: "Toán", Semester: models.SemesterOne})
	require.NoError(t, err)
	assert.Equal(t, 5, sheet.RegularColumns)
}

func TestGradeServiceClassSheetSortsByGivenName(t *testing.T) {
	svc, _ := newGradeFixture()
	setScore(t, svc, "s1", models.ScoreRegular, 0, 8)
	setScore(t, svc, "s1", models.ScoreMidterm, 0, 7)
	setScore(t, svc, "s1", models.ScoreFinal, 0, 6)

	sheet, err := svc.ClassSheet(context.Background(), teacherViewer, ClassSheetQuery{ClassName: "10.1", Subject: "Toán", Semester: models.SemesterOne})
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 3)
	names := []string{sheet.Rows[0].Student.Name, sheet.Rows[1].Student.Name, sheet.Rows[2].Student.Name}
	assert.Equal(t, []string{"Nguyễn Văn An", "Lê Minh Bảo", "Trần Thị Yến"}, names)
	assert.Equal(t, models.MinRegularColumns, sheet.RegularColumns)

	require.NotNil(t, sheet.Rows[0].Average)
	assert.Equal(t, 6.7, *sheet.Rows[0].Average)
	assert.Nil(t, sheet.Rows[1].Average)
}

func TestGradeServiceReportCard(t *testing.T) {
	svc, _ := newGradeFixture()
	setScore(t, svc, "s1", models.ScoreFinal, 0, 6)
	_, err := svc.SetScore(context.Background(), teacherViewer, models.SetScoreRequest{
		StudentID: "s1", Semester: models.SemesterTwo, Subject: "Toán", Kind: models.ScoreFinal, Value: floatPtr(9),
	})
	require.NoError(t, err)

	card, err := svc.ReportCard(context.Background(), studentViewer, "")
	require.NoError(t, err)
	require.Len(t, card.Subjects, len(models.Subjects))
	math := card.Subjects[0]
	assert.Equal(t, "Toán", math.Subject)
	assert.Equal(t, 6.0, *math.HK1Avg)
	assert.Equal(t, 9.0, *math.HK2Avg)
	assert.Equal(t, 8.0, *math.YearAvg)
	assert.Nil(t, card.Subjects[1].YearAvg)
	assert.Empty(t, card.Student.PasswordHash)

	_, err = svc.ReportCard(context.Background(), studentViewer, "s2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	other, err := svc.ReportCard(context.Background(), teacherViewer, "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", other.Student.ID)
}

func TestGradeServiceExportClassSheet(t *testing.T) {
	svc, _ := newGradeFixture()
	setScore(t, svc, "s2", models.ScoreMidterm, 0, 8.5)
	query := ClassSheetQuery{ClassName: "10.1", Subject: "Toán", Semester: models.SemesterOne}

	file, err := svc.ExportClassSheet(context.Background(), teacherViewer, query, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "bang_diem_10.1_Toán_HK1.csv", file.Filename)
	content := string(file.Content)
	assert.Contains(t, content, "STT,Họ và tên,TX1,TX2,TX3,GK,CK,TB")
	assert.Contains(t, content, "Trần Thị Yến,,,,8.5,,8.5")
	assert.Equal(t, 4, strings.Count(content, "\n"))

	pdf, err := svc.ExportClassSheet(context.Background(), teacherViewer, query, FormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf.Content), "%PDF"))

	_, err = svc.ExportClassSheet(context.Background(), teacherViewer, query, "xlsx")
	assert.ErrorIs(t, err, appErrors.ErrUnsupportedFormat)
}
