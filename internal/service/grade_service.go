package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pedagosys-api/internal/gradebook"
	"github.com/noah-isme/pedagosys-api/internal/models"
	appErrors "github.com/noah-isme/pedagosys-api/pkg/errors"
	"github.com/noah-isme/pedagosys-api/pkg/export"
)

type gradeRepository interface {
	FindByStudent(ctx context.Context, studentID string) (models.GradeRecord, error)
	ListByStudents(ctx context.Context, studentIDs []string) (map[string]models.GradeRecord, error)
	Update(ctx context.Context, studentID string, fn func(models.GradeRecord) (models.GradeRecord, error)) (models.GradeRecord, error)
}

type rosterReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
}

// ClassSheetQuery selects one sheet of the gradebook.
type ClassSheetQuery struct {
	ClassName string          `json:"class_name" validate:"required"`
	Subject   string          `json:"subject" validate:"required"`
	Semester  models.Semester `json:"semester" validate:"required,oneof=HK1 HK2"`
}

// GradeService maintains the weighted gradebook.
type GradeService struct {
	grades    gradeRepository
	users     rosterReader
	exporter  *ExportService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService wires the gradebook service.
func NewGradeService(grades gradeRepository, users rosterReader, exporter *ExportService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService()
	}
	return &GradeService{grades: grades, users: users, exporter: exporter, validator: newValidator(validate), logger: logger}
}

// SetScore writes one cell. Out-of-range values are rejected and the stored
// value is kept.
func (s *GradeService) SetScore(ctx context.Context, viewer models.Viewer, req models.SetScoreRequest) (*models.PeriodScore, error) {
	if err := requirePrivileged(viewer, "only teachers can enter scores"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid score payload")
	}
	if !knownSubject(req.Subject) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject %q", req.Subject))
	}
	if req.Value != nil {
		if err := gradebook.ValidateScore(*req.Value); err != nil {
			return nil, err
		}
	}
	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scores can only be entered for students")
	}

	record, err := s.grades.Update(ctx, req.StudentID, func(record models.GradeRecord) (models.GradeRecord, error) {
		return applyScore(record, req), nil
	})
	if err != nil && !persistenceOnly(err) {
		return nil, err
	}
	score := record.Score(req.Semester, req.Subject)
	s.logger.Info("score updated",
		zap.String("student_id", req.StudentID),
		zap.String("semester", string(req.Semester)),
		zap.String("subject", req.Subject),
		zap.String("kind", string(req.Kind)),
		zap.String("teacher_id", viewer.ID),
	)
	return &score, err
}

func applyScore(record models.GradeRecord, req models.SetScoreRequest) models.GradeRecord {
	out := models.GradeRecord{
		ID:               req.StudentID,
		StudentID:        req.StudentID,
		ScoresBySemester: make(map[models.Semester]map[string]models.PeriodScore, len(record.ScoresBySemester)+1),
	}
	for sem, subjects := range record.ScoresBySemester {
		copied := make(map[string]models.PeriodScore, len(subjects))
		for subject, score := range subjects {
			copied[subject] = score.Clone()
		}
		out.ScoresBySemester[sem] = copied
	}
	if out.ScoresBySemester[req.Semester] == nil {
		out.ScoresBySemester[req.Semester] = make(map[string]models.PeriodScore)
	}

	score := out.ScoresBySemester[req.Semester][req.Subject]
	value := req.Value
	if value != nil {
		v := *value
		value = &v
	}
	switch req.Kind {
	case models.ScoreMidterm:
		score.Midterm = value
	case models.ScoreFinal:
		score.Final = value
	default:
		for len(score.Regular) <= req.Index {
			score.Regular = append(score.Regular, nil)
		}
		score.Regular[req.Index] = value
	}
	out.ScoresBySemester[req.Semester][req.Subject] = score
	return out
}

func knownSubject(subject string) bool {
	for _, s := range models.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// ClassSheet returns every student of a class with their score and average.
func (s *GradeService) ClassSheet(ctx context.Context, viewer models.Viewer, query ClassSheetQuery) (*models.ClassSheet, error) {
	if err := requirePrivileged(viewer, "only teachers can view class sheets"); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, invalid(err, "invalid class sheet query")
	}
	roster, err := s.roster(ctx, query.ClassName)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(roster))
	for i, student := range roster {
		ids[i] = student.ID
	}
	records, err := s.grades.ListByStudents(ctx, ids)
	if err != nil {
		return nil, err
	}

	sheet := &models.ClassSheet{
		ClassName:      query.ClassName,
		Subject:        query.Subject,
		Semester:       query.Semester,
		RegularColumns: models.MinRegularColumns,
		Rows:           make([]models.ClassSheetRow, 0, len(roster)),
	}
	for _, student := range roster {
		score := records[student.ID].Score(query.Semester, query.Subject)
		if n := len(score.Regular); n > sheet.RegularColumns {
			sheet.RegularColumns = n
		}
		sheet.Rows = append(sheet.Rows, models.ClassSheetRow{
			Student: student.Public(),
			Score:   score,
			Average: gradebook.PeriodAverage(score),
		})
	}
	return sheet, nil
}

// roster lists the students of className sorted by given name.
func (s *GradeService) roster(ctx context.Context, className string) ([]models.User, error) {
	role := models.RoleStudent
	students, err := s.users.List(ctx, models.UserFilter{Role: &role, ClassName: className})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(students, func(i, j int) bool {
		return givenName(students[i].Name) < givenName(students[j].Name)
	})
	return students, nil
}

// givenName is the last word of a Vietnamese full name.
func givenName(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[len(parts)-1])
}

// ReportCard summarises one student's year. Students may only read their own.
func (s *GradeService) ReportCard(ctx context.Context, viewer models.Viewer, studentID string) (*models.ReportCard, error) {
	if studentID == "" {
		studentID = viewer.ID
	}
	if !viewer.Role.IsPrivileged() && studentID != viewer.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students can only view their own report card")
	}
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	record, err := s.grades.FindByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	card := &models.ReportCard{Student: student.Public(), Subjects: make([]models.SubjectSummary, 0, len(models.Subjects))}
	for _, subject := range models.Subjects {
		hk1 := record.Score(models.SemesterOne, subject)
		hk2 := record.Score(models.SemesterTwo, subject)
		hk1Avg := gradebook.PeriodAverage(hk1)
		hk2Avg := gradebook.PeriodAverage(hk2)
		card.Subjects = append(card.Subjects, models.SubjectSummary{
			Subject: subject,
			HK1:     hk1,
			HK2:     hk2,
			HK1Avg:  hk1Avg,
			HK2Avg:  hk2Avg,
			YearAvg: gradebook.YearAverage(hk1Avg, hk2Avg),
		})
	}
	return card, nil
}

// ExportClassSheet renders a class sheet as CSV or PDF.
func (s *GradeService) ExportClassSheet(ctx context.Context, viewer models.Viewer, query ClassSheetQuery, format string) (*ExportFile, error) {
	sheet, err := s.ClassSheet(ctx, viewer, query)
	if err != nil {
		return nil, err
	}
	dataset := classSheetDataset(sheet)
	base := fmt.Sprintf("bang_diem_%s_%s_%s", sheet.ClassName, sheet.Subject, sheet.Semester)
	return s.exporter.Render(format, base, dataset)
}

func classSheetDataset(sheet *models.ClassSheet) export.Dataset {
	headers := []string{"STT", "Họ và tên"}
	for i := 1; i <= sheet.RegularColumns; i++ {
		headers = append(headers, fmt.Sprintf("TX%d", i))
	}
	headers = append(headers, "GK", "CK", "TB")

	rows := make([]map[string]string, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		line := map[string]string{
			"STT":       fmt.Sprintf("%d", i+1),
			"Họ và tên": row.Student.Name,
			"GK":        formatScore(row.Score.Midterm),
			"CK":        formatScore(row.Score.Final),
			"TB":        formatScore(row.Average),
		}
		for col := 0; col < sheet.RegularColumns; col++ {
			var v *float64
			if col < len(row.Score.Regular) {
				v = row.Score.Regular[col]
			}
			line[fmt.Sprintf("TX%d", col+1)] = formatScore(v)
		}
		rows = append(rows, line)
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Bảng điểm %s - %s - %s", sheet.Subject, sheet.ClassName, sheet.Semester),
		Headers: headers,
		Rows:    rows,
	}
}

func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}
