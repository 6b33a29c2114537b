package models

// Semester identifies a term of the school year.
type Semester string

const (
	SemesterOne Semester = "HK1"
	SemesterTwo Semester = "HK2"
)

// Valid reports whether s names a known semester.
func (s Semester) Valid() bool { return s == SemesterOne || s == SemesterTwo }

// ScoreKind selects the column of a period score.
type ScoreKind string

const (
	ScoreRegular ScoreKind = "regular"
	ScoreMidterm ScoreKind = "midterm"
	ScoreFinal   ScoreKind = "final"
)

// Subjects lists the gradebook subjects in display order.
var Subjects = []string{
	"Toán", "Vật Lý", "Hóa Học", "Sinh Học", "Ngữ Văn", "Lịch Sử", "Địa Lý", "Tiếng Anh",
	"GDKT và PL", "Công Nghệ", "Tin Học", "GDTC", "Âm Nhạc", "Mỹ Thuật", "GDQPAN",
}

// MinRegularColumns is the number of regular score columns always shown.
const MinRegularColumns = 3

// PeriodScore holds one subject's scores for one semester. Nil entries are unset.
type PeriodScore struct {
	Regular []*float64 `json:"regular"`
	Midterm *float64   `json:"midterm,omitempty"`
	Final   *float64   `json:"final,omitempty"`
}

// Clone deep-copies the score so mutations never alias stored state.
func (p PeriodScore) Clone() PeriodScore {
	out := PeriodScore{Regular: make([]*float64, len(p.Regular))}
	for i, v := range p.Regular {
		out.Regular[i] = cloneFloat(v)
	}
	out.Midterm = cloneFloat(p.Midterm)
	out.Final = cloneFloat(p.Final)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// GradeRecord stores every score of one student. ID equals StudentID.
type GradeRecord struct {
	ID               string                             `json:"id"`
	StudentID        string                             `json:"student_id"`
	ScoresBySemester map[Semester]map[string]PeriodScore `json:"scores_by_semester"`
}

// RecordID implements repository.Identifiable.
func (g GradeRecord) RecordID() string { return g.ID }

// Score returns the period score for semester and subject, empty when unset.
func (g GradeRecord) Score(semester Semester, subject string) PeriodScore {
	if g.ScoresBySemester == nil {
		return PeriodScore{}
	}
	return g.ScoresBySemester[semester][subject]
}

// SetScoreRequest updates one cell of the gradebook. A nil value clears it.
type SetScoreRequest struct {
	StudentID string    `json:"student_id" validate:"required"`
	Semester  Semester  `json:"semester" validate:"required,oneof=HK1 HK2"`
	Subject   string    `json:"subject" validate:"required"`
	Kind      ScoreKind `json:"kind" validate:"required,oneof=regular midterm final"`
	Index     int       `json:"index" validate:"min=0,max=19"`
	Value     *float64  `json:"value"`
}

// SubjectSummary is one row of a report card.
type SubjectSummary struct {
	Subject string      `json:"subject"`
	HK1     PeriodScore `json:"hk1"`
	HK2     PeriodScore `json:"hk2"`
	HK1Avg  *float64    `json:"hk1_average"`
	HK2Avg  *float64    `json:"hk2_average"`
	YearAvg *float64    `json:"year_average"`
}

// ReportCard lists a student's subjects with their averages.
type ReportCard struct {
	Student  User             `json:"student"`
	Subjects []SubjectSummary `json:"subjects"`
}

// ClassSheetRow is one student line of a class gradebook sheet.
type ClassSheetRow struct {
	Student User        `json:"student"`
	Score   PeriodScore `json:"score"`
	Average *float64    `json:"average"`
}

// ClassSheet is the teacher's view of one class, subject and semester.
type ClassSheet struct {
	ClassName      string          `json:"class_name"`
	Subject        string          `json:"subject"`
	Semester       Semester        `json:"semester"`
	RegularColumns int             `json:"regular_columns"`
	Rows           []ClassSheetRow `json:"rows"`
}
