// Package boiledrepos implements the read-only analytics repository with sqlboiler raw queries.
package boiledrepos

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/strmangle"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/analytics"
	"github.com/Bebdyshev/usp-backend/core/risk"
	"github.com/Bebdyshev/usp-backend/core/score"
)

type gradeRow struct {
	ID          int         `boil:"id"`
	Name        string      `boil:"name"`
	CuratorName string      `boil:"curator_name"`
	CuratorID   null.String `boil:"curator_id"`
	CreatedAt   time.Time   `boil:"created_at"`
}

type studentRow struct {
	ID        int       `boil:"id"`
	Name      string    `boil:"name"`
	GradeID   int       `boil:"grade_id"`
	CreatedAt time.Time `boil:"created_at"`
}

type recordRow struct {
	ID            int          `boil:"id"`
	StudentID     int          `boil:"student_id"`
	StudentName   string       `boil:"student_name"`
	SubjectID     int          `boil:"subject_id"`
	SubjectName   string       `boil:"subject_name"`
	GradeID       int          `boil:"grade_id"`
	SubgroupID    null.Int     `boil:"subgroup_id"`
	Semester      int          `boil:"semester"`
	AcademicYear  string       `boil:"academic_year"`
	TeacherName   string       `boil:"teacher_name"`
	PreviousClass null.Float64 `boil:"previous_class_score"`
	Teacher       null.Float64 `boil:"teacher_score"`
	ActualQ1      null.Float64 `boil:"actual_q1"`
	ActualQ2      null.Float64 `boil:"actual_q2"`
	ActualQ3      null.Float64 `boil:"actual_q3"`
	ActualQ4      null.Float64 `boil:"actual_q4"`
	PredictedQ1   float64      `boil:"predicted_q1"`
	PredictedQ2   float64      `boil:"predicted_q2"`
	PredictedQ3   float64      `boil:"predicted_q3"`
	PredictedQ4   float64      `boil:"predicted_q4"`
	DangerLevel   int          `boil:"danger_level"`
	Delta         float64      `boil:"delta_percentage"`
	CreatedAt     time.Time    `boil:"created_at"`
	UpdatedAt     time.Time    `boil:"updated_at"`
}

func (r *recordRow) unboil() score.Record {
	return score.Record{
		ID:            r.ID,
		StudentID:     r.StudentID,
		StudentName:   r.StudentName,
		SubjectID:     r.SubjectID,
		SubjectName:   r.SubjectName,
		GradeID:       r.GradeID,
		SubgroupID:    r.SubgroupID.Ptr(),
		Semester:      r.Semester,
		AcademicYear:  r.AcademicYear,
		TeacherName:   r.TeacherName,
		PreviousClass: r.PreviousClass.Ptr(),
		Teacher:       r.Teacher.Ptr(),
		Actual:        [4]*float64{r.ActualQ1.Ptr(), r.ActualQ2.Ptr(), r.ActualQ3.Ptr(), r.ActualQ4.Ptr()},
		Predicted:     [4]float64{r.PredictedQ1, r.PredictedQ2, r.PredictedQ3, r.PredictedQ4},
		DangerLevel:   risk.Level(r.DangerLevel),
		Delta:         r.Delta,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

// where accumulates conditions and their arguments, numbering placeholders as it goes.
type where struct {
	indexPlaceholders bool
	conds             []string
	args              []interface{}
}

func (w *where) in(col string, ids []int) {
	w.conds = append(w.conds, col+" IN ("+strmangle.Placeholders(w.indexPlaceholders, len(ids), len(w.args)+1, 1)+")")
	for _, id := range ids {
		w.args = append(w.args, id)
	}
}

func (w *where) eq(col string, val interface{}) {
	w.conds = append(w.conds, col+" = "+strmangle.Placeholders(w.indexPlaceholders, 1, len(w.args)+1, 1))
	w.args = append(w.args, val)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

type analyticsRepository struct {
	exec              core.DBExecutor
	indexPlaceholders bool
}

var _ analytics.Repository = (*analyticsRepository)(nil) // interface compliance check

// NewAnalyticsRepository returns an analytics.Repository. indexPlaceholders selects $1 style
// placeholders (postgres) over ?.
func NewAnalyticsRepository(exec core.DBExecutor, indexPlaceholders bool) *analyticsRepository {
	return &analyticsRepository{exec: exec, indexPlaceholders: indexPlaceholders}
}

// scoped returns false when scope allows no grade at all.
func (repo analyticsRepository) scoped(col string, scope core.GradeScope, gradeID int) (*where, bool) {
	w := &where{indexPlaceholders: repo.indexPlaceholders}
	if scope.IsRestricted() {
		ids := scope.IDs()
		if len(ids) == 0 {
			return nil, false
		}
		w.in(col, ids)
	}
	if gradeID != 0 {
		w.eq(col, gradeID)
	}
	return w, true
}

func (repo analyticsRepository) QueryGrades(ctx context.Context, scope core.GradeScope) ([]score.Grade, error) {
	w, ok := repo.scoped("id", scope, 0)
	if !ok {
		return []score.Grade{}, nil
	}
	var rows []*gradeRow
	q := `SELECT id, name, curator_name, curator_id, created_at FROM grade` + w.String() + ` ORDER BY name, id`
	if err := queries.Raw(q, w.args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}

	grades := make([]score.Grade, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, score.Grade{
			ID:          r.ID,
			Name:        r.Name,
			CuratorName: r.CuratorName,
			CuratorID:   r.CuratorID.Ptr(),
			CreatedAt:   r.CreatedAt.UTC(),
		})
	}
	return grades, nil
}

func (repo analyticsRepository) QueryStudents(ctx context.Context, scope core.GradeScope, gradeID int) ([]score.Student, error) {
	w, ok := repo.scoped("grade_id", scope, gradeID)
	if !ok {
		return []score.Student{}, nil
	}
	var rows []*studentRow
	q := `SELECT id, name, grade_id, created_at FROM student` + w.String() + ` ORDER BY name, id`
	if err := queries.Raw(q, w.args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	students := make([]score.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, score.Student{ID: r.ID, Name: r.Name, GradeID: r.GradeID, CreatedAt: r.CreatedAt.UTC()})
	}
	return students, nil
}

func (repo analyticsRepository) QueryRecords(ctx context.Context, scope core.GradeScope, gradeID int) ([]score.Record, error) {
	w, ok := repo.scoped("sc.grade_id", scope, gradeID)
	if !ok {
		return []score.Record{}, nil
	}
	var rows []*recordRow
	q := `SELECT sc.id, sc.student_id, st.name AS student_name, sc.subject_id, su.name AS subject_name,
		sc.grade_id, sc.subgroup_id, sc.semester, sc.academic_year, sc.teacher_name,
		sc.previous_class_score, sc.teacher_score,
		sc.actual_q1, sc.actual_q2, sc.actual_q3, sc.actual_q4,
		sc.predicted_q1, sc.predicted_q2, sc.predicted_q3, sc.predicted_q4,
		sc.danger_level, sc.delta_percentage, sc.created_at, sc.updated_at
		FROM score sc
		JOIN student st ON st.id = sc.student_id
		JOIN subject su ON su.id = sc.subject_id` + w.String() + ` ORDER BY st.name, su.name, sc.semester`
	if err := queries.Raw(q, w.args...).Bind(ctx, repo.exec, &rows); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}

	records := make([]score.Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.unboil())
	}
	return records, nil
}
