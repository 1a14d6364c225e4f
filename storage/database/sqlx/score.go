package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/prediction"
	"github.com/Bebdyshev/usp-backend/core/risk"
	"github.com/Bebdyshev/usp-backend/core/score"
)

const (
	gradeColumns   = `id, name, curator_name, curator_id, created_at`
	subjectColumns = `id, name, created_at`
	studentColumns = `id, name, grade_id, created_at`

	recordSelect = `SELECT sc.id, sc.student_id, st.name AS student_name, sc.subject_id, su.name AS subject_name,
		sc.grade_id, sc.subgroup_id, sc.semester, sc.academic_year, sc.teacher_name,
		sc.previous_class_score, sc.teacher_score,
		sc.actual_q1, sc.actual_q2, sc.actual_q3, sc.actual_q4,
		sc.predicted_q1, sc.predicted_q2, sc.predicted_q3, sc.predicted_q4,
		sc.danger_level, sc.delta_percentage, sc.created_at, sc.updated_at
		FROM score sc
		JOIN student st ON st.id = sc.student_id
		JOIN subject su ON su.id = sc.subject_id`
)

// recordRow is a score row. Quarters are flattened into columns.
type recordRow struct {
	ID            int          `db:"id"`
	StudentID     int          `db:"student_id"`
	StudentName   string       `db:"student_name"`
	SubjectID     int          `db:"subject_id"`
	SubjectName   string       `db:"subject_name"`
	GradeID       int          `db:"grade_id"`
	SubgroupID    null.Int     `db:"subgroup_id"`
	Semester      int          `db:"semester"`
	AcademicYear  string       `db:"academic_year"`
	TeacherName   string       `db:"teacher_name"`
	PreviousClass null.Float64 `db:"previous_class_score"`
	Teacher       null.Float64 `db:"teacher_score"`
	ActualQ1      null.Float64 `db:"actual_q1"`
	ActualQ2      null.Float64 `db:"actual_q2"`
	ActualQ3      null.Float64 `db:"actual_q3"`
	ActualQ4      null.Float64 `db:"actual_q4"`
	PredictedQ1   float64      `db:"predicted_q1"`
	PredictedQ2   float64      `db:"predicted_q2"`
	PredictedQ3   float64      `db:"predicted_q3"`
	PredictedQ4   float64      `db:"predicted_q4"`
	DangerLevel   int          `db:"danger_level"`
	Delta         float64      `db:"delta_percentage"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

func toRecordRow(r score.Record) recordRow {
	return recordRow{
		ID:            r.ID,
		StudentID:     r.StudentID,
		SubjectID:     r.SubjectID,
		GradeID:       r.GradeID,
		SubgroupID:    null.IntFromPtr(r.SubgroupID),
		Semester:      r.Semester,
		AcademicYear:  r.AcademicYear,
		TeacherName:   r.TeacherName,
		PreviousClass: null.Float64FromPtr(r.PreviousClass),
		Teacher:       null.Float64FromPtr(r.Teacher),
		ActualQ1:      null.Float64FromPtr(r.Actual[0]),
		ActualQ2:      null.Float64FromPtr(r.Actual[1]),
		ActualQ3:      null.Float64FromPtr(r.Actual[2]),
		ActualQ4:      null.Float64FromPtr(r.Actual[3]),
		PredictedQ1:   r.Predicted[0],
		PredictedQ2:   r.Predicted[1],
		PredictedQ3:   r.Predicted[2],
		PredictedQ4:   r.Predicted[3],
		DangerLevel:   int(r.DangerLevel),
		Delta:         r.Delta,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

func (row recordRow) record() score.Record {
	return score.Record{
		ID:            row.ID,
		StudentID:     row.StudentID,
		StudentName:   row.StudentName,
		SubjectID:     row.SubjectID,
		SubjectName:   row.SubjectName,
		GradeID:       row.GradeID,
		SubgroupID:    row.SubgroupID.Ptr(),
		Semester:      row.Semester,
		AcademicYear:  row.AcademicYear,
		TeacherName:   row.TeacherName,
		PreviousClass: row.PreviousClass.Ptr(),
		Teacher:       row.Teacher.Ptr(),
		Actual: [prediction.Quarters]*float64{
			row.ActualQ1.Ptr(), row.ActualQ2.Ptr(), row.ActualQ3.Ptr(), row.ActualQ4.Ptr(),
		},
		Predicted:   [prediction.Quarters]float64{row.PredictedQ1, row.PredictedQ2, row.PredictedQ3, row.PredictedQ4},
		DangerLevel: risk.Level(row.DangerLevel),
		Delta:       row.Delta,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type scoreRepository struct {
	base
}

var _ score.Repository = (*scoreRepository)(nil) // interface compliance check

// NewScoreRepository returns a score.Repository. With rowLocks, records read inside a
// transaction are locked until it ends.
func NewScoreRepository(db *sqlx.DB, rowLocks bool) *scoreRepository {
	return &scoreRepository{base{db: db, rowLocks: rowLocks}}
}

func (repo scoreRepository) QueryGrades(ctx context.Context, scope core.GradeScope, exec ...core.DBExecutor) ([]score.Grade, error) {
	ext := repo.ext(exec)
	q := `SELECT ` + gradeColumns + ` FROM grade`
	var args []interface{}
	if scope.IsRestricted() {
		ids := scope.IDs()
		if len(ids) == 0 {
			return []score.Grade{}, nil
		}
		var err error
		if q, args, err = sqlx.In(q+` WHERE id IN (?)`, ids); err != nil {
			return nil, errors.Wrap(err, "building grade query")
		}
	}

	grades := make([]score.Grade, 0)
	if err := sqlx.SelectContext(ctx, ext, &grades, ext.Rebind(q+` ORDER BY name, id`), args...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	return grades, nil
}

func (repo scoreRepository) GetGrade(ctx context.Context, id int, exec ...core.DBExecutor) (score.Grade, error) {
	ext := repo.ext(exec)
	var g score.Grade
	q := ext.Rebind(`SELECT ` + gradeColumns + ` FROM grade WHERE id = ?`)
	if err := sqlx.GetContext(ctx, ext, &g, q, id); err != nil {
		return score.Grade{}, trapNoRows(err, score.ErrNotFound, "getting grade")
	}
	return g, nil
}

func (repo scoreRepository) FindGrade(ctx context.Context, name, curatorName string, exec ...core.DBExecutor) (score.Grade, error) {
	ext := repo.ext(exec)
	var g score.Grade
	q := ext.Rebind(`SELECT ` + gradeColumns + ` FROM grade WHERE name = ? AND curator_name = ?`)
	if err := sqlx.GetContext(ctx, ext, &g, q, name, curatorName); err != nil {
		return score.Grade{}, trapNoRows(err, score.ErrNotFound, "finding grade")
	}
	return g, nil
}

func (repo scoreRepository) CreateGrade(ctx context.Context, g score.Grade, exec ...core.DBExecutor) (score.Grade, error) {
	if _, err := repo.FindGrade(ctx, g.Name, g.CuratorName, exec...); err == nil {
		return score.Grade{}, score.ErrGradeExists
	} else if err != score.ErrNotFound {
		return score.Grade{}, err
	}

	ext := repo.ext(exec)
	q, args, err := ext.BindNamed(`INSERT INTO grade (name, curator_name, curator_id, created_at)
		VALUES (:name, :curator_name, :curator_id, :created_at) RETURNING id`, g)
	if err != nil {
		return score.Grade{}, errors.Wrap(err, "binding grade")
	}
	if err = sqlx.GetContext(ctx, ext, &g.ID, q, args...); err != nil {
		return score.Grade{}, errors.Wrap(err, "inserting grade")
	}
	return g, nil
}

func (repo scoreRepository) QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]score.Subject, error) {
	subjects := make([]score.Subject, 0)
	if err := sqlx.SelectContext(ctx, repo.ext(exec), &subjects, `SELECT `+subjectColumns+` FROM subject ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	return subjects, nil
}

func (repo scoreRepository) GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (score.Subject, error) {
	ext := repo.ext(exec)
	var s score.Subject
	if err := sqlx.GetContext(ctx, ext, &s, ext.Rebind(`SELECT `+subjectColumns+` FROM subject WHERE id = ?`), id); err != nil {
		return score.Subject{}, trapNoRows(err, score.ErrNotFound, "getting subject")
	}
	return s, nil
}

func (repo scoreRepository) FindSubject(ctx context.Context, name string, exec ...core.DBExecutor) (score.Subject, error) {
	ext := repo.ext(exec)
	var s score.Subject
	q := ext.Rebind(`SELECT ` + subjectColumns + ` FROM subject WHERE lower(name) = lower(?)`)
	if err := sqlx.GetContext(ctx, ext, &s, q, strings.TrimSpace(name)); err != nil {
		return score.Subject{}, trapNoRows(err, score.ErrNotFound, "finding subject")
	}
	return s, nil
}

func (repo scoreRepository) CreateSubject(ctx context.Context, s score.Subject, exec ...core.DBExecutor) (score.Subject, error) {
	if _, err := repo.FindSubject(ctx, s.Name, exec...); err == nil {
		return score.Subject{}, score.ErrSubjectExists
	} else if err != score.ErrNotFound {
		return score.Subject{}, err
	}

	ext := repo.ext(exec)
	q, args, err := ext.BindNamed(`INSERT INTO subject (name, created_at) VALUES (:name, :created_at) RETURNING id`, s)
	if err != nil {
		return score.Subject{}, errors.Wrap(err, "binding subject")
	}
	if err = sqlx.GetContext(ctx, ext, &s.ID, q, args...); err != nil {
		return score.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo scoreRepository) FindStudent(ctx context.Context, name string, gradeID int, exec ...core.DBExecutor) (score.Student, error) {
	ext := repo.ext(exec)
	var st score.Student
	q := ext.Rebind(`SELECT ` + studentColumns + ` FROM student WHERE grade_id = ? AND name = ?`)
	if err := sqlx.GetContext(ctx, ext, &st, q, gradeID, name); err != nil {
		return score.Student{}, trapNoRows(err, score.ErrNotFound, "finding student")
	}
	return st, nil
}

func (repo scoreRepository) CreateStudent(ctx context.Context, st score.Student, exec ...core.DBExecutor) (score.Student, error) {
	ext := repo.ext(exec)
	q, args, err := ext.BindNamed(`INSERT INTO student (name, grade_id, created_at)
		VALUES (:name, :grade_id, :created_at)
		ON CONFLICT (grade_id, name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, st)
	if err != nil {
		return score.Student{}, errors.Wrap(err, "binding student")
	}
	if err = sqlx.GetContext(ctx, ext, &st.ID, q, args...); err != nil {
		return score.Student{}, errors.Wrap(err, "upserting student")
	}
	return st, nil
}

func (repo scoreRepository) QueryRecords(ctx context.Context, filter score.RecordFilter, exec ...core.DBExecutor) ([]score.Record, error) {
	ext := repo.ext(exec)
	var (
		conds []string
		args  []interface{}
	)
	if filter.Scope.IsRestricted() {
		ids := filter.Scope.IDs()
		if len(ids) == 0 {
			return []score.Record{}, nil
		}
		conds = append(conds, "sc.grade_id IN (?)")
		args = append(args, ids)
	}
	for _, c := range []struct {
		col string
		val int
	}{
		{"sc.grade_id", filter.GradeID},
		{"sc.subject_id", filter.SubjectID},
		{"sc.student_id", filter.StudentID},
		{"sc.semester", filter.Semester},
	} {
		if c.val != 0 {
			conds = append(conds, c.col+" = ?")
			args = append(args, c.val)
		}
	}

	q := recordSelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q, args, err := sqlx.In(q+" ORDER BY sc.id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "building record query")
	}

	var rows []recordRow
	if err = sqlx.SelectContext(ctx, ext, &rows, ext.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	records := make([]score.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (repo scoreRepository) getRecord(ctx context.Context, where string, args []interface{}, exec []core.DBExecutor) (score.Record, error) {
	ext := repo.ext(exec)
	var row recordRow
	q := ext.Rebind(recordSelect + " WHERE " + where + repo.lockClause("sc", exec))
	if err := sqlx.GetContext(ctx, ext, &row, q, args...); err != nil {
		return score.Record{}, trapNoRows(err, score.ErrNotFound, "getting record")
	}
	return row.record(), nil
}

func (repo scoreRepository) GetRecord(ctx context.Context, id int, exec ...core.DBExecutor) (score.Record, error) {
	return repo.getRecord(ctx, "sc.id = ?", []interface{}{id}, exec)
}

func (repo scoreRepository) FindRecord(ctx context.Context, key score.RecordKey, exec ...core.DBExecutor) (score.Record, error) {
	return repo.getRecord(ctx,
		"sc.student_id = ? AND sc.subject_id = ? AND sc.semester = ?",
		[]interface{}{key.StudentID, key.SubjectID, key.Semester},
		exec)
}

func (repo scoreRepository) CreateRecord(ctx context.Context, r score.Record, exec ...core.DBExecutor) (score.Record, error) {
	ext := repo.ext(exec)
	q, args, err := ext.BindNamed(`INSERT INTO score (
			student_id, subject_id, grade_id, subgroup_id, semester, academic_year, teacher_name,
			previous_class_score, teacher_score, actual_q1, actual_q2, actual_q3, actual_q4,
			predicted_q1, predicted_q2, predicted_q3, predicted_q4, danger_level, delta_percentage,
			created_at, updated_at)
		VALUES (
			:student_id, :subject_id, :grade_id, :subgroup_id, :semester, :academic_year, :teacher_name,
			:previous_class_score, :teacher_score, :actual_q1, :actual_q2, :actual_q3, :actual_q4,
			:predicted_q1, :predicted_q2, :predicted_q3, :predicted_q4, :danger_level, :delta_percentage,
			:created_at, :updated_at)
		ON CONFLICT (student_id, subject_id, semester) DO UPDATE SET
			grade_id = EXCLUDED.grade_id, subgroup_id = EXCLUDED.subgroup_id,
			academic_year = EXCLUDED.academic_year, teacher_name = EXCLUDED.teacher_name,
			previous_class_score = EXCLUDED.previous_class_score, teacher_score = EXCLUDED.teacher_score,
			actual_q1 = EXCLUDED.actual_q1, actual_q2 = EXCLUDED.actual_q2,
			actual_q3 = EXCLUDED.actual_q3, actual_q4 = EXCLUDED.actual_q4,
			predicted_q1 = EXCLUDED.predicted_q1, predicted_q2 = EXCLUDED.predicted_q2,
			predicted_q3 = EXCLUDED.predicted_q3, predicted_q4 = EXCLUDED.predicted_q4,
			danger_level = EXCLUDED.danger_level, delta_percentage = EXCLUDED.delta_percentage,
			updated_at = EXCLUDED.updated_at
		RETURNING id`, toRecordRow(r))
	if err != nil {
		return score.Record{}, errors.Wrap(err, "binding record")
	}
	if err = sqlx.GetContext(ctx, ext, &r.ID, q, args...); err != nil {
		return score.Record{}, errors.Wrap(err, "upserting record")
	}
	return r, nil
}

func (repo scoreRepository) UpdateRecord(ctx context.Context, r score.Record, exec ...core.DBExecutor) (score.Record, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.ext(exec), `UPDATE score SET
			grade_id = :grade_id, subgroup_id = :subgroup_id, academic_year = :academic_year,
			teacher_name = :teacher_name, previous_class_score = :previous_class_score,
			teacher_score = :teacher_score, actual_q1 = :actual_q1, actual_q2 = :actual_q2,
			actual_q3 = :actual_q3, actual_q4 = :actual_q4, predicted_q1 = :predicted_q1,
			predicted_q2 = :predicted_q2, predicted_q3 = :predicted_q3, predicted_q4 = :predicted_q4,
			danger_level = :danger_level, delta_percentage = :delta_percentage, updated_at = :updated_at
		WHERE id = :id`, toRecordRow(r))
	if err != nil {
		return score.Record{}, errors.Wrap(err, "updating record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return score.Record{}, score.ErrNotFound
	}
	return r, nil
}
