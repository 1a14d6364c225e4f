package boiledrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/risk"
	testutil "github.com/Bebdyshev/usp-backend/tests"
)

func TestWhere(t *testing.T) {
	tests := []struct {
		name  string
		index bool
		want  string
	}{
		{name: "question marks", index: false, want: " WHERE sc.grade_id IN (?,?) AND sc.grade_id = ?"},
		{name: "indexed", index: true, want: " WHERE sc.grade_id IN ($1,$2) AND sc.grade_id = $3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &where{indexPlaceholders: tt.index}
			w.in("sc.grade_id", []int{4, 7})
			w.eq("sc.grade_id", 7)
			assert.Equal(t, tt.want, w.String())
			assert.Equal(t, []interface{}{4, 7, 7}, w.args)
		})
	}
	assert.Equal(t, "", (&where{}).String())
}

func TestAnalyticsRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenSQLite(t)
	now := time.Now().UTC()

	db.MustExec(`INSERT INTO grade (id, name, curator_name, curator_id, created_at) VALUES
		(1, '10A', 'Aliya', NULL, ?), (2, '9B', 'Marat', '6f9f5a1e-7c3b-4d8e-9a52-0f1d2c3b4a59', ?)`, now, now)
	db.MustExec(`INSERT INTO subject (id, name, created_at) VALUES (1, 'Math', ?), (2, 'Physics', ?)`, now, now)
	db.MustExec(`INSERT INTO student (id, name, grade_id, created_at) VALUES
		(1, 'Zhanna', 1, ?), (2, 'Arman', 1, ?), (3, 'Dana', 2, ?)`, now, now, now)
	db.MustExec(`INSERT INTO score (student_id, subject_id, grade_id, subgroup_id, semester, academic_year,
			previous_class_score, actual_q1, actual_q2, predicted_q1, predicted_q2, predicted_q3, predicted_q4,
			danger_level, delta_percentage, created_at, updated_at) VALUES
		(1, 1, 1, NULL, 1, '2024-2025', 80, 60, NULL, 80, 80, 80, 80, 2, -20, ?, ?),
		(2, 2, 1, 3,    1, '2024-2025', NULL, 0, 90, 70, 70, 70, 70, 0, 10, ?, ?),
		(3, 1, 2, NULL, 1, '2024-2025', 75, NULL, NULL, 75, 75, 75, 75, 0, 0, ?, ?)`,
		now, now, now, now, now, now)

	repo := NewAnalyticsRepository(db, false)

	grades, err := repo.QueryGrades(ctx, core.UnrestrictedScope())
	if err != nil {
		t.Fatalf("QueryGrades() error = %v", err)
	}
	if assert.Len(t, grades, 2) {
		assert.Equal(t, "10A", grades[0].Name)
		assert.Nil(t, grades[0].CuratorID)
		if assert.NotNil(t, grades[1].CuratorID) {
			assert.Equal(t, "6f9f5a1e-7c3b-4d8e-9a52-0f1d2c3b4a59", *grades[1].CuratorID)
		}
	}

	students, err := repo.QueryStudents(ctx, core.NewGradeScope(1), 0)
	if err != nil {
		t.Fatalf("QueryStudents() error = %v", err)
	}
	if assert.Len(t, students, 2) {
		assert.Equal(t, "Arman", students[0].Name)
		assert.Equal(t, "Zhanna", students[1].Name)
	}

	records, err := repo.QueryRecords(ctx, core.UnrestrictedScope(), 1)
	if err != nil {
		t.Fatalf("QueryRecords() error = %v", err)
	}
	if assert.Len(t, records, 2) {
		arman := records[0]
		assert.Equal(t, "Arman", arman.StudentName)
		assert.Equal(t, "Physics", arman.SubjectName)
		assert.Nil(t, arman.PreviousClass)
		if assert.NotNil(t, arman.SubgroupID) {
			assert.Equal(t, 3, *arman.SubgroupID)
		}
		if assert.NotNil(t, arman.Actual[0]) {
			assert.Equal(t, 0.0, *arman.Actual[0])
		}
		assert.Equal(t, 90.0, *arman.Actual[1])

		zhanna := records[1]
		assert.Equal(t, risk.High, zhanna.DangerLevel)
		assert.Equal(t, -20.0, zhanna.Delta)
		assert.Nil(t, zhanna.Actual[1])
		assert.Equal(t, [4]float64{80, 80, 80, 80}, zhanna.Predicted)
	}

	records, err = repo.QueryRecords(ctx, core.NewGradeScope(2), 1)
	if err != nil {
		t.Fatalf("QueryRecords() error = %v", err)
	}
	assert.Empty(t, records, "grade outside scope")

	grades, err = repo.QueryGrades(ctx, core.NewGradeScope())
	assert.NoError(t, err)
	assert.Empty(t, grades, "no grade assigned")
}
