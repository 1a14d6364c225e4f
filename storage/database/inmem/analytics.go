package inmemdb

import (
	"context"
	"sort"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/analytics"
	"github.com/Bebdyshev/usp-backend/core/score"
)

type analyticsRepository struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) analytics.Repository {
	return &analyticsRepository{db: db}
}

func (repo *analyticsRepository) QueryGrades(_ context.Context, scope core.GradeScope) ([]score.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return visibleGrades(repo.db.data, scope), nil
}

func (repo *analyticsRepository) QueryStudents(_ context.Context, scope core.GradeScope, gradeID int) ([]score.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]score.Student, 0)
	for _, st := range repo.db.data.students {
		if scope.Allows(st.GradeID) && (gradeID == 0 || st.GradeID == gradeID) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (repo *analyticsRepository) QueryRecords(_ context.Context, scope core.GradeScope, gradeID int) ([]score.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return filterRecords(repo.db.data, score.RecordFilter{Scope: scope, GradeID: gradeID}), nil
}
