package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/score"
)

type scoreRepository struct {
	db *DB
}

func NewScoreRepository(db *DB) score.Repository {
	return &scoreRepository{db: db}
}

func (repo *scoreRepository) QueryGrades(_ context.Context, scope core.GradeScope, _ ...core.DBExecutor) ([]score.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return visibleGrades(repo.db.data, scope), nil
}

func visibleGrades(t tables, scope core.GradeScope) []score.Grade {
	out := make([]score.Grade, 0, len(t.grades))
	for _, g := range t.grades {
		if scope.Allows(g.ID) {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (repo *scoreRepository) GetGrade(_ context.Context, id int, _ ...core.DBExecutor) (score.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.data.grades[id]; ok {
		return g, nil
	}
	return score.Grade{}, score.ErrNotFound
}

func (repo *scoreRepository) FindGrade(_ context.Context, name, curatorName string, _ ...core.DBExecutor) (score.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, g := range repo.db.data.grades {
		if g.Name == name && g.CuratorName == curatorName {
			return g, nil
		}
	}
	return score.Grade{}, score.ErrNotFound
}

func (repo *scoreRepository) CreateGrade(_ context.Context, g score.Grade, _ ...core.DBExecutor) (score.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.data.grades {
		if existing.Name == g.Name && existing.CuratorName == g.CuratorName {
			return score.Grade{}, score.ErrGradeExists
		}
	}
	g.ID = repo.db.nextPK()
	repo.db.data.grades[g.ID] = g
	return g, nil
}

func (repo *scoreRepository) QuerySubjects(_ context.Context, _ ...core.DBExecutor) ([]score.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]score.Subject, 0, len(repo.db.data.subjects))
	for _, s := range repo.db.data.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (repo *scoreRepository) GetSubject(_ context.Context, id int, _ ...core.DBExecutor) (score.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.data.subjects[id]; ok {
		return s, nil
	}
	return score.Subject{}, score.ErrNotFound
}

func (repo *scoreRepository) FindSubject(_ context.Context, name string, _ ...core.DBExecutor) (score.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.data.subjects {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return score.Subject{}, score.ErrNotFound
}

func (repo *scoreRepository) CreateSubject(_ context.Context, s score.Subject, _ ...core.DBExecutor) (score.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.data.subjects {
		if strings.EqualFold(existing.Name, s.Name) {
			return score.Subject{}, score.ErrSubjectExists
		}
	}
	s.ID = repo.db.nextPK()
	repo.db.data.subjects[s.ID] = s
	return s, nil
}

func (repo *scoreRepository) FindStudent(_ context.Context, name string, gradeID int, _ ...core.DBExecutor) (score.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, st := range repo.db.data.students {
		if st.Name == name && st.GradeID == gradeID {
			return st, nil
		}
	}
	return score.Student{}, score.ErrNotFound
}

func (repo *scoreRepository) CreateStudent(_ context.Context, st score.Student, _ ...core.DBExecutor) (score.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.data.students {
		if existing.Name == st.Name && existing.GradeID == st.GradeID {
			return existing, nil
		}
	}
	st.ID = repo.db.nextPK()
	repo.db.data.students[st.ID] = st
	return st, nil
}

func (repo *scoreRepository) QueryRecords(_ context.Context, filter score.RecordFilter, _ ...core.DBExecutor) ([]score.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return filterRecords(repo.db.data, filter), nil
}

func filterRecords(t tables, f score.RecordFilter) []score.Record {
	out := make([]score.Record, 0)
	for _, r := range t.records {
		switch {
		case !f.Scope.Allows(r.GradeID),
			f.GradeID != 0 && r.GradeID != f.GradeID,
			f.SubjectID != 0 && r.SubjectID != f.SubjectID,
			f.StudentID != 0 && r.StudentID != f.StudentID,
			f.Semester != 0 && r.Semester != f.Semester:
			continue
		}
		out = append(out, withNames(t, r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func withNames(t tables, r score.Record) score.Record {
	r.StudentName = t.students[r.StudentID].Name
	r.SubjectName = t.subjects[r.SubjectID].Name
	return r
}

func (repo *scoreRepository) GetRecord(_ context.Context, id int, _ ...core.DBExecutor) (score.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.data.records[id]; ok {
		return withNames(repo.db.data, r), nil
	}
	return score.Record{}, score.ErrNotFound
}

func (repo *scoreRepository) FindRecord(_ context.Context, key score.RecordKey, _ ...core.DBExecutor) (score.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, r := range repo.db.data.records {
		if r.Key() == key {
			return withNames(repo.db.data, r), nil
		}
	}
	return score.Record{}, score.ErrNotFound
}

func (repo *scoreRepository) CreateRecord(_ context.Context, r score.Record, _ ...core.DBExecutor) (score.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	r.ID = 0
	for id, existing := range repo.db.data.records {
		if existing.Key() == r.Key() {
			r.ID, r.CreatedAt = id, existing.CreatedAt
			break
		}
	}
	if r.ID == 0 {
		r.ID = repo.db.nextPK()
	}
	repo.db.data.records[r.ID] = r
	return withNames(repo.db.data, r), nil
}

func (repo *scoreRepository) UpdateRecord(_ context.Context, r score.Record, _ ...core.DBExecutor) (score.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.data.records[r.ID]; !ok {
		return score.Record{}, score.ErrNotFound
	}
	repo.db.data.records[r.ID] = r
	return withNames(repo.db.data, r), nil
}
