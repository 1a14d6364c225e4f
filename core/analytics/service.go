// Package analytics rolls persisted score records up into per-student, per-class and cohort summaries.
package analytics

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/score"
)

// Repository is read-only. A zero gradeID means every grade of scope.
type Repository interface {
	QueryGrades(ctx context.Context, scope core.GradeScope) ([]score.Grade, error)
	QueryStudents(ctx context.Context, scope core.GradeScope, gradeID int) ([]score.Student, error)
	QueryRecords(ctx context.Context, scope core.GradeScope, gradeID int) ([]score.Record, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

type snapshot struct {
	grades   []score.Grade
	students []score.Student
	records  []score.Record
}

// load reads grades, students and records concurrently.
func (svc *Service) load(ctx context.Context, scope core.GradeScope, gradeID int, withStudents bool) (snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.grades, err = svc.repo.QueryGrades(ctx, scope)
		return errors.Wrap(err, "querying grades")
	})
	if withStudents {
		g.Go(func() (err error) {
			snap.students, err = svc.repo.QueryStudents(ctx, scope, gradeID)
			return errors.Wrap(err, "querying students")
		})
	}
	g.Go(func() (err error) {
		snap.records, err = svc.repo.QueryRecords(ctx, scope, gradeID)
		return errors.Wrap(err, "querying records")
	})
	return snap, g.Wait()
}

// CohortStats returns the dashboard overview over scope.
func (svc *Service) CohortStats(ctx context.Context, scope core.GradeScope) (CohortStats, error) {
	snap, err := svc.load(ctx, scope, 0, false)
	if err != nil {
		return CohortStats{}, err
	}
	return ComputeCohortStats(snap.grades, snap.records), nil
}

// Classes returns a summary per visible grade.
func (svc *Service) Classes(ctx context.Context, scope core.GradeScope) ([]ClassSummary, error) {
	snap, err := svc.load(ctx, scope, 0, true)
	if err != nil {
		return nil, err
	}
	return SummarizeClasses(snap.grades, SummarizeStudents(snap.students, snap.records)), nil
}

// ClassDetail is a class with its students' subject scores.
type ClassDetail struct {
	GradeID        int              `json:"grade_id"`
	ClassName      string           `json:"class_name"`
	CuratorName    string           `json:"curator_name"`
	AvgDangerLevel float64          `json:"avg_danger_level"`
	Students       []StudentSummary `json:"students"`
}

func (svc *Service) ClassDetail(ctx context.Context, gradeID int, scope core.GradeScope) (ClassDetail, error) {
	if !scope.Allows(gradeID) {
		return ClassDetail{}, core.ErrForbidden
	}
	snap, err := svc.load(ctx, scope, gradeID, true)
	if err != nil {
		return ClassDetail{}, err
	}

	for _, g := range snap.grades {
		if g.ID != gradeID {
			continue
		}
		students := SummarizeStudents(snap.students, snap.records)
		return ClassDetail{
			GradeID:        g.ID,
			ClassName:      g.Name,
			CuratorName:    g.CuratorName,
			AvgDangerLevel: ClassAverageDanger(students),
			Students:       students,
		}, nil
	}
	return ClassDetail{}, score.ErrNotFound
}

// Students returns the student summaries of one grade, or of every visible grade when gradeID is 0.
func (svc *Service) Students(ctx context.Context, gradeID int, scope core.GradeScope) ([]StudentSummary, error) {
	if gradeID != 0 && !scope.Allows(gradeID) {
		return nil, core.ErrForbidden
	}
	snap, err := svc.load(ctx, scope, gradeID, true)
	if err != nil {
		return nil, err
	}
	return SummarizeStudents(snap.students, snap.records), nil
}

// ClassData groups the records of every visible grade.
type ClassData struct {
	GradeID     int            `json:"grade_id"`
	Grade       string         `json:"grade_liter"`
	CuratorName string         `json:"curator_name"`
	Records     []score.Record `json:"class"`
}

func (svc *Service) ClassData(ctx context.Context, scope core.GradeScope) ([]ClassData, error) {
	snap, err := svc.load(ctx, scope, 0, false)
	if err != nil {
		return nil, err
	}
	byGrade := make(map[int][]score.Record, len(snap.grades))
	for _, r := range snap.records {
		byGrade[r.GradeID] = append(byGrade[r.GradeID], r)
	}
	out := make([]ClassData, 0, len(snap.grades))
	for _, g := range snap.grades {
		recs := byGrade[g.ID]
		if recs == nil {
			recs = []score.Record{}
		}
		out = append(out, ClassData{GradeID: g.ID, Grade: g.Name, CuratorName: g.CuratorName, Records: recs})
	}
	return out, nil
}
