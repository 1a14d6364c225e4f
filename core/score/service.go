// Package score stores gradebook imports and manual edits as per-subject score records.
package score

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/prediction"
	"github.com/Bebdyshev/usp-backend/core/risk"
	"github.com/Bebdyshev/usp-backend/core/user"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrGradeExists    = errors.New("a grade with this name already exists")
	ErrSubjectExists  = errors.New("a subject with this name already exists")
	riskAlertTemplate = "risk_alert"
)

type Repository interface {
	QueryGrades(ctx context.Context, scope core.GradeScope, exec ...core.DBExecutor) ([]Grade, error)
	GetGrade(ctx context.Context, id int, exec ...core.DBExecutor) (Grade, error)
	FindGrade(ctx context.Context, name, curatorName string, exec ...core.DBExecutor) (Grade, error)
	CreateGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)

	QuerySubjects(ctx context.Context, exec ...core.DBExecutor) ([]Subject, error)
	GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (Subject, error)
	FindSubject(ctx context.Context, name string, exec ...core.DBExecutor) (Subject, error)
	CreateSubject(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)

	FindStudent(ctx context.Context, name string, gradeID int, exec ...core.DBExecutor) (Student, error)
	// CreateStudent and CreateRecord upsert on the natural key, so a
	// concurrent first import of the same row resolves to one row.
	CreateStudent(ctx context.Context, st Student, exec ...core.DBExecutor) (Student, error)

	QueryRecords(ctx context.Context, filter RecordFilter, exec ...core.DBExecutor) ([]Record, error)
	// GetRecord and FindRecord may lock the row when exec is a transaction.
	GetRecord(ctx context.Context, id int, exec ...core.DBExecutor) (Record, error)
	FindRecord(ctx context.Context, key RecordKey, exec ...core.DBExecutor) (Record, error)
	CreateRecord(ctx context.Context, r Record, exec ...core.DBExecutor) (Record, error)
	UpdateRecord(ctx context.Context, r Record, exec ...core.DBExecutor) (Record, error)
}

// SettingsReader provides the administrator-owned configuration read once per import.
type SettingsReader interface {
	ActiveWeights(ctx context.Context) (prediction.Weights, error)
	ColumnMapping(ctx context.Context) (gradebook.ColumnMapping, error)
}

// UserGetter resolves the curator of a grade.
type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Policies are the risk classifiers of each call site.
type Policies struct {
	Import risk.Classifier
	Edit   risk.Classifier
	Legacy risk.Classifier
}

// PoliciesFromConfig looks the configured policies up by name.
func PoliciesFromConfig(conf *core.Config) (Policies, error) {
	var p Policies
	var err error
	if p.Import, err = risk.ByName(conf.Risk.ImportPolicy); err != nil {
		return p, errors.Wrap(err, "import policy")
	}
	if p.Edit, err = risk.ByName(conf.Risk.EditPolicy); err != nil {
		return p, errors.Wrap(err, "edit policy")
	}
	if p.Legacy, err = risk.ByName(conf.Risk.LegacyPolicy); err != nil {
		return p, errors.Wrap(err, "legacy policy")
	}
	return p, nil
}

type Service struct {
	conf     *core.Config
	tx       core.TxRunner
	repo     Repository
	settings SettingsReader
	users    UserGetter
	mailer   core.EmailService
	logger   core.Logger
	policies Policies
}

func NewService(
	conf *core.Config,
	tx core.TxRunner,
	repo Repository,
	settings SettingsReader,
	users UserGetter,
	mailer core.EmailService,
	logger core.Logger,
	policies Policies,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(conf, "conf"),
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(settings, "settings"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(mailer, "mailer"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(policies.Import, "policies.Import"),
		vala.IsNotNil(policies.Edit, "policies.Edit"),
		vala.IsNotNil(policies.Legacy, "policies.Legacy"),
	).CheckAndPanic()

	return &Service{
		conf:     conf,
		tx:       tx,
		repo:     repo,
		settings: settings,
		users:    users,
		mailer:   mailer,
		logger:   logger,
		policies: policies,
	}
}

// ImportResult is the outcome of a committed import.
type ImportResult struct {
	ImportID           string                     `json:"import_id"`
	ImportedCount      int                        `json:"imported_count"`
	CreatedCount       int                        `json:"created_count"`
	UpdatedCount       int                        `json:"updated_count"`
	Warnings           []string                   `json:"warnings"`
	Errors             []string                   `json:"errors"`
	ColumnMapping      map[gradebook.Field]string `json:"column_mapping"`
	DangerDistribution risk.Distribution          `json:"danger_distribution"`
	Students           []gradebook.StudentRow     `json:"students"`
}

// Import parses a gradebook and upserts one record per student row for the requested
// grade, subject and semester. Every write happens in a single transaction.
func (svc *Service) Import(ctx context.Context, req ImportRequest, file io.Reader, scope core.GradeScope) (ImportResult, error) {
	if !scope.Allows(req.GradeID) {
		return ImportResult{}, core.ErrForbidden
	}

	weights, err := svc.settings.ActiveWeights(ctx)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "loading weights")
	}
	mapping, err := svc.settings.ColumnMapping(ctx)
	if err != nil {
		return ImportResult{}, errors.Wrap(err, "loading column mapping")
	}

	parsed, err := gradebook.Parse(file, gradebook.Options{
		Mapping:    mapping,
		Weights:    weights,
		Classifier: svc.policies.Import,
	})
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{
		ImportID:           uuid.New().String(),
		Warnings:           nonNil(parsed.Warnings),
		Errors:             nonNil(parsed.ErrorMessages()),
		ColumnMapping:      parsed.Columns.Headers(),
		DangerDistribution: parsed.Distribution,
		Students:           parsed.Students,
	}

	var grade Grade
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if grade, err = svc.repo.GetGrade(ctx, req.GradeID, exec); err != nil {
			return errors.Wrap(err, "getting grade")
		}
		if _, err = svc.repo.GetSubject(ctx, req.SubjectID, exec); err != nil {
			return errors.Wrap(err, "getting subject")
		}

		for _, st := range parsed.Students {
			rec := Record{
				GradeID:       req.GradeID,
				SubjectID:     req.SubjectID,
				SubgroupID:    req.SubgroupID,
				Semester:      req.Semester,
				AcademicYear:  req.AcademicYear,
				TeacherName:   req.TeacherName,
				PreviousClass: st.PreviousClass,
				Teacher:       st.Teacher,
				Actual:        st.Actual,
				Predicted:     st.Predicted,
			}
			rec.setAssessment(st.Risk)

			created, err := svc.upsert(ctx, exec, st.Name, rec)
			if err != nil {
				return errors.Wrapf(err, "row %d", st.Row)
			}
			if created {
				res.CreatedCount++
			} else {
				res.UpdatedCount++
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	res.ImportedCount = len(parsed.Students)

	svc.logger.Info("gradebook imported", map[string]interface{}{
		"import_id":    res.ImportID,
		"grade_id":     req.GradeID,
		"subject_id":   req.SubjectID,
		"semester":     req.Semester,
		"imported":     res.ImportedCount,
		"created":      res.CreatedCount,
		"updated":      res.UpdatedCount,
		"warnings":     len(res.Warnings),
		"errors":       len(res.Errors),
		"distribution": res.DangerDistribution,
	})
	for _, e := range parsed.Errors {
		svc.logger.Warn(e.Error(), map[string]interface{}{"import_id": res.ImportID})
	}

	svc.alertCritical(ctx, grade, criticalNames(parsed.Students))
	return res, nil
}

// upsert finds the student by name within the grade (creating it when missing) and creates or
// replaces its record for rec's subject and semester.
func (svc *Service) upsert(ctx context.Context, exec core.DBExecutor, name string, rec Record) (created bool, err error) {
	student, err := svc.repo.FindStudent(ctx, name, rec.GradeID, exec)
	switch {
	case errors.Cause(err) == ErrNotFound:
		student, err = svc.repo.CreateStudent(ctx, Student{Name: name, GradeID: rec.GradeID, CreatedAt: time.Now().UTC()}, exec)
		if err != nil {
			return false, errors.Wrap(err, "creating student")
		}
	case err != nil:
		return false, errors.Wrap(err, "finding student")
	}
	rec.StudentID = student.ID

	now := time.Now().UTC()
	existing, err := svc.repo.FindRecord(ctx, rec.Key(), exec)
	switch {
	case errors.Cause(err) == ErrNotFound:
		rec.CreatedAt, rec.UpdatedAt = now, now
		if _, err = svc.repo.CreateRecord(ctx, rec, exec); err != nil {
			return false, errors.Wrap(err, "creating record")
		}
		return true, nil
	case err != nil:
		return false, errors.Wrap(err, "finding record")
	}

	rec.ID = existing.ID
	rec.CreatedAt, rec.UpdatedAt = existing.CreatedAt, now
	if _, err = svc.repo.UpdateRecord(ctx, rec, exec); err != nil {
		return false, errors.Wrap(err, "updating record")
	}
	return false, nil
}

// LegacyImportResult is the outcome of a committed positional import.
type LegacyImportResult struct {
	ImportID           string                `json:"import_id"`
	GradeID            int                   `json:"grade_id"`
	SubjectID          int                   `json:"subject_id"`
	ImportedCount      int                   `json:"imported_count"`
	Warnings           []string              `json:"warnings"`
	DangerDistribution risk.Distribution     `json:"danger_distribution"`
	Students           []gradebook.LegacyRow `json:"students"`
}

// ImportLegacy stores a positional gradebook whose forecasts were entered by the teacher.
// The grade is found by name and curator name and created when missing, which only an
// unrestricted scope may do. Records land in the configured academic year and semester.
func (svc *Service) ImportLegacy(ctx context.Context, req LegacyImportRequest, file io.Reader, scope core.GradeScope) (LegacyImportResult, error) {
	parsed, err := gradebook.ParseLegacy(file, svc.policies.Legacy)
	if err != nil {
		return LegacyImportResult{}, err
	}

	res := LegacyImportResult{
		ImportID:           uuid.New().String(),
		Warnings:           nonNil(parsed.Warnings),
		DangerDistribution: parsed.Distribution,
		Students:           parsed.Students,
	}

	var grade Grade
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		grade, err = svc.repo.FindGrade(ctx, req.Grade, req.Curator, exec)
		switch {
		case errors.Cause(err) == ErrNotFound:
			if scope.IsRestricted() {
				return core.ErrForbidden
			}
			grade, err = svc.repo.CreateGrade(ctx, Grade{Name: req.Grade, CuratorName: req.Curator, CreatedAt: time.Now().UTC()}, exec)
			if err != nil {
				return errors.Wrap(err, "creating grade")
			}
		case err != nil:
			return errors.Wrap(err, "finding grade")
		case !scope.Allows(grade.ID):
			return core.ErrForbidden
		}

		subject, err := svc.repo.FindSubject(ctx, req.Subject, exec)
		switch {
		case errors.Cause(err) == ErrNotFound:
			if subject, err = svc.repo.CreateSubject(ctx, Subject{Name: req.Subject, CreatedAt: time.Now().UTC()}, exec); err != nil {
				return errors.Wrap(err, "creating subject")
			}
		case err != nil:
			return errors.Wrap(err, "finding subject")
		}
		res.GradeID, res.SubjectID = grade.ID, subject.ID

		for _, st := range parsed.Students {
			rec := Record{
				GradeID:      grade.ID,
				SubjectID:    subject.ID,
				Semester:     svc.conf.Gradebook.Semester,
				AcademicYear: svc.conf.Gradebook.AcademicYear,
				TeacherName:  req.Curator,
				Actual:       st.Actual,
				Predicted:    st.Predicted,
			}
			rec.setAssessment(st.Risk)
			if _, err := svc.upsert(ctx, exec, st.Name, rec); err != nil {
				return errors.Wrapf(err, "row %d", st.Row)
			}
		}
		return nil
	})
	if err != nil {
		return LegacyImportResult{}, err
	}
	res.ImportedCount = len(parsed.Students)

	svc.logger.Info("legacy gradebook imported", map[string]interface{}{
		"import_id":    res.ImportID,
		"grade_id":     res.GradeID,
		"subject_id":   res.SubjectID,
		"imported":     res.ImportedCount,
		"warnings":     len(res.Warnings),
		"distribution": res.DangerDistribution,
	})

	var critical []string
	for _, st := range parsed.Students {
		if st.Risk.Level == risk.Critical {
			critical = append(critical, st.Name)
		}
	}
	svc.alertCritical(ctx, grade, critical)
	return res, nil
}

// UpdateRecord applies a manual edit, then re-predicts with the active weights and
// re-classifies with the edit policy.
func (svc *Service) UpdateRecord(ctx context.Context, id int, upd RecordUpdate, scope core.GradeScope) (Record, error) {
	if err := upd.Validate(); err != nil {
		return Record{}, err
	}
	weights, err := svc.settings.ActiveWeights(ctx)
	if err != nil {
		return Record{}, errors.Wrap(err, "loading weights")
	}

	var rec Record
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if rec, err = svc.repo.GetRecord(ctx, id, exec); err != nil {
			return err
		}
		if !scope.Allows(rec.GradeID) {
			return core.ErrForbidden
		}

		rec.Actual = upd.Actual
		if upd.PreviousClass != nil {
			rec.PreviousClass = upd.PreviousClass
		}
		if upd.Teacher != nil {
			rec.Teacher = upd.Teacher
		}
		rec.Assess(weights, svc.policies.Edit)
		rec.UpdatedAt = time.Now().UTC()

		rec, err = svc.repo.UpdateRecord(ctx, rec, exec)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Records returns the records matching filter, restricted to scope.
func (svc *Service) Records(ctx context.Context, filter RecordFilter, scope core.GradeScope) ([]Record, error) {
	if filter.GradeID != 0 && !scope.Allows(filter.GradeID) {
		return nil, core.ErrForbidden
	}
	filter.Scope = scope
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *Service) Grades(ctx context.Context, scope core.GradeScope) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, scope)
}

func (svc *Service) CreateGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	g, err := svc.repo.CreateGrade(ctx, Grade{
		Name:        ng.Name,
		CuratorName: ng.CuratorName,
		CuratorID:   ng.CuratorID,
		CreatedAt:   time.Now().UTC(),
	})
	if errors.Cause(err) == ErrGradeExists {
		return Grade{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return g, err
}

func (svc *Service) Subjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx)
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	s, err := svc.repo.CreateSubject(ctx, Subject{Name: ns.Name, CreatedAt: time.Now().UTC()})
	if errors.Cause(err) == ErrSubjectExists {
		return Subject{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return s, err
}

// alertCritical e-mails the grade's curator the students at critical risk.
// Failures are logged; the import is already committed.
func (svc *Service) alertCritical(ctx context.Context, grade Grade, students []string) {
	if len(students) == 0 || grade.CuratorID == nil {
		return
	}
	curator, err := svc.users.GetByID(ctx, *grade.CuratorID)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("getting curator of grade %d: %v", grade.ID, err), err)
		return
	}
	if !curator.Active() {
		return
	}

	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: curator.Name, Address: curator.Email}},
		Subject:      fmt.Sprintf("%s: %d students at critical risk", grade.Name, len(students)),
		TemplateName: riskAlertTemplate,
		TemplateData: map[string]interface{}{
			"Curator":  curator.Name,
			"Grade":    grade.Name,
			"Students": students,
		},
	})
}

func criticalNames(rows []gradebook.StudentRow) []string {
	var names []string
	for _, st := range rows {
		if st.Risk.Level == risk.Critical {
			names = append(names, st.Name)
		}
	}
	return names
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
