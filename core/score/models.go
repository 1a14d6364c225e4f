package score

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/prediction"
	"github.com/Bebdyshev/usp-backend/core/risk"
)

// Grade is a class, e.g. "10A".
type Grade struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	CuratorName string    `json:"curator_name" db:"curator_name"`
	CuratorID   *string   `json:"curator_id" db:"curator_id"` // account alerted on critical risk
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type Subject struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Student struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	GradeID   int       `json:"grade_id" db:"grade_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Record is the scores of one student in one subject for one semester.
// Absent actual quarters are nil; they are rendered as 0 in JSON.
type Record struct {
	ID            int
	StudentID     int
	StudentName   string // read-only, filled by queries
	SubjectID     int
	SubjectName   string // read-only, filled by queries
	GradeID       int
	SubgroupID    *int
	Semester      int
	AcademicYear  string
	TeacherName   string
	PreviousClass *float64
	Teacher       *float64
	Actual        [prediction.Quarters]*float64
	Predicted     [prediction.Quarters]float64
	DangerLevel   risk.Level
	Delta         float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Key identifies the record an import upserts.
func (r Record) Key() RecordKey {
	return RecordKey{StudentID: r.StudentID, SubjectID: r.SubjectID, Semester: r.Semester}
}

// ActualScores returns the actual quarters with absent ones as 0.
func (r Record) ActualScores() [prediction.Quarters]float64 {
	var out [prediction.Quarters]float64
	for i, a := range r.Actual {
		if a != nil {
			out[i] = *a
		}
	}
	return out
}

// Assess recomputes the forecast and the danger level from the record's inputs.
func (r *Record) Assess(w prediction.Weights, classifier risk.Classifier) {
	r.Predicted = prediction.Predict(prediction.Input{
		PreviousClass: r.PreviousClass,
		Teacher:       r.Teacher,
		Quarters:      r.Actual,
	}, w)
	r.setAssessment(classifier.Classify(r.Actual, r.Predicted))
}

func (r *Record) setAssessment(a risk.Assessment) {
	r.DangerLevel = a.Level
	r.Delta = a.Delta
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID                 int                          `json:"id"`
		StudentID          int                          `json:"student_id"`
		StudentName        string                       `json:"student_name"`
		SubjectID          int                          `json:"subject_id"`
		SubjectName        string                       `json:"subject_name"`
		GradeID            int                          `json:"grade_id"`
		SubgroupID         *int                         `json:"subgroup_id"`
		Semester           int                          `json:"semester"`
		AcademicYear       string                       `json:"academic_year"`
		TeacherName        string                       `json:"teacher_name"`
		PreviousClassScore *float64                     `json:"previous_class_score"`
		TeacherScore       *float64                     `json:"teacher_score"`
		ActualScores       [prediction.Quarters]float64 `json:"actual_scores"`
		PredictedScores    [prediction.Quarters]float64 `json:"predicted_scores"`
		DangerLevel        risk.Level                   `json:"danger_level"`
		DeltaPercentage    float64                      `json:"delta_percentage"`
		UpdatedAt          time.Time                    `json:"updated_at"`
	}{
		ID:                 r.ID,
		StudentID:          r.StudentID,
		StudentName:        r.StudentName,
		SubjectID:          r.SubjectID,
		SubjectName:        r.SubjectName,
		GradeID:            r.GradeID,
		SubgroupID:         r.SubgroupID,
		Semester:           r.Semester,
		AcademicYear:       r.AcademicYear,
		TeacherName:        r.TeacherName,
		PreviousClassScore: r.PreviousClass,
		TeacherScore:       r.Teacher,
		ActualScores:       r.ActualScores(),
		PredictedScores:    r.Predicted,
		DangerLevel:        r.DangerLevel,
		DeltaPercentage:    r.Delta,
		UpdatedAt:          r.UpdatedAt,
	})
}

type RecordKey struct {
	StudentID int
	SubjectID int
	Semester  int
}

// RecordFilter narrows QueryRecords. Zero fields are ignored.
type RecordFilter struct {
	Scope     core.GradeScope
	GradeID   int
	SubjectID int
	StudentID int
	Semester  int
}

type NewGrade struct {
	Name        string  `json:"name" validate:"required,max=16"`
	CuratorName string  `json:"curator_name" validate:"max=128"`
	CuratorID   *string `json:"curator_id" validate:"omitempty,uuid4"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	ng.CuratorName = core.CleanString(ng.CuratorName)
	return validate.Struct(ng)
}

type NewSubject struct {
	Name string `json:"name" validate:"required,max=128"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	return validate.Struct(ns)
}

// ImportRequest identifies where the rows of an imported gradebook belong.
type ImportRequest struct {
	GradeID      int    `json:"grade_id" form:"grade_id" validate:"required"`
	SubjectID    int    `json:"subject_id" form:"subject_id" validate:"required"`
	Semester     int    `json:"semester" form:"semester" validate:"required,min=1,max=2"`
	AcademicYear string `json:"academic_year" form:"academic_year" validate:"required,max=16"`
	TeacherName  string `json:"teacher_name" form:"teacher_name" validate:"max=128"`
	SubgroupID   *int   `json:"subgroup_id" form:"subgroup_id"`
}

func (req *ImportRequest) Validate(validate *validator.Validate) error {
	req.AcademicYear = core.CleanString(req.AcademicYear)
	req.TeacherName = core.CleanString(req.TeacherName)
	return validate.Struct(req)
}

// LegacyImportRequest names the grade, its curator and the subject of a positional gradebook.
type LegacyImportRequest struct {
	Grade   string `json:"grade" form:"grade" validate:"required,max=16"`
	Curator string `json:"curator" form:"curator" validate:"max=128"`
	Subject string `json:"subject" form:"subject" validate:"required,max=128"`
}

func (req *LegacyImportRequest) Validate(validate *validator.Validate) error {
	req.Grade = core.CleanString(req.Grade)
	req.Curator = core.CleanString(req.Curator)
	req.Subject = core.CleanString(req.Subject)
	return validate.Struct(req)
}

// RecordUpdate is a manual edit. Actual replaces every quarter; nil scores leave the inputs untouched.
type RecordUpdate struct {
	Actual        [prediction.Quarters]*float64 `json:"actual_scores"`
	PreviousClass *float64                      `json:"previous_class_score"`
	Teacher       *float64                      `json:"teacher_score"`
}

// Validate checks that every given score is a percentage.
func (upd RecordUpdate) Validate() error {
	var flds []core.FieldError
	check := func(name string, v *float64) {
		if v != nil && (*v < 0 || *v > 100) {
			flds = append(flds, core.FieldError{Field: name, Error: "must be a percentage between 0 and 100"})
		}
	}
	for i, a := range upd.Actual {
		check(fmt.Sprintf("actual_scores[%d]", i), a)
	}
	check("previous_class_score", upd.PreviousClass)
	check("teacher_score", upd.Teacher)
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
