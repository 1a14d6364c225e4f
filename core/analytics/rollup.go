package analytics

import (
	"math"
	"sort"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/prediction"
	"github.com/Bebdyshev/usp-backend/core/risk"
	"github.com/Bebdyshev/usp-backend/core/score"
)

// StudentAverageScore averages the completed actual quarters over every subject of a student,
// rounded to two decimals. It is 0 when nothing is completed.
func StudentAverageScore(records []score.Record) float64 {
	var sum float64
	var n int
	for _, r := range records {
		for _, a := range r.Actual {
			if prediction.IsCompleted(a) {
				sum += *a
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return core.Round(sum/float64(n), 2)
}

// AverageDanger is the mean danger level of records, 0 for none.
func AverageDanger(records []score.Record) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += float64(r.DangerLevel)
	}
	return sum / float64(len(records))
}

// StudentDangerLevel rounds the average danger of a student's subjects half to even.
func StudentDangerLevel(records []score.Record) risk.Level {
	return risk.Level(math.RoundToEven(AverageDanger(records)))
}

// StudentSummary rolls up the records of one student.
type StudentSummary struct {
	StudentID     int                                     `json:"student_id"`
	Name          string                                  `json:"name"`
	GradeID       int                                     `json:"grade_id"`
	AverageScore  float64                                 `json:"average_score"`
	AverageDanger float64                                 `json:"average_danger"`
	DangerLevel   risk.Level                              `json:"danger_level"`
	Subjects      map[string][prediction.Quarters]float64 `json:"grades"`
}

// SummarizeStudents returns one summary per student, in the order given.
func SummarizeStudents(students []score.Student, records []score.Record) []StudentSummary {
	byStudent := make(map[int][]score.Record, len(students))
	for _, r := range records {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}

	out := make([]StudentSummary, 0, len(students))
	for _, st := range students {
		recs := byStudent[st.ID]
		subjects := make(map[string][prediction.Quarters]float64, len(recs))
		for _, r := range recs {
			subjects[r.SubjectName] = r.ActualScores()
		}
		out = append(out, StudentSummary{
			StudentID:     st.ID,
			Name:          st.Name,
			GradeID:       st.GradeID,
			AverageScore:  StudentAverageScore(recs),
			AverageDanger: AverageDanger(recs),
			DangerLevel:   StudentDangerLevel(recs),
			Subjects:      subjects,
		})
	}
	return out
}

// ClassAverageDanger averages the unrounded student averages. Students without records count as 0.
func ClassAverageDanger(students []StudentSummary) float64 {
	if len(students) == 0 {
		return 0
	}
	var sum float64
	for _, st := range students {
		sum += st.AverageDanger
	}
	return sum / float64(len(students))
}

// ClassSummary describes one class and its students per danger level.
type ClassSummary struct {
	GradeID        int                    `json:"grade_id"`
	Grade          string                 `json:"grade"`
	CuratorName    string                 `json:"curator_name"`
	StudentCount   int                    `json:"student_count"`
	AvgDangerLevel float64                `json:"avg_danger_level"`
	LevelCounts    risk.Distribution      `json:"level_counts"`
	LevelShares    map[risk.Level]float64 `json:"level_percentages"`
}

// SummarizeClasses builds a summary per grade. The share of a level in a class is its count of
// students at that level over the count of students at that level in all classes, in percent
// with two decimals.
func SummarizeClasses(grades []score.Grade, students []StudentSummary) []ClassSummary {
	byGrade := make(map[int][]StudentSummary, len(grades))
	for _, st := range students {
		byGrade[st.GradeID] = append(byGrade[st.GradeID], st)
	}

	totals := risk.NewDistribution()
	out := make([]ClassSummary, 0, len(grades))
	for _, g := range grades {
		sts := byGrade[g.ID]
		counts := risk.NewDistribution()
		for _, st := range sts {
			counts.Add(st.DangerLevel)
			totals.Add(st.DangerLevel)
		}
		out = append(out, ClassSummary{
			GradeID:        g.ID,
			Grade:          g.Name,
			CuratorName:    g.CuratorName,
			StudentCount:   len(sts),
			AvgDangerLevel: ClassAverageDanger(sts),
			LevelCounts:    counts,
		})
	}

	for i := range out {
		out[i].LevelShares = make(map[risk.Level]float64, len(risk.Levels))
		for _, l := range risk.Levels {
			var share float64
			if totals[l] > 0 {
				share = core.Round(float64(out[i].LevelCounts[l])/float64(totals[l])*100, 2)
			}
			out[i].LevelShares[l] = share
		}
	}
	return out
}

// LevelStats counts the records at one danger level.
type LevelStats struct {
	StudentCount       int      `json:"student_count"`
	AvgDeltaPercentage *float64 `json:"avg_delta_percentage"`
}

// ClassDanger is the mean danger level over the records of a class.
type ClassDanger struct {
	GradeID        int     `json:"grade_id"`
	Grade          string  `json:"grade"`
	AvgDangerLevel float64 `json:"avg_danger_level"`
}

// CohortStats is the dashboard overview over every visible record.
type CohortStats struct {
	Levels         map[risk.Level]LevelStats `json:"danger_level_stats"`
	TotalStudents  int                       `json:"total_students"`
	AvgDangerLevel *float64                  `json:"avg_danger_level"`
	Classes        []ClassDanger             `json:"all_dangerous_classes"`
}

// ComputeCohortStats counts records per non-normal level and ranks the classes having records
// by average danger level, highest first.
func ComputeCohortStats(grades []score.Grade, records []score.Record) CohortStats {
	stats := CohortStats{
		Levels:        make(map[risk.Level]LevelStats, len(risk.Levels)-1),
		TotalStudents: len(records),
		Classes:       []ClassDanger{},
	}

	deltas := make(map[risk.Level]float64)
	byGrade := make(map[int][]score.Record)
	for _, r := range records {
		byGrade[r.GradeID] = append(byGrade[r.GradeID], r)
		if r.DangerLevel == risk.Normal {
			continue
		}
		ls := stats.Levels[r.DangerLevel]
		ls.StudentCount++
		stats.Levels[r.DangerLevel] = ls
		deltas[r.DangerLevel] += r.Delta
	}
	for _, l := range risk.Levels[1:] {
		ls := stats.Levels[l]
		if ls.StudentCount > 0 {
			ls.AvgDeltaPercentage = core.Float64Ptr(deltas[l] / float64(ls.StudentCount))
		}
		stats.Levels[l] = ls
	}
	if len(records) > 0 {
		stats.AvgDangerLevel = core.Float64Ptr(AverageDanger(records))
	}

	for _, g := range grades {
		recs, ok := byGrade[g.ID]
		if !ok {
			continue
		}
		stats.Classes = append(stats.Classes, ClassDanger{GradeID: g.ID, Grade: g.Name, AvgDangerLevel: AverageDanger(recs)})
	}
	sort.SliceStable(stats.Classes, func(i, j int) bool {
		if stats.Classes[i].AvgDangerLevel != stats.Classes[j].AvgDangerLevel {
			return stats.Classes[i].AvgDangerLevel > stats.Classes[j].AvgDangerLevel
		}
		return stats.Classes[i].Grade < stats.Classes[j].Grade
	})
	return stats
}
