// Package prediction forecasts the four quarter scores of a student in a subject.
package prediction

import (
	"math"

	"github.com/Bebdyshev/usp-backend/core"
)

// Quarters is the number of quarters in an academic year.
const Quarters = 4

// Weights are the contributions of each input to a forecast.
// They are expected to sum to 1.0; that is enforced where an administrator edits them, not here.
type Weights struct {
	PreviousClass float64 `json:"previous_class"`
	Teacher       float64 `json:"teacher"`
	Quarters      float64 `json:"quarters"`
}

// Input holds one student's known scores for one subject. nil means absent.
type Input struct {
	PreviousClass *float64
	Teacher       *float64
	Quarters      [Quarters]*float64
}

// Predict returns the forecast for Q1..Q4, each rounded to one decimal.
//
// Q1 uses the base forecast. Each later quarter i blends the previous-class and teacher scores
// with the average of the completed quarters before i, falling back to the base forecast
// while no earlier quarter is completed.
func Predict(in Input, w Weights) [Quarters]float64 {
	var out [Quarters]float64

	base := basePrediction(in.PreviousClass, in.Teacher, w)
	out[0] = core.Round(base, 1)

	for i := 1; i < Quarters; i++ {
		avg, ok := completedAverage(in.Quarters[:i])
		if !ok {
			out[i] = core.Round(base, 1)
			continue
		}
		out[i] = core.Round(trendPrediction(in.PreviousClass, in.Teacher, avg, w), 1)
	}
	return out
}

// basePrediction is the weighted average of the present inputs, renormalized over their weights.
// It is 0 when both inputs are absent or their weights add up to nothing.
func basePrediction(prev, teacher *float64, w Weights) float64 {
	var sum, weight float64
	if prev != nil {
		sum += w.PreviousClass * *prev
		weight += w.PreviousClass
	}
	if teacher != nil {
		sum += w.Teacher * *teacher
		weight += w.Teacher
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

// trendPrediction mixes all three inputs without renormalization: an absent previous-class or
// teacher score counts as 0 and its weight is kept.
func trendPrediction(prev, teacher *float64, quartersAvg float64, w Weights) float64 {
	return w.PreviousClass*valueOrZero(prev) + w.Teacher*valueOrZero(teacher) + w.Quarters*quartersAvg
}

// completedAverage averages the completed quarters; ok is false when none is completed.
func completedAverage(quarters []*float64) (avg float64, ok bool) {
	var sum float64
	var n int
	for _, q := range quarters {
		if IsCompleted(q) {
			sum += *q
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// IsCompleted reports whether a quarter score counts as completed: present and strictly positive.
// A recorded 0 is treated like a quarter that has not happened yet.
func IsCompleted(q *float64) bool {
	return q != nil && !math.IsNaN(*q) && *q > 0
}

func valueOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
