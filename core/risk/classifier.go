// Package risk grades how far a student's actual quarter scores fall behind the forecast.
package risk

import (
	"math"

	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/prediction"
)

// Level is the danger level of a student in a subject: 0 (normal) to 3 (critical).
type Level int

const (
	Normal Level = iota
	Moderate
	High
	Critical
)

// Levels lists every level in ascending order.
var Levels = []Level{Normal, Moderate, High, Critical}

var ErrUnknownPolicy = errors.New("unknown risk policy")

func (l Level) String() string {
	switch l {
	case Normal:
		return "normal"
	case Moderate:
		return "moderate"
	case High:
		return "high"
	case Critical:
		return "critical"
	}
	return "unknown"
}

func (l Level) Valid() bool { return l >= Normal && l <= Critical }

// Assessment is the outcome of a classification.
// Delta is the policy's measure (percentage gap or score delta), rounded to one decimal.
type Assessment struct {
	Level Level   `json:"danger_level"`
	Delta float64 `json:"delta_percentage"`
}

// Classifier is a risk policy.
type Classifier interface {
	Name() string
	Classify(actual [prediction.Quarters]*float64, predicted [prediction.Quarters]float64) Assessment
}

// PercentageGap compares the summed absolute gap between actual and predicted quarters to the summed
// forecast. Absent actual quarters count as 0. It never yields Normal.
type PercentageGap struct {
	HighFrom     float64 // gap percentage from which the level is High
	CriticalOver float64 // gap percentage above which the level is Critical
}

var DefaultPercentageGap = PercentageGap{HighFrom: 10, CriticalOver: 20}

func (PercentageGap) Name() string { return "percentage-gap" }

func (p PercentageGap) Classify(actual [prediction.Quarters]*float64, predicted [prediction.Quarters]float64) Assessment {
	var gap, total float64
	for i := range predicted {
		var a float64
		if actual[i] != nil && !math.IsNaN(*actual[i]) {
			a = *actual[i]
		}
		gap += math.Abs(a - predicted[i])
		total += predicted[i]
	}
	pct := gap / math.Max(total, 1) * 100

	level := Moderate
	switch {
	case pct > p.CriticalOver:
		level = Critical
	case pct >= p.HighFrom:
		level = High
	}
	return Assessment{Level: level, Delta: core.Round(pct, 1)}
}

// Delta compares the average of the completed actual quarters with the average of as many leading
// predicted quarters. With no completed quarter the level is Normal and the delta 0.
type Delta struct {
	name string
	// Thresholds are the lower bounds of Normal, Moderate and High, in decreasing order.
	// Anything below the last one is Critical.
	Thresholds [3]float64
}

var (
	// DeltaStandard uses -5/-15/-25 and applies to bulk gradebook imports.
	DeltaStandard = Delta{name: "delta-standard", Thresholds: [3]float64{-5, -15, -25}}
	// DeltaNarrow uses -5/-10/-15 and applies to manual score edits.
	DeltaNarrow = Delta{name: "delta-narrow", Thresholds: [3]float64{-5, -10, -15}}
)

func (d Delta) Name() string { return d.name }

func (d Delta) Classify(actual [prediction.Quarters]*float64, predicted [prediction.Quarters]float64) Assessment {
	var sumActual float64
	var n int
	for _, a := range actual {
		if prediction.IsCompleted(a) {
			sumActual += *a
			n++
		}
	}
	if n == 0 {
		return Assessment{Level: Normal}
	}

	var sumPredicted float64
	for _, p := range predicted[:n] {
		sumPredicted += p
	}
	delta := sumActual/float64(n) - sumPredicted/float64(n)

	// levels use the exact delta; only the reported value is rounded
	level := Critical
	for i, threshold := range d.Thresholds {
		if delta >= threshold {
			level = Level(i)
			break
		}
	}
	return Assessment{Level: level, Delta: core.Round(delta, 1)}
}

// ByName returns the policy registered under name.
func ByName(name string) (Classifier, error) {
	switch name {
	case DefaultPercentageGap.Name():
		return DefaultPercentageGap, nil
	case DeltaStandard.Name():
		return DeltaStandard, nil
	case DeltaNarrow.Name():
		return DeltaNarrow, nil
	}
	return nil, errors.Wrap(ErrUnknownPolicy, name)
}

// Distribution counts assessments per level.
type Distribution map[Level]int

func NewDistribution() Distribution {
	d := make(Distribution, len(Levels))
	for _, l := range Levels {
		d[l] = 0
	}
	return d
}

func (d Distribution) Add(l Level) { d[l]++ }
