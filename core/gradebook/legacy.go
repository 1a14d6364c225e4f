package gradebook

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core/prediction"
	"github.com/Bebdyshev/usp-backend/core/risk"
)

// LegacyRow is a row of the positional layout used by the "send" upload: column A holds the student
// name (anything after the first comma is dropped), B..E the actual quarters and F..I the quarters
// forecast by the teacher.
type LegacyRow struct {
	Row       int                           `json:"row"`
	Name      string                        `json:"student_name"`
	Actual    [prediction.Quarters]*float64 `json:"actual_scores"`
	Predicted [prediction.Quarters]float64  `json:"predicted_scores"`
	Risk      risk.Assessment               `json:"risk"`
}

type LegacyResult struct {
	Students     []LegacyRow
	Warnings     []string
	Distribution risk.Distribution
}

// ParseLegacy reads an .xlsx workbook in the positional layout.
func ParseLegacy(r io.Reader, classifier risk.Classifier) (*LegacyResult, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	return ParseLegacyRows(rows, classifier)
}

// ParseLegacyRows skips the header row, blank rows, and rows whose score cells are not numbers.
// Absent predicted quarters count as 0.
func ParseLegacyRows(rows [][]string, classifier risk.Classifier) (*LegacyResult, error) {
	if len(rows) < 2 {
		return nil, errors.Wrap(ErrEmptyOrCorruptFile, "no data rows")
	}
	if classifier == nil {
		classifier = risk.DefaultPercentageGap
	}

	res := &LegacyResult{Distribution: risk.NewDistribution()}
	for i, cells := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(cells) {
			continue
		}

		name := NormalizeName(strings.SplitN(cellAt(cells, Column{Index: 0}), ",", 2)[0])
		if name == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: Missing student name, skipped", rowNum))
			continue
		}

		st := LegacyRow{Row: rowNum, Name: name}
		var bad string
		for q := 0; q < prediction.Quarters && bad == ""; q++ {
			var ok bool
			if st.Actual[q], ok = legacyScore(cellAt(cells, Column{Index: 1 + q})); !ok {
				bad = cellAt(cells, Column{Index: 1 + q})
			}
			var pred *float64
			if pred, ok = legacyScore(cellAt(cells, Column{Index: 1 + prediction.Quarters + q})); !ok {
				bad = cellAt(cells, Column{Index: 1 + prediction.Quarters + q})
			} else if pred != nil {
				st.Predicted[q] = *pred
			}
		}
		if bad != "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("Row %d: value %q is not a number, skipped", rowNum, strings.TrimSpace(bad)))
			continue
		}

		st.Risk = classifier.Classify(st.Actual, st.Predicted)
		res.Students = append(res.Students, st)
		res.Distribution.Add(st.Risk.Level)
	}

	if len(res.Students) == 0 {
		return nil, errors.Wrapf(ErrNoValidRows, "%d warnings", len(res.Warnings))
	}
	return res, nil
}

// legacyScore parses an optional number; ok is false for anything else.
func legacyScore(raw string) (val *float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, true
	}
	if _, empty := emptyTokens[strings.ToLower(s)]; empty {
		return nil, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return nil, false
	}
	if math.IsNaN(f) {
		return nil, true
	}
	return &f, true
}
