package gradebook

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CellStatus describes how a raw percentage cell was interpreted.
type CellStatus int

const (
	CellEmpty CellStatus = iota
	CellValid
	CellNotNumber
	CellOutOfRange
)

var (
	emptyTokens = map[string]struct{}{
		"nan": {}, "-nan": {}, "none": {}, "null": {}, "n/a": {}, "na": {}, "<na>": {},
	}
	spreadsheetErrors = map[string]struct{}{
		"#REF!": {}, "#VALUE!": {}, "#DIV/0!": {}, "#N/A": {}, "#NAME?": {}, "#NUM!": {},
		"#NULL!": {}, "#SPILL!": {}, "#CALC!": {}, "#GETTING_DATA": {},
	}
)

// NormalizeName trims, applies NFKC, collapses inner whitespace and drops trailing dots and commas.
// Whitespace mixed into that trailing run is dropped too, so "Иванов Иван ." and "Иванов Иван"
// name the same student and the result is stable under a second call.
func NormalizeName(raw string) string {
	s := strings.TrimSpace(raw)
	s = norm.NFKC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRightFunc(s, func(r rune) bool {
		return r == '.' || r == ',' || unicode.IsSpace(r)
	})
}

// NormalizePercentage parses a raw cell as a percentage in [0, 100].
// The value is nil unless the status is CellValid.
func NormalizePercentage(raw string) (*float64, CellStatus) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, CellEmpty
	}
	if _, ok := emptyTokens[strings.ToLower(s)]; ok {
		return nil, CellEmpty
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return nil, CellOutOfRange
		}
		return nil, CellNotNumber
	}
	if math.IsNaN(f) {
		return nil, CellEmpty
	}
	if f < 0 || f > 100 {
		return nil, CellOutOfRange
	}
	return &f, CellValid
}

// IsSpreadsheetError reports whether raw is a spreadsheet error literal such as #REF!.
func IsSpreadsheetError(raw string) bool {
	_, ok := spreadsheetErrors[strings.ToUpper(strings.TrimSpace(raw))]
	return ok
}
