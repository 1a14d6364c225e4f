// Package gradebook reads teacher gradebook spreadsheets into forecast and risk-classified rows.
package gradebook

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/Bebdyshev/usp-backend/core/prediction"
	"github.com/Bebdyshev/usp-backend/core/risk"
)

var (
	ErrEmptyOrCorruptFile = errors.New("Excel file is empty or corrupted")
	ErrNoValidRows        = errors.New("No valid student data found in Excel file")
)

// Options configures a parse. They are read once per import by the caller.
type Options struct {
	Mapping    ColumnMapping // nil means DefaultColumnMapping
	Weights    prediction.Weights
	Classifier risk.Classifier // nil means risk.DeltaStandard
}

// StudentRow is one accepted data row.
type StudentRow struct {
	Row           int                           `json:"row"`
	Name          string                        `json:"student_name"`
	PreviousClass *float64                      `json:"previous_class_score"`
	Teacher       *float64                      `json:"teacher_score"`
	Actual        [prediction.Quarters]*float64 `json:"actual_scores"`
	Predicted     [prediction.Quarters]float64  `json:"predicted_scores"`
	Risk          risk.Assessment               `json:"risk"`
}

// RowError is a data row that could not be processed. It does not abort the import.
type RowError struct {
	Row int
	Msg string
}

func (e RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Msg)
}

// Result is the parsed content of a gradebook.
type Result struct {
	Students     []StudentRow
	Warnings     []string
	Errors       []RowError
	Columns      Columns
	TotalRows    int // data rows, blank ones included
	Distribution risk.Distribution
}

// ErrorMessages returns the row errors as display strings.
func (res *Result) ErrorMessages() []string {
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}

// ReadRows returns the rows of the first sheet of an .xlsx workbook as raw cell values.
func ReadRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrapf(ErrEmptyOrCorruptFile, "opening workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Wrap(ErrEmptyOrCorruptFile, "workbook has no sheet")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrapf(ErrEmptyOrCorruptFile, "reading sheet %q: %v", sheets[0], err)
	}
	return rows, nil
}

// Parse reads an .xlsx gradebook. See ParseRows.
func Parse(r io.Reader, opts Options) (*Result, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	return ParseRows(rows, opts)
}

// ParseRows processes a header row followed by data rows.
//
// Fully blank rows are skipped silently and rows without a student name are skipped with a
// warning. Rows are numbered as in the spreadsheet: the first data row is row 2.
// Fatal errors: ErrEmptyOrCorruptFile, *MissingColumnError and ErrNoValidRows.
func ParseRows(rows [][]string, opts Options) (*Result, error) {
	if len(rows) < 2 {
		return nil, errors.Wrap(ErrEmptyOrCorruptFile, "no data rows")
	}
	if opts.Classifier == nil {
		opts.Classifier = risk.DeltaStandard
	}

	cols, err := ResolveColumns(rows[0], opts.Mapping)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Columns:      cols,
		TotalRows:    len(rows) - 1,
		Distribution: risk.NewDistribution(),
	}
	for i, cells := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(cells) {
			continue
		}

		st, warnings, err := parseRow(rowNum, cells, cols, opts)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			res.Errors = append(res.Errors, *err)
			continue
		}
		if st == nil {
			continue
		}
		res.Students = append(res.Students, *st)
		res.Distribution.Add(st.Risk.Level)
	}

	if len(res.Students) == 0 {
		return nil, errors.Wrapf(ErrNoValidRows, "%d warnings, %d errors", len(res.Warnings), len(res.Errors))
	}
	return res, nil
}

// parseRow returns a nil row when it has to be skipped.
func parseRow(rowNum int, cells []string, cols Columns, opts Options) (*StudentRow, []string, *RowError) {
	var warnings []string

	rawName := cellAt(cells, cols[FieldName])
	if IsSpreadsheetError(rawName) {
		return nil, nil, &RowError{Row: rowNum, Msg: fmt.Sprintf("student name cell contains %s", strings.TrimSpace(rawName))}
	}
	name := NormalizeName(rawName)
	if name == "" {
		return nil, []string{fmt.Sprintf("Row %d: Missing student name, skipped", rowNum)}, nil
	}

	percent := func(fld Field) (*float64, *RowError) {
		col, ok := cols[fld]
		if !ok {
			return nil, nil
		}
		raw := cellAt(cells, col)
		if IsSpreadsheetError(raw) {
			return nil, &RowError{Row: rowNum, Msg: fmt.Sprintf("column %q contains %s", col.Header, strings.TrimSpace(raw))}
		}
		val, status := NormalizePercentage(raw)
		switch status {
		case CellOutOfRange:
			warnings = append(warnings, fmt.Sprintf("Row %d: %q value %s is out of range 0-100, ignored", rowNum, col.Header, strings.TrimSpace(raw)))
		case CellNotNumber:
			warnings = append(warnings, fmt.Sprintf("Row %d: %q value %q is not a number, ignored", rowNum, col.Header, strings.TrimSpace(raw)))
		}
		return val, nil
	}

	st := StudentRow{Row: rowNum, Name: name}
	var rowErr *RowError
	if st.PreviousClass, rowErr = percent(FieldPreviousClass); rowErr != nil {
		return nil, nil, rowErr
	}
	if st.Teacher, rowErr = percent(FieldTeacher); rowErr != nil {
		return nil, nil, rowErr
	}
	for i, fld := range QuarterFields {
		if st.Actual[i], rowErr = percent(fld); rowErr != nil {
			return nil, nil, rowErr
		}
	}

	st.Predicted = prediction.Predict(prediction.Input{
		PreviousClass: st.PreviousClass,
		Teacher:       st.Teacher,
		Quarters:      st.Actual,
	}, opts.Weights)
	st.Risk = opts.Classifier.Classify(st.Actual, st.Predicted)
	return &st, warnings, nil
}

func cellAt(cells []string, col Column) string {
	if col.Index < len(cells) {
		return cells[col.Index]
	}
	return ""
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
