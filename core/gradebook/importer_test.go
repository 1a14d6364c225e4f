package gradebook

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"github.com/Bebdyshev/usp-backend/core/prediction"
	"github.com/Bebdyshev/usp-backend/core/risk"
)

var testWeights = prediction.Weights{PreviousClass: 0.3, Teacher: 0.2, Quarters: 0.5}

func fp(f float64) *float64 { return &f }

// buildWorkbook writes rows to the first sheet of a new workbook.
func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("buildWorkbook(): %v", err)
		}
		row := row
		if err = f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("buildWorkbook(): %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("buildWorkbook(): %v", err)
	}
	return buf
}

func TestParse(t *testing.T) {
	header := []interface{}{"ФИО", "Мониторинг, %", "Q1, %", "Q2, %", "Q3, %", "Q4, %", "Учитель, %"}
	buf := buildWorkbook(t, [][]interface{}{
		header,
		{"  Иванов   Иван.", 80, 70, nil, nil, nil, 90},
		{nil, nil, nil, nil, nil, nil, nil},
		{nil, 50, 60},
		{"Петров Петр", 150, nil, nil, nil, nil, "n/a"},
		{"Сидорова Анна", 80, "#REF!"},
	})

	res, err := Parse(buf, Options{Weights: testWeights, Classifier: risk.DeltaStandard})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if assert.Len(t, res.Students, 2) {
		ivanov := res.Students[0]
		assert.Equal(t, 2, ivanov.Row)
		assert.Equal(t, "Иванов Иван", ivanov.Name)
		assert.Equal(t, fp(80), ivanov.PreviousClass)
		assert.Equal(t, fp(90), ivanov.Teacher)
		assert.Equal(t, fp(70), ivanov.Actual[0])
		assert.Nil(t, ivanov.Actual[1])
		assert.Equal(t, [prediction.Quarters]float64{84, 77, 77, 77}, ivanov.Predicted)
		// 70 - 84
		assert.Equal(t, risk.Assessment{Level: risk.Moderate, Delta: -14}, ivanov.Risk)

		petrov := res.Students[1]
		assert.Equal(t, 5, petrov.Row)
		assert.Nil(t, petrov.PreviousClass)
		assert.Nil(t, petrov.Teacher)
		assert.Equal(t, [prediction.Quarters]float64{}, petrov.Predicted)
		assert.Equal(t, risk.Normal, petrov.Risk.Level)
	}

	if assert.Len(t, res.Warnings, 2) {
		assert.Equal(t, "Row 4: Missing student name, skipped", res.Warnings[0])
		assert.True(t, strings.HasPrefix(res.Warnings[1], "Row 5: "), res.Warnings[1])
		assert.Contains(t, res.Warnings[1], "out of range")
	}
	if assert.Len(t, res.Errors, 1) {
		assert.Equal(t, 6, res.Errors[0].Row)
		assert.Contains(t, res.Errors[0].Error(), "#REF!")
	}

	assert.Equal(t, 5, res.TotalRows)
	assert.Equal(t, risk.Distribution{risk.Normal: 1, risk.Moderate: 1, risk.High: 0, risk.Critical: 0}, res.Distribution)
	assert.Equal(t, "ФИО", res.Columns[FieldName].Header)
	assert.Equal(t, "Учитель, %", res.Columns[FieldTeacher].Header)
}

func TestParseRows_fatal(t *testing.T) {
	tests := []struct {
		name    string
		rows    [][]string
		wantErr error
	}{
		{name: "no rows", rows: nil, wantErr: ErrEmptyOrCorruptFile},
		{name: "header only", rows: [][]string{{"ФИО", "Q1"}}, wantErr: ErrEmptyOrCorruptFile},
		{name: "only blank and nameless rows", rows: [][]string{{"ФИО", "Q1"}, {"", ""}, {"", "90"}}, wantErr: ErrNoValidRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseRows(tt.rows, Options{Weights: testWeights})
			if errors.Cause(err) != tt.wantErr {
				t.Errorf("ParseRows() error = %v, wantErr %v", err, tt.wantErr)
			}
			if res != nil {
				t.Errorf("ParseRows() result = %v, want nil", res)
			}
		})
	}
}

func TestParseRows_missingNameColumn(t *testing.T) {
	_, err := ParseRows([][]string{{"Q1, %", "Q2, %"}, {"90", "80"}}, Options{})
	if _, ok := err.(*MissingColumnError); !ok {
		t.Errorf("ParseRows() error = %v, want *MissingColumnError", err)
	}
}

func TestParseRows_blankRowsAreSilent(t *testing.T) {
	res, err := ParseRows([][]string{
		{"Name", "Q1"},
		{"", " "},
		{},
		{"Ann", "91"},
	}, Options{Weights: testWeights})
	if err != nil {
		t.Fatalf("ParseRows() error = %v", err)
	}
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Errors)
	if assert.Len(t, res.Students, 1) {
		assert.Equal(t, 4, res.Students[0].Row)
	}
}

func TestParseRows_everyRowAccountedFor(t *testing.T) {
	rows := [][]string{
		{"ФИО", "Q1", "Учитель"},
		{"A", "90", "85"},
		{"", "", ""},
		{"", "70", ""},
		{"B", "#DIV/0!", "80"},
		{"C", "abc", "80"},
	}
	res, err := ParseRows(rows, Options{Weights: testWeights})
	if err != nil {
		t.Fatalf("ParseRows() error = %v", err)
	}
	blank := 1
	nameless := 1
	if got := len(res.Students) + len(res.Errors) + nameless + blank; got != len(rows)-1 {
		t.Errorf("accepted + errors + skipped = %d, want %d", got, len(rows)-1)
	}
	assert.Len(t, res.Students, 2)
	assert.Len(t, res.Errors, 1)
}

func TestParse_corruptFile(t *testing.T) {
	_, err := Parse(strings.NewReader("definitely not a zip"), Options{})
	if errors.Cause(err) != ErrEmptyOrCorruptFile {
		t.Errorf("Parse() error = %v, want ErrEmptyOrCorruptFile", err)
	}
}
