package gradebook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func TestTemplate(t *testing.T) {
	buf, err := Template()
	if err != nil {
		t.Fatalf("Template() error = %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("excelize.OpenReader() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{TemplateSheet}, f.GetSheetList())

	rows, err := f.GetRows(TemplateSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if assert.Len(t, rows, 4) {
		assert.Equal(t, TemplateHeaders, rows[0])
		assert.Equal(t, "Иванов Иван Иванович", rows[1][0])
		assert.Equal(t, "Сидорова Анна Владимировна", rows[3][0])
	}

	width, err := f.GetColWidth(TemplateSheet, "A")
	if err != nil {
		t.Fatalf("GetColWidth() error = %v", err)
	}
	assert.Equal(t, float64(28), width)
}

func TestTemplate_roundTrip(t *testing.T) {
	buf, err := Template()
	if err != nil {
		t.Fatalf("Template() error = %v", err)
	}
	res, err := Parse(buf, Options{Weights: testWeights})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Errors)
	if assert.Len(t, res.Students, 3) {
		assert.Equal(t, "Петров Петр Петрович", res.Students[1].Name)
		assert.Equal(t, fp(92), res.Students[1].PreviousClass)
		assert.Equal(t, fp(89), res.Students[1].Actual[2])
		assert.Nil(t, res.Students[0].Actual[2])
		assert.Nil(t, res.Students[2].Actual[3])
	}
	for _, fld := range Fields {
		_, ok := res.Columns[fld]
		assert.True(t, ok, "column %s not resolved", fld)
	}
}
