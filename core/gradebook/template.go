package gradebook

import (
	"bytes"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	TemplateSheet    = "Grades"
	TemplateFilename = "grades_template.xlsx"
	TemplateMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// TemplateHeaders are the canonical headers, in Fields order.
var TemplateHeaders = []string{"ФИО", "Мониторинг, %", "Q1, %", "Q2, %", "Q3, %", "Q4, %", "Учитель, %"}

var templateRows = [][]interface{}{
	{"Иванов Иван Иванович", 85.5, 88, 85, nil, nil, 87},
	{"Петров Петр Петрович", 92, 90, 94, 89, nil, 91},
	{"Сидорова Анна Владимировна", 78.3, 82, 79, 85, nil, 80},
}

// Template builds a ready-to-fill gradebook with the canonical headers and three example rows.
func Template() (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), TemplateSheet); err != nil {
		return nil, errors.Wrap(err, "renaming sheet")
	}

	widths := make([]int, len(TemplateHeaders))
	header := make([]interface{}, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(TemplateSheet, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}

	for r, row := range templateRows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, errors.Wrap(err, "locating row")
		}
		row := row
		if err = f.SetSheetRow(TemplateSheet, cell, &row); err != nil {
			return nil, errors.Wrapf(err, "writing row %d", r+2)
		}
		if n := utf8.RuneCountInString(row[0].(string)); n > widths[0] {
			widths[0] = n
		}
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, errors.Wrap(err, "naming column")
		}
		width := w + 2
		if width > 30 {
			width = 30
		}
		if err = f.SetColWidth(TemplateSheet, col, col, float64(width)); err != nil {
			return nil, errors.Wrap(err, "sizing column")
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf, nil
}
