package gradebook

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Bebdyshev/usp-backend/core/risk"
)

func TestParseLegacyRows(t *testing.T) {
	rows := [][]string{
		{"Student", "A1", "A2", "A3", "A4", "P1", "P2", "P3", "P4"},
		{"Иванов Иван, 10A", "80", "80", "80", "80", "80", "80", "80", "80"},
		{},
		{"Петров", "40", "", "", "", "80", "80", "80", "80"},
		{"Сидоров", "x", "", "", "", "80", "80", "80", "80"},
		{"", "90"},
	}
	res, err := ParseLegacyRows(rows, nil)
	if err != nil {
		t.Fatalf("ParseLegacyRows() error = %v", err)
	}

	if assert.Len(t, res.Students, 2) {
		assert.Equal(t, "Иванов Иван", res.Students[0].Name)
		assert.Equal(t, risk.Assessment{Level: risk.Moderate, Delta: 0}, res.Students[0].Risk)

		// |40-80| + 3*80 = 280 of 320
		assert.Equal(t, 4, res.Students[1].Row)
		assert.Equal(t, risk.Assessment{Level: risk.Critical, Delta: 87.5}, res.Students[1].Risk)
	}
	assert.Equal(t, []string{
		`Row 5: value "x" is not a number, skipped`,
		"Row 6: Missing student name, skipped",
	}, res.Warnings)
	assert.Equal(t, 1, res.Distribution[risk.Moderate])
	assert.Equal(t, 1, res.Distribution[risk.Critical])
}

func TestParseLegacyRows_noValidRows(t *testing.T) {
	_, err := ParseLegacyRows([][]string{{"h"}, {"", "1"}}, nil)
	if errors.Cause(err) != ErrNoValidRows {
		t.Errorf("ParseLegacyRows() error = %v, want ErrNoValidRows", err)
	}
}
