package gradebook

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field is a canonical gradebook column.
type Field string

const (
	FieldName          Field = "name"
	FieldPreviousClass Field = "previous_class"
	FieldQ1            Field = "q1"
	FieldQ2            Field = "q2"
	FieldQ3            Field = "q3"
	FieldQ4            Field = "q4"
	FieldTeacher       Field = "teacher"
)

var (
	// Fields is the order in which columns are resolved.
	Fields = []Field{FieldName, FieldPreviousClass, FieldQ1, FieldQ2, FieldQ3, FieldQ4, FieldTeacher}

	QuarterFields = [4]Field{FieldQ1, FieldQ2, FieldQ3, FieldQ4}
)

func (f Field) Valid() bool {
	for _, fld := range Fields {
		if f == fld {
			return true
		}
	}
	return false
}

// ColumnMapping lists, for each canonical field, the header fragments identifying its column.
type ColumnMapping map[Field][]string

// DefaultColumnMapping returns the built-in aliases.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		FieldName:          {"фио", "имя", "name", "student", "студент", "ученик"},
		FieldPreviousClass: {"мониторинг", "monitoring", "мон", "mon", "previous", "прошл"},
		FieldQ1:            {"q1", "четверть 1", "quarter 1", "1 четверть", "ч1"},
		FieldQ2:            {"q2", "четверть 2", "quarter 2", "2 четверть", "ч2"},
		FieldQ3:            {"q3", "четверть 3", "quarter 3", "3 четверть", "ч3"},
		FieldQ4:            {"q4", "четверть 4", "quarter 4", "4 четверть", "ч4"},
		FieldTeacher:       {"учитель", "teacher", "преподаватель", "препод"},
	}
}

// WithOverrides returns the default mapping where every field present in overrides with at least
// one alias uses those aliases instead.
func WithOverrides(overrides ColumnMapping) ColumnMapping {
	m := DefaultColumnMapping()
	for fld, aliases := range overrides {
		if !fld.Valid() || len(aliases) == 0 {
			continue
		}
		m[fld] = append([]string(nil), aliases...)
	}
	return m
}

// Column is a resolved spreadsheet column.
type Column struct {
	Index  int
	Header string
}

// Columns holds the resolved column of every field found in the header row.
type Columns map[Field]Column

// Headers maps each resolved field to its original header text.
func (c Columns) Headers() map[Field]string {
	h := make(map[Field]string, len(c))
	for fld, col := range c {
		h[fld] = col.Header
	}
	return h
}

// MissingColumnError is returned when a required field has no matching column.
type MissingColumnError struct {
	Field     Field
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("Required column not found: %s. Available columns: [%s]", e.Field, strings.Join(e.Available, ", "))
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// ResolveColumns finds, field by field, the first column whose header contains any of the field's
// aliases (case-insensitive). Only the name column is required.
func ResolveColumns(headers []string, mapping ColumnMapping) (Columns, error) {
	if len(mapping) == 0 {
		mapping = DefaultColumnMapping()
	}
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	cols := make(Columns, len(Fields))
	for _, fld := range Fields {
		aliases := make([]string, 0, len(mapping[fld]))
		for _, a := range mapping[fld] {
			if a = normalizeHeader(a); a != "" {
				aliases = append(aliases, a)
			}
		}

	columns:
		for i, h := range normalized {
			for _, alias := range aliases {
				if strings.Contains(h, alias) {
					cols[fld] = Column{Index: i, Header: headers[i]}
					break columns
				}
			}
		}
	}

	if _, ok := cols[FieldName]; !ok {
		return nil, &MissingColumnError{Field: FieldName, Available: append([]string(nil), headers...)}
	}
	return cols, nil
}
