package gradebook

import (
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: "Иванов Иван", want: "Иванов Иван"},
		{name: "outer whitespace", raw: "  Иванов Иван \t", want: "Иванов Иван"},
		{name: "inner whitespace", raw: "Иванов   Иван Иванович", want: "Иванов Иван Иванович"},
		{name: "trailing punctuation", raw: "Петров П.П.,", want: "Петров П.П"},
		{name: "space before trailing punctuation", raw: "Иванов Иван , .", want: "Иванов Иван"},
		{name: "nfkc", raw: "Ｓｍｉｔｈ", want: "Smith"},
		{name: "empty", raw: "   ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.raw); got != tt.want {
				t.Errorf("NormalizeName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeName_idempotent(t *testing.T) {
	for _, raw := range []string{"Иванов  Иван.", " Ｓｍｉｔｈ ,", "A\tB\nC", "Анна-Мария"} {
		once := NormalizeName(raw)
		if twice := NormalizeName(once); twice != once {
			t.Errorf("NormalizeName(NormalizeName(%q)) = %q, want %q", raw, twice, once)
		}
	}
}

func TestNormalizePercentage(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       float64
		wantStatus CellStatus
	}{
		{name: "integer", raw: "85", want: 85, wantStatus: CellValid},
		{name: "decimal", raw: " 78.3 ", want: 78.3, wantStatus: CellValid},
		{name: "zero", raw: "0", want: 0, wantStatus: CellValid},
		{name: "hundred", raw: "100", want: 100, wantStatus: CellValid},
		{name: "empty", raw: "", wantStatus: CellEmpty},
		{name: "nan", raw: "NaN", wantStatus: CellEmpty},
		{name: "none", raw: "None", wantStatus: CellEmpty},
		{name: "text", raw: "отлично", wantStatus: CellNotNumber},
		{name: "comma decimal", raw: "85,5", wantStatus: CellNotNumber},
		{name: "negative", raw: "-1", wantStatus: CellOutOfRange},
		{name: "too big", raw: "150", wantStatus: CellOutOfRange},
		{name: "infinity", raw: "Inf", wantStatus: CellOutOfRange},
		{name: "overflow", raw: "1e400", wantStatus: CellOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, status := NormalizePercentage(tt.raw)
			if status != tt.wantStatus {
				t.Fatalf("NormalizePercentage() status = %v, want %v", status, tt.wantStatus)
			}
			if tt.wantStatus != CellValid {
				if got != nil {
					t.Errorf("NormalizePercentage() = %v, want nil", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("NormalizePercentage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsSpreadsheetError(t *testing.T) {
	for raw, want := range map[string]bool{"#REF!": true, " #div/0! ": true, "#N/A": true, "REF": false, "": false, "#": false} {
		if got := IsSpreadsheetError(raw); got != want {
			t.Errorf("IsSpreadsheetError(%q) = %v, want %v", raw, got, want)
		}
	}
}
