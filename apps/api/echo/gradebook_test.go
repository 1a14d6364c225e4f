package echoapi_test

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"

	"github.com/Bebdyshev/usp-backend/core/gradebook"
	testutil "github.com/Bebdyshev/usp-backend/tests"
)

func Test_gradebookApi_import(t *testing.T) {
	app := setup(t)

	fields := func(gradeID string) map[string]string {
		return map[string]string{
			"grade_id":      gradeID,
			"subject_id":    strconv.Itoa(app.subject.ID),
			"semester":      "1",
			"academic_year": "2024-2025",
			"teacher_name":  "Marat Serikovich",
		}
	}
	book := testutil.Workbook(t,
		gradebookHeader,
		[]interface{}{"Aigerim Bekova", 80, 70, nil, nil, nil, 90},
		[]interface{}{"Arman Ospanov", 80, "#N/A"},
	).Bytes()
	noNames := testutil.Workbook(t,
		[]interface{}{"Q1", "Q2"},
		[]interface{}{70, 80},
	).Bytes()
	gradeID := strconv.Itoa(app.grade.ID)

	tests := []struct {
		name     string
		token    string
		fields   map[string]string
		file     []byte
		wantCode int
		wantData []byte
		wantErr  string
	}{
		{
			name:     "teacher without assignment",
			token:    app.token(t, app.teacher),
			fields:   fields(gradeID),
			file:     book,
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "grade id is not a number",
			token:    app.token(t, app.curator),
			fields:   fields("10A"),
			file:     book,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"grade_id": "must be an integer"}),
		},
		{
			name:     "no file",
			token:    app.token(t, app.curator),
			fields:   fields(gradeID),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"file": "this field is required"}),
		},
		{
			name:     "not a workbook",
			token:    app.token(t, app.curator),
			fields:   fields(gradeID),
			file:     []byte("ФИО;Q1\nAigerim;70\n"),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "Excel file is empty or corrupted"}),
		},
		{
			name:     "no name column",
			token:    app.token(t, app.curator),
			fields:   fields(gradeID),
			file:     noNames,
			wantCode: http.StatusBadRequest,
			wantErr:  "Required column not found: name",
		},
		{
			name:     "unknown grade",
			token:    app.token(t, app.admin),
			fields:   fields("999"),
			file:     book,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "curator imports",
			token:    app.token(t, app.curator),
			fields:   fields(gradeID),
			file:     book,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(newUploadRequest(t, "/v1/gradebooks/import", tt.token, tt.fields, tt.file))
			checkCodeAndData(t, httpTest{wantCode: tt.wantCode, wantData: tt.wantData}, rec)
			if tt.wantErr != "" {
				var resp httpErr
				decode(t, rec, &resp)
				assert.True(t, strings.HasPrefix(resp.Error, tt.wantErr), "error = %q", resp.Error)
			}
		})
	}

	var resp struct {
		ImportedCount      int            `json:"imported_count"`
		Errors             []string       `json:"errors"`
		DangerDistribution map[string]int `json:"danger_distribution"`
		Students           []struct {
			Name      string    `json:"student_name"`
			Predicted []float64 `json:"predicted_scores"`
		} `json:"students"`
	}
	rec := app.serve(newUploadRequest(t, "/v1/gradebooks/import", app.token(t, app.curator), fields(gradeID), book))
	if rec.Code != http.StatusOK {
		t.Fatalf("import code = %d, body %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &resp)
	assert.Equal(t, 1, resp.ImportedCount)
	assert.Len(t, resp.Errors, 1)
	assert.Equal(t, map[string]int{"0": 0, "1": 1, "2": 0, "3": 0}, resp.DangerDistribution)
	if assert.Len(t, resp.Students, 1) {
		assert.Equal(t, "Aigerim Bekova", resp.Students[0].Name)
		assert.Equal(t, []float64{84, 77, 77, 77}, resp.Students[0].Predicted)
	}
}

func Test_gradebookApi_send(t *testing.T) {
	app := setup(t)

	book := testutil.Workbook(t,
		[]interface{}{"Name", "Q1", "Q2", "Q3", "Q4", "P1", "P2", "P3", "P4"},
		[]interface{}{"Aigerim Bekova, 10A", 80, 80, 80, 80, 80, 80, 80, 80},
	).Bytes()
	fields := map[string]string{"grade": "11B", "curator": "Gulnara", "subject": "Physics"}

	tests := []httpTest{
		{
			name:     "restricted users cannot create grades",
			token:    app.token(t, app.curator),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin",
			token:    app.token(t, app.admin),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(newUploadRequest(t, "/v1/gradebooks/send", tt.token, fields, book))
			checkCodeAndData(t, tt, rec)
		})
	}

	rec := app.serve(newUploadRequest(t, "/v1/gradebooks/send", app.token(t, app.admin), map[string]string{"curator": "Gulnara"}, book))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marshalObj(t, map[string]string{"grade": "this field is required", "subject": "this field is required"}),
	}, rec)
}

func Test_gradebookApi_template(t *testing.T) {
	app := setup(t)

	rec := app.serve(newAuthRequest(http.MethodGet, "/v1/gradebooks/template", app.token(t, app.teacher)))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want %d", rec.Code, http.StatusOK)
	}
	assert.Equal(t, `attachment; filename="grades_template.xlsx"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, gradebook.TemplateMIME, rec.Header().Get(echo.HeaderContentType))

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows("Grades")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	assert.Equal(t, "ФИО", rows[0][0])
	assert.Len(t, rows, 4)
}
