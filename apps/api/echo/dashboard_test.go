package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bebdyshev/usp-backend/core/analytics"
	"github.com/Bebdyshev/usp-backend/core/risk"
	"github.com/Bebdyshev/usp-backend/core/score"
)

func Test_dashboardApi_access(t *testing.T) {
	app := setup(t)
	app.seed(t)
	classPath := fmt.Sprintf("/v1/dashboard/classes/%d", app.grade.ID)

	tests := []httpTest{
		{
			name:     "missing token",
			method:   http.MethodGet,
			path:     "/v1/dashboard/danger-levels",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "class outside scope",
			method:   http.MethodGet,
			path:     classPath,
			token:    app.token(t, app.teacher),
			wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "unknown class",
			method:   http.MethodGet,
			path:     "/v1/dashboard/classes/999",
			token:    app.token(t, app.admin),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "no visible classes",
			method:   http.MethodGet,
			path:     "/v1/dashboard/classes",
			token:    app.token(t, app.teacher),
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "students outside scope",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/v1/dashboard/students?grade_id=%d", app.grade.ID),
			token:    app.token(t, app.teacher),
			wantCode: http.StatusForbidden,
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_dashboardApi_dangerLevels(t *testing.T) {
	app := setup(t)
	app.seed(t)

	// a grade without records is not ranked
	if _, err := app.scoreSvc.CreateGrade(context.Background(), score.NewGrade{Name: "10B"}); err != nil {
		t.Fatalf("CreateGrade() error = %v", err)
	}

	rec := app.serve(newAuthRequest(http.MethodGet, "/v1/dashboard/danger-levels", app.token(t, app.admin)))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	var got analytics.CohortStats
	decode(t, rec, &got)

	assert.Equal(t, 2, got.TotalStudents)
	if assert.NotNil(t, got.AvgDangerLevel) {
		assert.InDelta(t, 2, *got.AvgDangerLevel, 1e-9)
	}
	assert.Equal(t, 1, got.Levels[risk.Moderate].StudentCount)
	assert.Equal(t, 0, got.Levels[risk.High].StudentCount)
	assert.Nil(t, got.Levels[risk.High].AvgDeltaPercentage)
	assert.Equal(t, 1, got.Levels[risk.Critical].StudentCount)
	if assert.NotNil(t, got.Levels[risk.Critical].AvgDeltaPercentage) {
		assert.InDelta(t, -34, *got.Levels[risk.Critical].AvgDeltaPercentage, 1e-9)
	}
	assert.Equal(t, []analytics.ClassDanger{{GradeID: app.grade.ID, Grade: "10A", AvgDangerLevel: 2}}, got.Classes)
}

func Test_dashboardApi_classDetail(t *testing.T) {
	app := setup(t)
	app.seed(t)

	rec := app.serve(newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/dashboard/classes/%d", app.grade.ID), app.token(t, app.curator)))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	var got analytics.ClassDetail
	decode(t, rec, &got)

	assert.Equal(t, "10A", got.ClassName)
	assert.Equal(t, app.curator.Name, got.CuratorName)
	assert.InDelta(t, 2, got.AvgDangerLevel, 1e-9)
	if assert.Len(t, got.Students, 2) {
		assert.Equal(t, "Aigerim Bekova", got.Students[0].Name)
		assert.Equal(t, risk.Moderate, got.Students[0].DangerLevel)
		assert.Equal(t, [4]float64{70, 0, 0, 0}, got.Students[0].Subjects["Math"])
		assert.Equal(t, "Dana Sadykova", got.Students[1].Name)
		assert.Equal(t, risk.Critical, got.Students[1].DangerLevel)
	}
}
