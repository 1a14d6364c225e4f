package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/settings"
)

func Test_settingsApi_weights(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, app.admin)

	weights := func(name string, prev, teacher, quarters float64) []byte {
		return marshalObj(t, settings.NewWeightSet{Name: name, PreviousClass: prev, Teacher: teacher, Quarters: quarters, Activate: true})
	}
	tests := []httpTest{
		{
			name:     "empty",
			method:   http.MethodGet,
			path:     "/v1/settings/weights",
			token:    app.token(t, app.teacher),
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "not admin",
			method:   http.MethodPost,
			path:     "/v1/settings/weights",
			body:     weights("trend", 0.2, 0.2, 0.6),
			token:    app.token(t, app.curator),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "weights must add up",
			method:   http.MethodPost,
			path:     "/v1/settings/weights",
			body:     weights("trend", 0.2, 0.2, 0.5),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"weights": "weights must add up to 1.0"}),
		},
		{
			name:     "activate unknown set",
			method:   http.MethodPut,
			path:     "/v1/settings/weights/999/activate",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: settings.ErrNotFound.Error()}),
		},
	}
	runHTTPTests(t, app, tests)

	rec := app.serve(newAuthRequest(http.MethodPost, "/v1/settings/weights", adminToken, weights("trend", 0.2, 0.2, 0.6)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	var ws settings.WeightSet
	decode(t, rec, &ws)
	assert.True(t, ws.IsActive)
	assert.Equal(t, "trend", ws.Name)

	// new imports and edits use the active set
	records := app.seed(t)
	assert.Equal(t, [4]float64{85, 76, 76, 76}, records[0].Predicted)
}

func Test_settingsApi_columnMapping(t *testing.T) {
	app := setup(t)
	adminToken := app.token(t, app.admin)

	update := marshalObj(t, settings.UpdateColumnMapping{Fields: []settings.FieldAliases{
		{Field: gradebook.FieldTeacher, Aliases: []string{" Оценка учителя "}},
	}})
	tests := []httpTest{
		{
			name:     "not admin",
			method:   http.MethodPut,
			path:     "/v1/settings/column-mapping",
			body:     update,
			token:    app.token(t, app.curator),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unknown field",
			method:   http.MethodPut,
			path:     "/v1/settings/column-mapping",
			body:     []byte(`{"fields": [{"field": "homework", "aliases": ["hw"]}]}`),
			token:    adminToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "reset is admin only",
			method:   http.MethodDelete,
			path:     "/v1/settings/column-mapping",
			token:    app.token(t, app.teacher),
			wantCode: http.StatusForbidden,
		},
	}
	runHTTPTests(t, app, tests)

	aliasesOf := func(mapping []settings.FieldAliases, fld gradebook.Field) []string {
		for _, fa := range mapping {
			if fa.Field == fld {
				return fa.Aliases
			}
		}
		return nil
	}

	rec := app.serve(newAuthRequest(http.MethodPut, "/v1/settings/column-mapping", adminToken, update))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	var mapping []settings.FieldAliases
	decode(t, rec, &mapping)
	assert.Len(t, mapping, len(gradebook.Fields))
	assert.Equal(t, []string{"оценка учителя"}, aliasesOf(mapping, gradebook.FieldTeacher))

	rec = app.serve(newAuthRequest(http.MethodDelete, "/v1/settings/column-mapping", adminToken))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.serve(newAuthRequest(http.MethodGet, "/v1/settings/column-mapping", app.token(t, app.teacher)))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body %s", rec.Code, rec.Body.String())
	}
	mapping = nil
	decode(t, rec, &mapping)
	assert.Equal(t, gradebook.DefaultColumnMapping()[gradebook.FieldTeacher], aliasesOf(mapping, gradebook.FieldTeacher))
}
