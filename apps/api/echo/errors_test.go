package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/Bebdyshev/usp-backend/core"
	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/score"
	"github.com/Bebdyshev/usp-backend/core/settings"
	"github.com/Bebdyshev/usp-backend/core/user"
	testutil "github.com/Bebdyshev/usp-backend/tests"
)

func Test_newAppHTTPErrorHandler(t *testing.T) {
	conf := core.NewTestConfig()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")

	var shutdowns int
	handle := newAppHTTPErrorHandler(testutil.NewLogger(t, conf), translator, func() { shutdowns++ })

	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantShutdown bool
	}{
		{name: "corrupt file", err: errors.Wrap(gradebook.ErrEmptyOrCorruptFile, "opening workbook"), wantCode: http.StatusBadRequest},
		{name: "no valid rows", err: errors.Wrap(gradebook.ErrNoValidRows, "0 warnings"), wantCode: http.StatusBadRequest},
		{name: "missing column", err: &gradebook.MissingColumnError{Field: gradebook.FieldName}, wantCode: http.StatusBadRequest},
		{name: "validation", err: core.NewValidationError(nil, core.FieldError{Field: "id", Error: "must be an integer"}), wantCode: http.StatusBadRequest},
		{name: "user not found", err: errors.Wrap(user.ErrNotFound, "finding user"), wantCode: http.StatusNotFound},
		{name: "record not found", err: errors.Wrap(score.ErrNotFound, "getting record"), wantCode: http.StatusNotFound},
		{name: "weight set not found", err: settings.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "forbidden", err: errors.Wrap(core.ErrForbidden, "importing"), wantCode: http.StatusForbidden},
		{name: "http error", err: errors.Wrap(errFileTooLarge, "uploading"), wantCode: http.StatusRequestEntityTooLarge},
		{name: "unknown", err: errors.New("connection reset"), wantCode: http.StatusInternalServerError},
		{name: "shutdown", err: errors.Wrap(core.NewShutdownError("integrity"), "importing"), wantCode: http.StatusInternalServerError, wantShutdown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdowns = 0
			e := echo.New()
			rec := httptest.NewRecorder()
			ctx := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handle(tt.err, ctx)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantShutdown, shutdowns == 1)
		})
	}
}
