package echoapi

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core"
)

const notAnInteger = "must be an integer"

// intValues reads integer parameters from a request, collecting a field error per invalid value.
type intValues struct {
	get  func(name string) string
	errs []core.FieldError
}

func pathValues(ctx echo.Context) *intValues  { return &intValues{get: ctx.Param} }
func queryValues(ctx echo.Context) *intValues { return &intValues{get: ctx.QueryParam} }
func formValues(ctx echo.Context) *intValues  { return &intValues{get: ctx.FormValue} }

// Int returns 0 when name is absent.
func (v *intValues) Int(name string) int {
	if p := v.IntPtr(name); p != nil {
		return *p
	}
	return 0
}

func (v *intValues) IntPtr(name string) *int {
	raw := strings.TrimSpace(v.get(name))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.errs = append(v.errs, core.FieldError{Field: name, Error: notAnInteger})
		return nil
	}
	return &n
}

func (v *intValues) Err() error {
	if len(v.errs) > 0 {
		return core.NewValidationError(nil, v.errs...)
	}
	return nil
}

// uploadedFile opens the multipart file field name, rejecting files above maxSize bytes.
func uploadedFile(ctx echo.Context, name string, maxSize int64) (io.ReadCloser, error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		if err == multipart.ErrMessageTooLarge {
			return nil, errFileTooLarge
		}
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: "this field is required"})
	}
	if maxSize > 0 && fh.Size > maxSize {
		return nil, errFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "opening uploaded file")
	}
	return f, nil
}
