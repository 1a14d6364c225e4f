package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core/gradebook"
	"github.com/Bebdyshev/usp-backend/core/score"
)

type gradebookApi struct {
	auth          *authenticator
	svc           *score.Service
	validate      *validator.Validate
	maxUploadSize int64
}

func registerGradebookAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc *score.Service,
	validate *validator.Validate,
	maxUploadSize int64,
) {
	api := gradebookApi{auth: auth, svc: svc, validate: validate, maxUploadSize: maxUploadSize}

	gg := g.Group("/gradebooks", jwt)
	gg.POST("/import", api.importGradebook)
	gg.POST("/send", api.importLegacy)
	gg.GET("/template", api.template)
}

func (api *gradebookApi) importGradebook(ctx echo.Context) error {
	form := formValues(ctx)
	req := score.ImportRequest{
		GradeID:      form.Int("grade_id"),
		SubjectID:    form.Int("subject_id"),
		Semester:     form.Int("semester"),
		AcademicYear: ctx.FormValue("academic_year"),
		TeacherName:  ctx.FormValue("teacher_name"),
		SubgroupID:   form.IntPtr("subgroup_id"),
	}
	if err := form.Err(); err != nil {
		return err
	}
	if err := req.Validate(api.validate); err != nil {
		return err
	}

	file, err := uploadedFile(ctx, "file", api.maxUploadSize)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	res, err := api.svc.Import(ctx.Request().Context(), req, file, scope)
	if err != nil {
		return errors.Wrap(err, "importing gradebook")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradebookApi) importLegacy(ctx echo.Context) error {
	req := score.LegacyImportRequest{
		Grade:   ctx.FormValue("grade"),
		Curator: ctx.FormValue("curator"),
		Subject: ctx.FormValue("subject"),
	}
	if err := req.Validate(api.validate); err != nil {
		return err
	}

	file, err := uploadedFile(ctx, "file", api.maxUploadSize)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	res, err := api.svc.ImportLegacy(ctx.Request().Context(), req, file, scope)
	if err != nil {
		return errors.Wrap(err, "importing legacy gradebook")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *gradebookApi) template(ctx echo.Context) error {
	buf, err := gradebook.Template()
	if err != nil {
		return errors.Wrap(err, "generating template")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+gradebook.TemplateFilename+`"`)
	return ctx.Blob(http.StatusOK, gradebook.TemplateMIME, buf.Bytes())
}
