package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core/score"
)

type gradeApi struct {
	auth     *authenticator
	svc      *score.Service
	validate *validator.Validate
}

// registerGradeAPI serves grades (classes) and subjects.
func registerGradeAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *score.Service, validate *validator.Validate) {
	api := gradeApi{auth: auth, svc: svc, validate: validate}

	gg := g.Group("/grades", jwt)
	gg.GET("", api.queryGrades)
	gg.POST("", api.createGrade, adminMiddleware())

	sg := g.Group("/subjects", jwt)
	sg.GET("", api.querySubjects)
	sg.POST("", api.createSubject, adminMiddleware())
}

func (api *gradeApi) queryGrades(ctx echo.Context) error {
	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	grades, err := api.svc.Grades(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []score.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *gradeApi) createGrade(ctx echo.Context) error {
	var data score.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	grade, err := api.svc.CreateGrade(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grade)
}

func (api *gradeApi) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.Subjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []score.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *gradeApi) createSubject(ctx echo.Context) error {
	var data score.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	subject, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, subject)
}
