package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core/analytics"
)

type dashboardApi struct {
	auth *authenticator
	svc  *analytics.Service
}

func registerDashboardAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *analytics.Service) {
	api := dashboardApi{auth: auth, svc: svc}

	dg := g.Group("/dashboard", jwt)
	dg.GET("/danger-levels", api.cohortStats)
	dg.GET("/classes", api.classes)
	dg.GET("/classes/:id", api.classDetail)
	dg.GET("/class-data", api.classData)
	dg.GET("/students", api.students)
}

func (api *dashboardApi) cohortStats(ctx echo.Context) error {
	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	stats, err := api.svc.CohortStats(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "computing cohort stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *dashboardApi) classes(ctx echo.Context) error {
	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	classes, err := api.svc.Classes(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "summarizing classes")
	}
	if classes == nil {
		classes = []analytics.ClassSummary{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *dashboardApi) classDetail(ctx echo.Context) error {
	path := pathValues(ctx)
	id := path.Int("id")
	if err := path.Err(); err != nil {
		return err
	}

	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	detail, err := api.svc.ClassDetail(ctx.Request().Context(), id, scope)
	if err != nil {
		return errors.Wrap(err, "getting class detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *dashboardApi) classData(ctx echo.Context) error {
	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	data, err := api.svc.ClassData(ctx.Request().Context(), scope)
	if err != nil {
		return errors.Wrap(err, "grouping class data")
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *dashboardApi) students(ctx echo.Context) error {
	query := queryValues(ctx)
	gradeID := query.Int("grade_id")
	if err := query.Err(); err != nil {
		return err
	}

	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	students, err := api.svc.Students(ctx.Request().Context(), gradeID, scope)
	if err != nil {
		return errors.Wrap(err, "summarizing students")
	}
	if students == nil {
		students = []analytics.StudentSummary{}
	}
	return ctx.JSON(http.StatusOK, students)
}
