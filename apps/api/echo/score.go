package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core/score"
)

type scoreApi struct {
	auth *authenticator
	svc  *score.Service
}

func registerScoreAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *score.Service) {
	api := scoreApi{auth: auth, svc: svc}

	sg := g.Group("/scores", jwt)
	sg.GET("", api.query)
	sg.PUT("/:id", api.update)
}

func (api *scoreApi) query(ctx echo.Context) error {
	query := queryValues(ctx)
	filter := score.RecordFilter{
		GradeID:   query.Int("grade_id"),
		SubjectID: query.Int("subject_id"),
		StudentID: query.Int("student_id"),
		Semester:  query.Int("semester"),
	}
	if err := query.Err(); err != nil {
		return err
	}

	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	records, err := api.svc.Records(ctx.Request().Context(), filter, scope)
	if err != nil {
		return errors.Wrap(err, "querying records")
	}
	if records == nil {
		records = []score.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *scoreApi) update(ctx echo.Context) error {
	path := pathValues(ctx)
	id := path.Int("id")
	if err := path.Err(); err != nil {
		return err
	}

	var data score.RecordUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecordUpdate")
	}

	scope, err := api.auth.contextScope(ctx)
	if err != nil {
		return errors.Wrap(err, "getting grade scope")
	}
	rec, err := api.svc.UpdateRecord(ctx.Request().Context(), id, data, scope)
	if err != nil {
		return errors.Wrap(err, "updating record")
	}
	return ctx.JSON(http.StatusOK, rec)
}
