package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Bebdyshev/usp-backend/core/settings"
)

type settingsApi struct {
	svc      *settings.Service
	validate *validator.Validate
}

// registerSettingsAPI serves the prediction weights and the gradebook column mapping.
// Every user may read them; only admins may change them.
func registerSettingsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *settings.Service, validate *validator.Validate) {
	api := settingsApi{svc: svc, validate: validate}

	sg := g.Group("/settings", jwt)
	sg.GET("/weights", api.queryWeights)
	sg.POST("/weights", api.createWeights, adminMiddleware())
	sg.PUT("/weights/:id/activate", api.activateWeights, adminMiddleware())
	sg.GET("/column-mapping", api.columnMapping)
	sg.PUT("/column-mapping", api.updateColumnMapping, adminMiddleware())
	sg.DELETE("/column-mapping", api.resetColumnMapping, adminMiddleware())
}

func (api *settingsApi) queryWeights(ctx echo.Context) error {
	sets, err := api.svc.WeightSets(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying weight sets")
	}
	if sets == nil {
		sets = []settings.WeightSet{}
	}
	return ctx.JSON(http.StatusOK, sets)
}

func (api *settingsApi) createWeights(ctx echo.Context) error {
	var data settings.NewWeightSet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWeightSet")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ws, err := api.svc.CreateWeightSet(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating weight set")
	}
	return ctx.JSON(http.StatusCreated, ws)
}

func (api *settingsApi) activateWeights(ctx echo.Context) error {
	path := pathValues(ctx)
	id := path.Int("id")
	if err := path.Err(); err != nil {
		return err
	}

	ws, err := api.svc.ActivateWeightSet(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "activating weight set")
	}
	return ctx.JSON(http.StatusOK, ws)
}

func (api *settingsApi) columnMapping(ctx echo.Context) error {
	mapping, err := api.svc.ColumnAliases(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting column mapping")
	}
	return ctx.JSON(http.StatusOK, mapping)
}

func (api *settingsApi) updateColumnMapping(ctx echo.Context) error {
	var data settings.UpdateColumnMapping
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateColumnMapping")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate); err != nil {
		return err
	}

	mapping, err := api.svc.UpdateColumnMapping(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "updating column mapping")
	}
	return ctx.JSON(http.StatusOK, mapping)
}

func (api *settingsApi) resetColumnMapping(ctx echo.Context) error {
	if err := api.svc.ResetColumnMapping(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "resetting column mapping")
	}
	return ctx.NoContent(http.StatusNoContent)
}
