package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/collection"
)

type collectionApi[T any] struct {
	coll      *collection.Collection[T]
	setStatus func(ctx context.Context, id, status string) (T, error)
}

type stateResponse struct {
	Collection string               `json:"collection"`
	State      collection.LoadState `json:"state"`
	Error      string               `json:"error,omitempty"`
}

// registerCollectionAPI mounts the view & mutation endpoints of a collection under /<name>.
// It returns the collection group and the /:id group. setStatus replaces the default
// transition of the status route when given.
func registerCollectionAPI[T any](g *echo.Group, coll *collection.Collection[T], setStatus ...func(context.Context, string, string) (T, error)) (*echo.Group, *echo.Group) {
	api := collectionApi[T]{coll: coll, setStatus: coll.Transition}
	if len(setStatus) > 0 && setStatus[0] != nil {
		api.setStatus = setStatus[0]
	}

	cg := g.Group("/"+coll.Name(), sectionMiddleware(coll.Name()))
	cg.GET("", api.query)
	cg.GET("/state", api.state)
	cg.POST("/reload", api.reload)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy, leaderMiddleware)
	if coll.Schema().WithStatus != nil {
		dg.POST("/status", api.transition)
	}
	return cg, dg
}

// Handlers

func (api *collectionApi[T]) query(ctx echo.Context) error {
	res, err := api.coll.Query(ctx.Request().Context(), bindParams(ctx))
	if err != nil {
		return errors.Wrapf(err, "querying %s", api.coll.Name())
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *collectionApi[T]) retrieve(ctx echo.Context) error {
	rec, err := api.coll.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrapf(err, "retrieving %s", api.coll.Name())
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *collectionApi[T]) transition(ctx echo.Context) error {
	var data statusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to statusRequest")
	}
	if core.CleanString(data.Status) == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "this field is required"})
	}

	rec, err := api.setStatus(ctx.Request().Context(), ctx.Param("id"), core.CleanString(data.Status, true))
	if err != nil {
		return errors.Wrapf(err, "transitioning %s", api.coll.Name())
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *collectionApi[T]) destroy(ctx echo.Context) error {
	if err := api.coll.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrapf(err, "deleting %s", api.coll.Name())
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *collectionApi[T]) state(ctx echo.Context) error {
	state, err := api.coll.State()
	resp := stateResponse{Collection: api.coll.Name(), State: state}
	if err != nil {
		resp.Error = err.Error()
	}
	return ctx.JSON(http.StatusOK, resp)
}

// reload drops the current records and loads them again; it is the retry of a failed load.
func (api *collectionApi[T]) reload(ctx echo.Context) error {
	api.coll.Reset()
	if err := api.coll.Load(ctx.Request().Context()); err != nil {
		return errors.Wrapf(err, "reloading %s", api.coll.Name())
	}
	state, _ := api.coll.State()
	return ctx.JSON(http.StatusOK, stateResponse{Collection: api.coll.Name(), State: state})
}
