package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/portal/core/view"
)

// bindParams reads search, filters, ordering and pagination from the query string.
// Malformed values are normalized rather than rejected.
func bindParams(ctx echo.Context) view.Params {
	return view.ParseParams(ctx.QueryParams())
}

type statusRequest struct {
	Status string `json:"status"`
}
