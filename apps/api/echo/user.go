package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/portal/core/dashboard"
	"github.com/trezcool/portal/core/user"
)

type userApi struct {
	dashboard *dashboard.Builder
}

type meResponse struct {
	user.Identity
	Sections []string `json:"sections"`
}

func registerUserAPI(g *echo.Group, board *dashboard.Builder) {
	api := userApi{dashboard: board}

	g.GET("/me", api.me)
	g.GET("/roles", api.queryRoles)
	if board != nil {
		g.GET("/dashboard", api.summary)
	}
}

func (api *userApi) me(ctx echo.Context) error {
	id := identityOrZero(ctx)
	return ctx.JSON(http.StatusOK, meResponse{Identity: id, Sections: id.Sections()})
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) summary(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.dashboard.Build(ctx.Request().Context(), identityOrZero(ctx)))
}
