package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core/ticket"
)

type ticketApi struct {
	svc *ticket.Service
}

func registerTicketAPI(g *echo.Group, svc *ticket.Service) {
	api := ticketApi{svc: svc}
	tg, _ := registerCollectionAPI(g, svc.Collection, svc.SetStatus)
	tg.POST("", api.create)
}

func (api *ticketApi) create(ctx echo.Context) error {
	var data ticket.NewTicket
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTicket")
	}
	if data.Requester == "" {
		data.Requester = identityOrZero(ctx).Name
	}

	tk, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating ticket")
	}
	return ctx.JSON(http.StatusCreated, tk)
}
