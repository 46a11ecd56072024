package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/conversation"
	"github.com/trezcool/portal/core/resource"
	"github.com/trezcool/portal/core/submission"
)

type (
	gradeRequest struct {
		Score *float64 `json:"score"`
	}

	messageRequest struct {
		Text string `json:"text"`
	}

	countResponse struct {
		Updated int `json:"updated"`
	}
)

func registerAlertAPI(g *echo.Group, svc *alert.Service) {
	ag, _ := registerCollectionAPI(g, svc.Collection)
	ag.POST("/read-all", func(ctx echo.Context) error {
		n, err := svc.MarkAllRead(ctx.Request().Context())
		if err != nil {
			return errors.Wrap(err, "marking alerts read")
		}
		return ctx.JSON(http.StatusOK, countResponse{Updated: n})
	})
}

func registerSubmissionAPI(g *echo.Group, svc *submission.Service) {
	_, dg := registerCollectionAPI(g, svc.Collection)
	dg.POST("/grade", func(ctx echo.Context) error {
		var data gradeRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to gradeRequest")
		}
		if data.Score == nil {
			return core.NewValidationError(nil, core.FieldError{Field: "score", Error: "this field is required"})
		}
		sub, err := svc.Grade(ctx.Request().Context(), ctx.Param("id"), *data.Score)
		if err != nil {
			return errors.Wrap(err, "grading submission")
		}
		return ctx.JSON(http.StatusOK, sub)
	}, staffMiddleware)
}

func registerResourceAPI(g *echo.Group, svc *resource.Service) {
	_, dg := registerCollectionAPI(g, svc.Collection)
	dg.POST("/borrow", func(ctx echo.Context) error {
		r, err := svc.Borrow(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "borrowing resource")
		}
		return ctx.JSON(http.StatusOK, r)
	})
	// returns are checked in at the library desk
	dg.POST("/return", func(ctx echo.Context) error {
		r, err := svc.Return(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "returning resource")
		}
		return ctx.JSON(http.StatusOK, r)
	}, staffMiddleware)
}

func registerConversationAPI(g *echo.Group, svc *conversation.Service) {
	_, dg := registerCollectionAPI(g, svc.Collection)
	dg.POST("/messages", func(ctx echo.Context) error {
		var data messageRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to messageRequest")
		}
		c, err := svc.Post(ctx.Request().Context(), ctx.Param("id"), identityOrZero(ctx).Name, data.Text)
		if err != nil {
			return errors.Wrap(err, "posting message")
		}
		return ctx.JSON(http.StatusCreated, c)
	})
	dg.POST("/read", func(ctx echo.Context) error {
		c, err := svc.MarkRead(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			return errors.Wrap(err, "marking conversation read")
		}
		return ctx.JSON(http.StatusOK, c)
	})
}
