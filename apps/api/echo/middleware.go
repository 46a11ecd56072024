package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/portal/core/user"
)

// Identity headers set by the session layer in front of the API.
const (
	HeaderRole   = "X-Portal-Role"
	HeaderUser   = "X-Portal-User"
	HeaderAvatar = "X-Portal-Avatar"

	contextIdentityKey = "identity"
)

// identityMiddleware reads the session identity. It trusts the headers: authentication
// happens before requests reach the API.
func identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		h := ctx.Request().Header
		id := user.NewIdentity(h.Get(HeaderUser), h.Get(HeaderAvatar), h.Get(HeaderRole))
		if id.Role == "" {
			return errMissingIdentity
		}
		if !user.IsRole(id.Role) {
			return errUnknownRole
		}
		ctx.Set(contextIdentityKey, id)
		return next(ctx)
	}
}

// sectionMiddleware only lets through identities whose role may see the section.
func sectionMiddleware(section string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !identityOrZero(ctx).CanSee(section) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

func identityOrZero(ctx echo.Context) user.Identity {
	id, _ := ctx.Get(contextIdentityKey).(user.Identity)
	return id
}

// leaderMiddleware restricts a route to the leadership.
func leaderMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !identityOrZero(ctx).IsLeader() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

// staffMiddleware restricts a route to university staff.
func staffMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !identityOrZero(ctx).IsStaff() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}
