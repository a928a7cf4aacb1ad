package handler

import (
	"github.com/labstack/echo/v4"

	"mailwriter/internal/auth"
	"mailwriter/internal/model"
)

// Context keys set by the route guard.
const (
	ContextUserKey    = "current_user"
	ContextSessionKey = "session_claims"
)

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(ContextUserKey).(*model.User)
	return user
}

// CurrentSession returns the claims of the authenticated session, if any.
func CurrentSession(c echo.Context) *auth.SessionClaims {
	claims, _ := c.Get(ContextSessionKey).(*auth.SessionClaims)
	return claims
}
