package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/openmeet/openmeet-api/internal/api/middleware"
)

// ctxSubject returns the user id the Auth middleware extracted from the
// token. A missing or malformed subject is a 401: the token is structurally
// valid but does not identify a user.
func ctxSubject(c echo.Context) (uuid.UUID, error) {
	sub, _ := c.Get(middleware.SubjectKey).(string)
	if sub == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "token subject is not a user id")
	}
	return id, nil
}

// pathUUID parses a UUID path parameter, answering 400 when it is malformed.
func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a UUID")
	}
	return id, nil
}
