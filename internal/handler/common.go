// Package handler exposes the reservation core over HTTP with echo.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-reservation/internal/middleware"
	"github.com/iliyamo/cinema-reservation/internal/service"
)

// requestTimeout bounds the store work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// currentUser returns the id stored by middleware.JWTAuth.
func currentUser(c echo.Context) (uint64, bool) {
	id, ok := c.Get(middleware.CtxUserID).(uint64)
	return id, ok && id != 0
}

// idParam parses a positive decimal path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// forceParam reads the optional ?force= flag. Anything strconv.ParseBool
// rejects counts as false.
func forceParam(c echo.Context) bool {
	v, _ := strconv.ParseBool(c.QueryParam("force"))
	return v
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// statusFor maps a core error kind to its HTTP status.
func statusFor(k service.Kind) int {
	switch k {
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindNotFound, service.KindInvalidSchedule, service.KindMovieNotFound:
		return http.StatusNotFound
	case service.KindSeatAlreadyReserved, service.KindClash, service.KindBlockedByReservation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a core error. Store failures are logged and hidden
// from the client.
func writeError(c echo.Context, logger hclog.Logger, err error) error {
	kind := service.KindOf(err)
	status := statusFor(kind)
	body := echo.Map{"error": kind.String()}
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		return c.JSON(status, body)
	}
	var se *service.Error
	if errors.As(err, &se) && se.Err != nil {
		body["detail"] = se.Err.Error()
	}
	var taken *service.SeatsTakenError
	if errors.As(err, &taken) && len(taken.Labels) > 0 {
		body["seats"] = taken.Labels
	}
	return c.JSON(status, body)
}
