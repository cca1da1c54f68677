package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// subject identifies the caller for rate-limit keys: the authenticated
// user id, or "anon".
func subject(c echo.Context) string {
	if id, ok := c.Get(CtxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
