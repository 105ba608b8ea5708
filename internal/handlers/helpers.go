package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/useandsell/marketplace/internal/logging"
)

func respondData(c echo.Context, code int, data any) error {
	return c.JSON(code, echo.Map{"success": true, "data": data})
}

func baseURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host
}

// HTTPErrorHandler normalizes every handler error into the response envelope.
// Unexpected errors are logged server-side and reported as a generic message so
// no internals leak to clients.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "Internal Server Error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		default:
			msg = fmt.Sprint(m)
		}
	} else {
		logging.FromContext(c.Request().Context()).Error("request_failed", "error", err)
	}

	if jsonErr := c.JSON(code, echo.Map{"success": false, "error": msg}); jsonErr != nil {
		c.Logger().Error(jsonErr)
	}
}
