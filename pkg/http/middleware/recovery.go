package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	applogger "SensorStream/pkg/logger"

	"github.com/labstack/echo/v4"
)

const stackSize = 4 << 10

// Recover turns a handler panic into a logged 500. Panics after the response
// was committed, such as inside an upgraded socket, are only logged.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				perr, ok := r.(error)
				if !ok {
					perr = fmt.Errorf("%v", r)
				}
				stack := make([]byte, stackSize)
				stack = stack[:runtime.Stack(stack, false)]

				l.Error("panic recovered",
					applogger.Error(perr),
					applogger.String("route", c.Path()),
					applogger.String("stack", string(stack)),
				)
				if !c.Response().Committed {
					err = echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(perr)
				}
			}()
			return next(c)
		}
	}
}
