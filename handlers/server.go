package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type errorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler writes every handler error as {"error": message}. Errors that
// are not *echo.HTTPError become 500 and are logged.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprint(he.Message)
	} else {
		log.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: message})
	}
	if err != nil {
		log.Errorln(err)
	}
}

// NewServer builds the echo instance with all routes registered.
func NewServer(v *Videos) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/health", Health)
	e.GET("/status", v.Diagnostics)

	e.POST("/videos/upload", v.Upload)
	e.GET("/videos/history", v.History)
	e.GET("/videos/:id/status", v.Status)
	e.GET("/videos/:id/download", v.Download)
	e.DELETE("/videos/:id", v.Delete)

	return e
}
