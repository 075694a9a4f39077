package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
	"github.com/mohammad-safakhou/sparkadvisor/session"
)

// HTTPError is the error envelope of every failed request.
type HTTPError struct {
	Error string `json:"error"`
}

// errorHandler writes {"error": msg} with a status derived from the error.
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code, msg := statusOf(err)
		req := c.Request()
		fields := []zap.Field{
			zap.Int("status", code),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		}
		if code >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Debug("request rejected", fields...)
		}
		if req.Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, HTTPError{Error: msg})
	}
}

func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, msg
	}
	switch {
	case errors.Is(err, kusto.ErrUnsafeQuery), errors.Is(err, advisor.ErrUnknownPattern), errors.Is(err, advisor.ErrEmptyCategory),
		errors.Is(err, recommend.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, kusto.ErrNotFound), errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, advisor.ErrHistoryDisabled):
		return http.StatusServiceUnavailable, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

func badRequest(msg string) error { return echo.NewHTTPError(http.StatusBadRequest, msg) }
