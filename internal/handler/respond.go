// Package handler binds HTTP requests to the service layer and renders its
// results. Every error leaves as {"message": ..., "error": code}.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/library-management/internal/middleware"
	"github.com/iliyamo/library-management/internal/model"
	"github.com/iliyamo/library-management/internal/service"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k service.Kind) int {
	switch k {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Persistence failures are logged with their cause
// and reach the client only as a generic message.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var ae *service.AppError
	if !errors.As(err, &ae) {
		ae = &service.AppError{Kind: service.KindPersistence, Code: service.CodeInternal, Message: "internal error", Err: err}
	}
	status := StatusOf(ae.Kind)
	msg := ae.Message
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("request_id", middleware.RequestID(c)),
			zap.Error(err))
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"message": msg, "error": ae.Code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"message": msg, "error": service.CodeValidation})
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}

// caller returns the principal set by the authentication middleware.
func caller(c echo.Context) (service.Principal, bool) {
	return middleware.Principal(c)
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": "authorization required", "error": service.CodeAuthRequired})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryID parses an optional positive numeric query parameter.
func queryID(c echo.Context, name string) (*uint64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return nil, false
	}
	return &id, true
}

// pageOf reads page and per_page; malformed values fall back to defaults.
func pageOf(c echo.Context) model.Page {
	n, _ := strconv.Atoi(c.QueryParam("page"))
	per, _ := strconv.Atoi(c.QueryParam("per_page"))
	return model.NewPage(n, per)
}
