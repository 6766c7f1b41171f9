package presenter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/biblion/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequest(c echo.Context, err error) error {
	return BadRequestMessage(c, err.Error())
}

func BadRequestMessage(c echo.Context, msg string) error {
	slog.DebugContext(c.Request().Context(), "bad request", slog.String("error", msg), slog.String("module", "rest"))
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func Forbidden(c echo.Context, msg string) error {
	slog.InfoContext(c.Request().Context(), "forbidden", slog.String("error", msg), slog.String("module", "rest"))
	return c.JSON(http.StatusForbidden, errorResponse{Error: msg})
}

func Conflict(c echo.Context, msg string) error {
	return c.JSON(http.StatusConflict, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	ctx := c.Request().Context()
	slog.ErrorContext(
		ctx, "internal error",
		slog.String("error", err.Error()),
		slog.String("traceID", trace.SpanContextFromContext(ctx).TraceID().String()),
		slog.String("module", "rest"),
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// Error picks the status for an error coming out of a usecase.
func Error(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return Forbidden(c, err.Error())
	case errors.Is(err, domain.ErrFieldTooLong), errors.Is(err, domain.ErrInvalidInput):
		return BadRequest(c, err)
	case errors.Is(err, domain.ErrAlreadyCommitted):
		return Conflict(c, err.Error())
	default:
		return InternalError(c, err)
	}
}
