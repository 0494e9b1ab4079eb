package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSON writes a raw JSON payload. Response shapes are part of the public API
// contract, so payloads are written as-is rather than wrapped in an envelope.
func JSON(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, data)
}

// OK writes a 200 with the given payload.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// ErrorResponse writes an error payload with a detail message clients can
// surface verbatim.
func ErrorResponse(c echo.Context, statusCode int, detail string) error {
	return c.JSON(statusCode, ErrorBody{Detail: detail})
}

// ValidationResponse writes a 400 carrying per-field validation errors.
func ValidationResponse(c echo.Context, errs []ValidationError) error {
	detail := "invalid request"
	if len(errs) > 0 && errs[0].Message != "" {
		detail = errs[0].Message
	}
	return c.JSON(http.StatusBadRequest, ErrorBody{Detail: detail, Errors: errs})
}

// AppErrorResponse maps an AppError (or any error) to an error payload.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.JSON(appErr.Status, ErrorBody{Detail: appErr.Message, Code: appErr.Code})
	}
	return c.JSON(http.StatusInternalServerError, ErrorBody{Detail: "internal server error"})
}
