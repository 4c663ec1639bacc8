package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Machine-readable error codes carried in the response envelope. Clients
// key retry behavior off TOKEN_EXPIRED; everything else is terminal for the
// request that produced it.
const (
	CodeValidation         = "VALIDATION_FAILED"
	CodeDuplicate          = "DUPLICATE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidID          = "INVALID_ID"
	CodeInternal           = "INTERNAL"
)

// envelope is the uniform response shape: {success, message?, data?, error?}.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func okMsg(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func created(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, envelope{Success: false, Message: message, Error: code})
}

func badRequest(c echo.Context, message string) error {
	return fail(c, http.StatusBadRequest, CodeValidation, message)
}

func internal(c echo.Context) error {
	return fail(c, http.StatusInternalServerError, CodeInternal, "something went wrong")
}
