// Package web holds the JSON response envelope shared by all handlers.
// Every success and error response carries the same shape so API clients
// can parse uniformly: {success, statusCode, message, data?}.
package web

import (
	"github.com/labstack/echo/v4"
)

// Response is the API envelope. Data is omitted for responses with no payload
// (logout, change-password) and for error responses.
type Response struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// JSON writes a success envelope with the given status, message, and payload.
func JSON(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Response{
		Success:    status < 400,
		StatusCode: status,
		Message:    message,
		Data:       data,
	})
}
