package httpauth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	TextCode string `json:"text_code"`
	Message  string `json:"message"`
}

// ErrorResponse maps err to a status and body. Internal faults never leak
// their cause.
func ErrorResponse(err error) (int, ErrorBody) {
	status := accounts.StatusCode(err)
	code := accounts.TextCode(err)

	var richErr *goerrors.Error
	message := "internal server error"
	if goerrors.As(err, &richErr) && status < fiber.StatusInternalServerError {
		message = richErr.Message
	}

	var fiberErr *fiber.Error
	if code == "" && goerrors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}

	if code == "" {
		code = "INTERNAL_ERROR"
		if status < fiber.StatusInternalServerError {
			code = "HTTP_ERROR"
		}
	}
	return status, ErrorBody{TextCode: code, Message: message}
}

// ErrorHandler is a fiber.Config ErrorHandler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, body := ErrorResponse(err)
	return c.Status(status).JSON(body)
}

// RouterErrorHandler writes the same response through a go-router context.
func RouterErrorHandler(c router.Context, err error) error {
	status, body := ErrorResponse(err)
	return c.JSON(status, body)
}
