package serverutils

import (
	"errors"

	"ai-docagent-be/pkg/agent"
	"ai-docagent-be/pkg/document"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts returned errors into the standard
// envelope, mapping known domain errors to their HTTP status.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		code := statusFor(err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, document.ErrBlockNotFound),
		errors.Is(err, document.ErrListItemNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, document.ErrNotEditable),
		errors.Is(err, document.ErrEmptyReplacement),
		errors.Is(err, document.ErrUnknownAction):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, agent.ErrTransport):
		return fiber.StatusBadGateway
	case errors.Is(err, agent.ErrNoRetryableRequest):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
