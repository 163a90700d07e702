package api

import (
	"errors"

	"draftsync/middleware"
	"draftsync/utils"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler turns handler errors into `{"error", "code"}` JSON responses.
// AppErrors carry their own status and are localized for the request; other
// errors are logged and reported as internal.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	kind := utils.KindInternal
	message := "Internal server error"

	var fiberErr *fiber.Error
	if appErr, ok := utils.AsAppError(err); ok {
		code = appErr.Code
		kind = appErr.Kind
		message = utils.LocalizeError(middleware.GetLocalizer(c), appErr)
	} else if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
		if code < fiber.StatusInternalServerError {
			kind = utils.KindBadRequest
		}
		if code == fiber.StatusNotFound {
			kind = utils.KindNotFound
		}
	}

	if kind == utils.KindInternal {
		utils.Log.WithFields(map[string]interface{}{
			"request_id": middleware.GetRequestID(c),
			"method":     c.Method(),
			"path":       c.Path(),
		}).Error("Application error: %v", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error":      message,
		"code":       kind.String(),
		"request_id": middleware.GetRequestID(c),
	})
}

// NotFound answers requests no route matched
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundError("Not found", nil).WithMessageID("error_404", nil)
}
