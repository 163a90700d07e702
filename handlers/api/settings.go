package api

import (
	"draftsync/drafts"
	"draftsync/middleware"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler updates user preferences
type SettingsHandler struct {
	service *drafts.Service
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(service *drafts.Service) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// UpdateSettings changes enable_drafts_synchronization. Turning it off deletes
// every synced draft of the user.
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	enabled, err := boolArgument(c, "enable_drafts_synchronization")
	if err != nil {
		return err
	}

	user := middleware.CurrentUser(c)
	if err := h.service.SetSync(user, enabled); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":                       true,
		"enable_drafts_synchronization": user.EnableDraftsSynchronization,
	})
}
