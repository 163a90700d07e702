package api

import (
	"draftsync/utils"

	"github.com/gofiber/fiber/v2"
)

// clientMessageIDs are the messages a client shows while syncing drafts
var clientMessageIDs = []string{
	"drafts_sync_disabled",
	"draft_not_found",
	"draft_content_null_bytes",
	"draft_topic_null_bytes",
	"draft_timestamp_negative",
	"draft_timestamp_range",
	"draft_stream_count",
	"stream_invalid_id",
	"recipient_cross_realm",
	"rate_limited",
	"error_404",
}

// I18nHandler handles i18n-related requests
type I18nHandler struct{}

// GetTranslations returns translations for client-side use
func (h *I18nHandler) GetTranslations(c *fiber.Ctx) error {
	lang := c.Params("lang")

	// Only allow supported languages
	supported := false
	for _, l := range utils.SupportedLanguages {
		if l == lang {
			supported = true
			break
		}
	}
	if !supported {
		lang = "en"
	}

	localizer := utils.GetLocalizer(lang)

	translations := make(map[string]string, len(clientMessageIDs))
	for _, id := range clientMessageIDs {
		translations[id] = utils.T(localizer, id)
	}

	return c.JSON(fiber.Map{
		"lang":         lang,
		"translations": translations,
	})
}
