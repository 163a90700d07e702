package utils

import (
	"draftsync/locales"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

var (
	// Bundle is the global translation bundle
	Bundle *i18n.Bundle
	// Localizer is the default localizer
	Localizer *i18n.Localizer
)

// SupportedLanguages are the languages shipped in locales.FS
var SupportedLanguages = []string{"en", "ja"}

func init() {
	if err := InitI18n(); err != nil {
		Log.Warn("Failed to initialize i18n: %v", err)
	}
}

// InitI18n initializes the i18n system from the embedded message files
func InitI18n() error {
	Bundle = i18n.NewBundle(language.English)
	Bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range locales.Files {
		if _, err := Bundle.LoadMessageFileFS(locales.FS, file); err != nil {
			Log.Warn("Failed to load locale %s: %v", file, err)
		}
	}

	Localizer = i18n.NewLocalizer(Bundle, language.English.String())
	return nil
}

// GetLocalizer returns a localizer for the specified language
func GetLocalizer(lang string) *i18n.Localizer {
	if lang == "" {
		lang = "en"
	}
	return i18n.NewLocalizer(Bundle, lang)
}

// T translates a message ID
func T(localizer *i18n.Localizer, messageID string) string {
	return TWithData(localizer, messageID, nil)
}

// TWithData translates a message ID with template data
func TWithData(localizer *i18n.Localizer, messageID string, data map[string]interface{}) string {
	if localizer == nil {
		localizer = Localizer
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		Log.Debug("Translation error for '%s': %v", messageID, err)
		return messageID
	}
	return msg
}

// LocalizeError returns the user-facing text of an AppError in the localizer's language.
// Errors without a message id, or with a missing translation, keep their English message.
func LocalizeError(localizer *i18n.Localizer, appErr *AppError) string {
	if appErr.MessageID == "" {
		return appErr.Message
	}
	if localizer == nil {
		localizer = Localizer
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    appErr.MessageID,
		TemplateData: appErr.Data,
	})
	if err != nil {
		return appErr.Message
	}
	return msg
}
