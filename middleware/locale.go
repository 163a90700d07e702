package middleware

import (
	"draftsync/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

const (
	LocalizerKey = "localizer"
	LangKey      = "lang"
)

var supportedTags = func() []language.Tag {
	tags := make([]language.Tag, 0, len(utils.SupportedLanguages))
	for _, lang := range utils.SupportedLanguages {
		tags = append(tags, language.Make(lang))
	}
	return tags
}()

var matcher = language.NewMatcher(supportedTags)

// LocaleMiddleware detects and sets the user's locale
func LocaleMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// 1. Query parameter, 2. cookie, 3. Accept-Language header
		lang := c.Query("lang")
		if lang == "" {
			lang = c.Cookies("lang")
		}

		tags, _, _ := language.ParseAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
		if lang != "" {
			tags = append([]language.Tag{language.Make(lang)}, tags...)
		}
		_, index, _ := matcher.Match(tags...)
		lang = utils.SupportedLanguages[index]

		c.Locals(LocalizerKey, utils.GetLocalizer(lang))
		c.Locals(LangKey, lang)

		utils.Log.Debug("Locale detected: %s for path: %s", lang, c.Path())

		return c.Next()
	}
}

// GetLocalizer returns the request's localizer, or the default one
func GetLocalizer(c *fiber.Ctx) *i18n.Localizer {
	if localizer, ok := c.Locals(LocalizerKey).(*i18n.Localizer); ok {
		return localizer
	}
	return utils.Localizer
}
