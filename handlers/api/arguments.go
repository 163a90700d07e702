package api

import (
	"encoding/json"
	"strings"

	"draftsync/utils"

	"github.com/gofiber/fiber/v2"
)

// requestArgument returns the raw JSON text of a named argument. JSON bodies
// carry it as a member of the top-level object; form bodies carry it as a
// field whose value is JSON text.
func requestArgument(c *fiber.Ctx, name string) ([]byte, error) {
	if strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON) {
		var body map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return nil, utils.BadRequestError("Malformed JSON", nil)
		}
		if raw, ok := body[name]; ok {
			return raw, nil
		}
		return nil, missingArgument(name)
	}

	if args := c.Request().PostArgs(); args.Has(name) {
		return args.Peek(name), nil
	}
	if form, err := c.MultipartForm(); err == nil {
		if values := form.Value[name]; len(values) > 0 {
			return []byte(values[0]), nil
		}
	}
	return nil, missingArgument(name)
}

func missingArgument(name string) error {
	return utils.BadRequestError("Missing '"+name+"' argument", nil).
		WithMessageID("missing_argument", map[string]interface{}{"Name": name})
}

// boolArgument reads a JSON boolean argument
func boolArgument(c *fiber.Ctx, name string) (bool, error) {
	raw, err := requestArgument(c, name)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, utils.SchemaError("%s is not a boolean", name)
	}
	return v, nil
}
