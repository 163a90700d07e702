package drafts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"draftsync/models"
	"draftsync/utils"
)

var validDraftTypes = map[models.DraftType]bool{
	models.DraftTypeNone:    true,
	models.DraftTypePrivate: true,
	models.DraftTypeStream:  true,
}

var (
	requiredKeys = []string{"type", "to", "topic", "content"}
	optionalKeys = []string{"timestamp"}
)

// DecodeDraft parses and validates a single JSON draft dictionary
func DecodeDraft(data []byte) (*models.DraftPayload, error) {
	value, err := decodeJSON(data, "draft")
	if err != nil {
		return nil, err
	}
	return ValidateDraftDict("draft", value)
}

// DecodeDrafts parses and validates a JSON list of draft dictionaries
func DecodeDrafts(data []byte) ([]*models.DraftPayload, error) {
	value, err := decodeJSON(data, "drafts")
	if err != nil {
		return nil, err
	}
	return ValidateDraftDicts("drafts", value)
}

func decodeJSON(data []byte, varName string) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return nil, utils.SchemaError("Argument \"%s\" is not valid JSON.", varName)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, utils.SchemaError("Argument \"%s\" is not valid JSON.", varName)
	}
	return value, nil
}

// ValidateDraftDicts checks that value is a list of draft dictionaries
func ValidateDraftDicts(varName string, value interface{}) ([]*models.DraftPayload, error) {
	list, ok := value.([]interface{})
	if !ok {
		return nil, utils.SchemaError("%s is not a list", varName)
	}

	payloads := make([]*models.DraftPayload, 0, len(list))
	for i, item := range list {
		p, err := ValidateDraftDict(fmt.Sprintf("%s[%d]", varName, i), item)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, nil
}

// ValidateDraftDict checks the structure of one draft dictionary and returns it typed.
// value is expected to come from a json.Decoder with UseNumber, but plain Go
// numbers are accepted too. No cross-field or recipient checks happen here.
func ValidateDraftDict(varName string, value interface{}) (*models.DraftPayload, error) {
	dict, ok := value.(map[string]interface{})
	if !ok {
		return nil, utils.SchemaError("%s is not a dict", varName)
	}

	payload := &models.DraftPayload{}
	for _, key := range requiredKeys {
		raw, ok := dict[key]
		if !ok {
			return nil, utils.SchemaError("%s key is missing from %s", key, varName)
		}
		if err := checkRequiredKey(payload, fieldName(varName, key), key, raw); err != nil {
			return nil, err
		}
	}

	if raw, ok := dict["timestamp"]; ok {
		ts, ok := asNumber(raw)
		if !ok {
			return nil, utils.SchemaError("%s is not an allowed_type", fieldName(varName, "timestamp"))
		}
		payload.Timestamp = &ts
	}

	var unexpected []string
	for key := range dict {
		if !isAllowedKey(key) {
			unexpected = append(unexpected, key)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return nil, utils.SchemaError("Unexpected arguments: %s", strings.Join(unexpected, ", "))
	}

	return payload, nil
}

// checkRequiredKey validates one required key and stores it in payload
func checkRequiredKey(payload *models.DraftPayload, name, key string, raw interface{}) error {
	switch key {
	case "type":
		typ, ok := raw.(string)
		if !ok {
			return utils.SchemaError("%s is not a string", name)
		}
		if !validDraftTypes[models.DraftType(typ)] {
			return utils.SchemaError("Invalid %s", name)
		}
		payload.Type = models.DraftType(typ)
	case "to":
		to, err := checkIntList(name, raw)
		if err != nil {
			return err
		}
		payload.To = to
	case "topic":
		topic, ok := raw.(string)
		if !ok {
			return utils.SchemaError("%s is not a string", name)
		}
		payload.Topic = topic
	case "content":
		content, ok := raw.(string)
		if !ok {
			return utils.SchemaError("%s is not a string", name)
		}
		if strings.TrimSpace(content) == "" {
			return utils.SchemaError("%s cannot be blank.", name)
		}
		payload.Content = content
	}
	return nil
}

func isAllowedKey(key string) bool {
	for _, k := range requiredKeys {
		if k == key {
			return true
		}
	}
	for _, k := range optionalKeys {
		if k == key {
			return true
		}
	}
	return false
}

func fieldName(varName, key string) string {
	return fmt.Sprintf("%s[\"%s\"]", varName, key)
}

func checkIntList(varName string, value interface{}) ([]int64, error) {
	list, ok := value.([]interface{})
	if !ok {
		return nil, utils.SchemaError("%s is not a list", varName)
	}

	ids := make([]int64, 0, len(list))
	for i, item := range list {
		id, ok := asInt(item)
		if !ok {
			return nil, utils.SchemaError("%s[%d] is not an integer", varName, i)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func asInt(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}

func asNumber(value interface{}) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
