package docstore

import (
	"encoding/json"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Field names with store-level meaning.
const (
	// FieldID is the caller-assigned unique document key.
	FieldID = "id"

	// FieldIndexed carries the insertion timestamp in milliseconds since
	// the epoch. Stamped on first write, never overwritten.
	FieldIndexed = "indexed"
)

// Document is a schemaless record keyed by its id field.
type Document map[string]any

// ID returns the document id as a string, empty when absent.
func (d Document) ID() string {
	id, _ := idString(d[FieldID])
	return id
}

// Decode maps the document onto a typed struct using json tags. Input
// is converted weakly, matching how the engine returns numbers, and
// time and string-slice fields are decoded through hooks.
func (d Document) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(timeHook, stringSliceHook),
	})
	if err != nil {
		return errors.WithMessage(err, "failed to create decoder")
	}
	return decoder.Decode(map[string]any(d))
}

// timeHook converts string values to time.Time.
func timeHook(_, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}

	if t, ok := data.(time.Time); ok {
		return t, nil
	}

	str, ok := data.(string)
	if !ok {
		return data, nil
	}

	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, str); err == nil {
			return t, nil
		}
	}

	return data, errors.Errorf("unable to parse time: %s", str)
}

// stringSliceHook converts []any values to []string.
func stringSliceHook(_, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf([]string{}) {
		return data, nil
	}

	if strSlice, ok := data.([]string); ok {
		return strSlice, nil
	}

	slice, ok := data.([]any)
	if !ok {
		return data, nil
	}

	result := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok {
			result = append(result, s)
		}
	}

	return result, nil
}

// idString renders a document id as a string. Ids may be strings or
// numbers; engine responses decode numeric ids as float64.
func idString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case int:
		return strconv.Itoa(id), true
	case int64:
		return strconv.FormatInt(id, 10), true
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}

// nowMillis returns the current time in the unit the indexed field uses.
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
