package metadata

import (
	"encoding/json"
	"strings"
)

// EncodeJSON renders the long-form JSON record. Unset optional fields are null.
func EncodeJSON(m SheetMetadata) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeJSON parses the long-form JSON record, failing closed like Decode.
func DecodeJSON(text string) (SheetMetadata, bool) {
	var m SheetMetadata
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return SheetMetadata{}, false
	}
	if m.Validate() != nil {
		return SheetMetadata{}, false
	}
	return m, true
}

// Parse decodes a marker payload in either form. Compact payloads start with
// 'p' and contain '|'; JSON payloads start with '{'. Anything else is absent.
func Parse(payload string) (SheetMetadata, bool) {
	text := strings.TrimSpace(payload)
	switch {
	case strings.HasPrefix(text, "p") && strings.Contains(text, "|"):
		return Decode(text)
	case strings.HasPrefix(text, "{"):
		return DecodeJSON(text)
	default:
		return SheetMetadata{}, false
	}
}
