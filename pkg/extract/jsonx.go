package extract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StripFences removes a surrounding markdown code fence, with or without a
// language tag, so fenced model output decodes as plain JSON.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		tag := strings.TrimSpace(s[:idx])
		if tag == "" || isFenceTag(tag) {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func isFenceTag(tag string) bool {
	for _, r := range tag {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

type rawItem struct {
	Raw      string      `json:"raw"`
	Product  string      `json:"product"`
	Quantity looseNumber `json:"quantity"`
	Unit     string      `json:"unit"`
}

// looseNumber accepts a bare or string-encoded JSON number. The model is
// inconsistent about quoting quantities, and one loosely typed field must
// not discard the whole extraction.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = looseNumber(f)
	return nil
}

type modelError struct {
	Error string `json:"error"`
}

// decodeItems parses the model's reply. A well-formed error object
// ({"error": ...}) and any undecodable payload both count as "no items";
// the second return reports whether the payload was understood at all.
func decodeItems(raw string) ([]rawItem, bool) {
	s := StripFences(raw)
	if s == "" {
		return nil, false
	}
	var items []rawItem
	if err := json.Unmarshal([]byte(s), &items); err == nil {
		return items, true
	}
	var me modelError
	if err := json.Unmarshal([]byte(s), &me); err == nil && me.Error != "" {
		return nil, true
	}
	return nil, false
}
