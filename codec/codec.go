package codec

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decode parses a single response frame, trying each supported encoding in
// order: strict JSON object, TOON, then permissive key/value lines. The first
// successful parse wins. If no format matches, the returned error describes
// all three failures.
func Decode(frame string) (map[string]any, error) {
	trimmed := strings.TrimSpace(frame)
	if trimmed == "" {
		return nil, fmt.Errorf("empty frame")
	}

	obj, jsonErr := decodeJSONObject(trimmed)
	if jsonErr == nil {
		return obj, nil
	}

	obj, toonErr := DecodeTOON(trimmed)
	if toonErr == nil {
		return obj, nil
	}

	obj, kvErr := DecodeKV(trimmed)
	if kvErr == nil {
		return obj, nil
	}

	return nil, fmt.Errorf("frame matched no supported encoding: json: %s; toon: %s; kv: %s", jsonErr, toonErr, kvErr)
}

func decodeJSONObject(frame string) (map[string]any, error) {
	if !strings.HasPrefix(frame, "{") {
		return nil, fmt.Errorf("not a JSON object")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(frame), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}
