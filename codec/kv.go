package codec

import (
	"fmt"
	"regexp"
	"strings"
)

var kvLineRe = regexp.MustCompile(`^(\w+)\s*:\s*(.*)$`)

// DecodeKV parses line-oriented "key: value" text, inferring booleans and
// numbers from the values. Every non-blank line must be a key/value pair;
// anything else fails the parse so that genuinely malformed frames are
// reported instead of silently producing an empty result.
func DecodeKV(text string) (map[string]any, error) {
	result := map[string]any{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := kvLineRe.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("line %q is not a key/value pair", line)
		}
		result[m[1]] = inferScalar(strings.TrimSpace(m[2]))
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no key/value pairs found")
	}
	return result, nil
}
