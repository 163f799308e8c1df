package codec

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	toonHeaderRe = regexp.MustCompile(`^(\w+)\[(\d+)\](?:\{([^}]+)\})?:\s*$`)
	toonScalarRe = regexp.MustCompile(`^(\w+):\s*(.+)$`)
)

// DecodeTOON parses a TOON payload into a map. A payload qualifies as TOON
// only if it declares at least one array header ("key[N]{cols}:" or
// "key[N]:"); flat key/value text is left for the permissive parser so that
// the two formats stay distinguishable.
func DecodeTOON(text string) (map[string]any, error) {
	result := map[string]any{}

	var (
		sawHeader   bool
		currentKey  string
		currentCols []string
		currentRows []any
	)

	flush := func() {
		if currentKey != "" {
			result[currentKey] = currentRows
		}
		currentKey = ""
		currentCols = nil
		currentRows = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}

		if m := toonHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			sawHeader = true
			currentKey = m[1]
			currentRows = []any{}
			if m[3] != "" {
				for _, c := range strings.Split(m[3], ",") {
					currentCols = append(currentCols, strings.TrimSpace(c))
				}
			}
			continue
		}

		if strings.HasPrefix(line, "  ") && currentKey != "" {
			row := strings.TrimSpace(line)
			if len(currentCols) > 0 {
				values := strings.Split(row, ",")
				obj := map[string]any{}
				for i, col := range currentCols {
					if i < len(values) {
						obj[col] = inferScalar(strings.TrimSpace(values[i]))
					}
				}
				currentRows = append(currentRows, obj)
			} else {
				currentRows = append(currentRows, inferScalar(row))
			}
			continue
		}

		if m := toonScalarRe.FindStringSubmatch(line); m != nil {
			flush()
			result[strings.TrimSpace(m[1])] = inferScalar(strings.TrimSpace(m[2]))
			continue
		}

		return nil, fmt.Errorf("unparsable TOON line %q", line)
	}

	flush()

	if !sawHeader {
		return nil, fmt.Errorf("no array header found")
	}
	return result, nil
}

// EncodeTOON encodes a map in TOON form. Slices of objects become tabular
// arrays, plain slices become simple arrays, and everything else becomes a
// "key: value" line, with nested structures embedded as JSON. Keys are
// emitted in sorted order so output is deterministic.
func EncodeTOON(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		switch v := data[key].(type) {
		case []any:
			if len(v) > 0 {
				if first, ok := v[0].(map[string]any); ok {
					lines = append(lines, encodeTOONTable(key, first, v)...)
					continue
				}
				lines = append(lines, fmt.Sprintf("%s[%d]:", key, len(v)))
				for _, item := range v {
					lines = append(lines, "  "+toonCell(item))
				}
				continue
			}
			lines = append(lines, fmt.Sprintf("%s[0]:", key))
		case map[string]any:
			b, _ := json.Marshal(v)
			lines = append(lines, fmt.Sprintf("%s: %s", key, b))
		default:
			lines = append(lines, fmt.Sprintf("%s: %s", key, toonCell(v)))
		}
	}
	return strings.Join(lines, "\n")
}

func encodeTOONTable(key string, first map[string]any, rows []any) []string {
	cols := make([]string, 0, len(first))
	for c := range first {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	lines := []string{fmt.Sprintf("%s[%d]{%s}:", key, len(rows), strings.Join(cols, ","))}
	for _, item := range rows {
		obj, ok := item.(map[string]any)
		if !ok {
			obj = map[string]any{}
		}
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = toonCell(obj[col])
		}
		lines = append(lines, "  "+strings.Join(cells, ","))
	}
	return lines
}

// toonCell renders a single value for a TOON row, squashing the characters
// that would corrupt row structure.
func toonCell(v any) string {
	s := fmt.Sprintf("%v", v)
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// inferScalar converts a raw token into an int, float, or bool where the text
// allows it, falling back to the string itself. Values that look like JSON
// are parsed as JSON.
func inferScalar(s string) any {
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
