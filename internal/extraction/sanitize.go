package extraction

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// NormalizeFields turns a decoded {field: value} object into string values.
// Null, blank and "null" values are dropped; numbers and booleans are formatted; keys are
// trimmed and empty keys dropped. When several keys trim to the same name, the key that
// needs no trimming wins, otherwise the first in sorted order. The dropped keys are
// returned for logging.
func NormalizeFields(m map[string]any) (map[string]string, []string) {
	out := make(map[string]string, len(m))
	src := make(map[string]string, len(m))
	var dropped []string
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v := m[k]
		key := strings.TrimSpace(k)
		if key == "" {
			dropped = append(dropped, k+"(key)")
			continue
		}
		var s string
		switch t := v.(type) {
		case nil:
			dropped = append(dropped, key+"(null)")
			continue
		case string:
			s = strings.TrimSpace(t)
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case json.Number:
			s = t.String()
		case bool:
			s = strconv.FormatBool(t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				dropped = append(dropped, key+"(type)")
				continue
			}
			s = string(b)
		}
		if s == "" || strings.EqualFold(s, "null") {
			dropped = append(dropped, key+"(empty)")
			continue
		}
		if prev, taken := src[key]; taken {
			if prev == key || k != key {
				dropped = append(dropped, k+"(duplicate)")
				continue
			}
			dropped = append(dropped, prev+"(duplicate)")
		}
		out[key] = s
		src[key] = k
	}
	return out, dropped
}

// DecodeFields parses a flat JSON object and normalizes it.
func DecodeFields(raw []byte) (map[string]string, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("decode fields: %w", err)
	}
	out, dropped := NormalizeFields(m)
	return out, dropped, nil
}
