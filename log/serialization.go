package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// addAttr flattens attr into dst. Group members get dotted keys.
func addAttr(dst map[string]any, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	key := attr.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	} else if key == "" {
		key = prefix
	}

	if attr.Value.Kind() == slog.KindGroup {
		for _, member := range attr.Value.Group() {
			addAttr(dst, key, member)
		}
		return
	}
	dst[key] = attrValue(attr.Value)
}

// attrValue converts a resolved slog value into something that survives a
// JSON round trip with its meaning intact.
func attrValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		a := v.Any()
		if a == nil {
			return nil
		}
		if err, ok := a.(error); ok {
			return err.Error()
		}
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Sprintf("%v", a)
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return string(data)
		}
		return out
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
