package event

import (
	"strconv"
	"strings"
)

// RawRecord is the heterogeneous per-source mapping a scraper emits, or the
// same shape decoded from JSON. Each normalizer interprets only the subset of
// keys it explicitly checks.
type RawRecord map[string]any

// IsError reports whether the record is an error marker produced by a scraper
// in place of a real record. Error markers must never reach a normalizer;
// the ingest runner filters them out.
func (r RawRecord) IsError() bool {
	return r.String("error") != ""
}

// ErrorText returns the error description of a marker record, or "".
func (r RawRecord) ErrorText() string {
	return r.String("error")
}

// String walks the given key path and returns the value as a trimmed string.
// Numeric leaves are formatted (scraped ids sometimes decode as numbers).
// Missing keys, nil values, and non-scalar leaves yield "".
func (r RawRecord) String(path ...string) string {
	if len(path) == 0 {
		return ""
	}
	node := r
	for _, key := range path[:len(path)-1] {
		node = node.Map(key)
		if node == nil {
			return ""
		}
	}
	return stringify(node[path[len(path)-1]])
}

// Map returns the nested record at key, or nil when the key is missing or
// holds something that is not a mapping.
func (r RawRecord) Map(key string) RawRecord {
	if r == nil {
		return nil
	}
	switch v := r[key].(type) {
	case RawRecord:
		return v
	case map[string]any:
		return RawRecord(v)
	default:
		return nil
	}
}

// Strings returns the list at key with each element stringified; empty
// elements are dropped. A missing key yields nil.
func (r RawRecord) Strings(key string) []string {
	if r == nil {
		return nil
	}
	var items []any
	switch v := r[key].(type) {
	case []any:
		items = v
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := stringify(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
