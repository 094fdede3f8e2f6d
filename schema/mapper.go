package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kewos554321/blaze4harbor/types"
)

// Row is an artifact projected onto a descriptor.
//
// Values are nil, string, int64, float64, bool, time.Time, Row (RECORD)
// or []any (REPEATED). Every top-level descriptor field is present as a key.
type Row map[string]any

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Map projects an artifact onto d. It never fails: values that are absent or
// cannot be represented by their schema entry become nil, and artifact fields
// without a schema entry are dropped.
func Map(a types.Artifact, d *Descriptor) Row {
	return mapRecord(d.Fields, map[string]any(a))
}

func mapRecord(fields []Field, src map[string]any) Row {
	row := make(Row, len(fields))
	for _, f := range fields {
		var v any
		if src != nil {
			v = src[f.Name]
		}
		row[f.Name] = mapValue(f, v)
	}
	return row
}

func mapValue(f Field, v any) any {
	if v == nil {
		return nil
	}
	if f.Repeated() {
		return mapRepeated(f, v)
	}
	if f.Type == TypeRecord {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		return mapRecord(f.Fields, m)
	}
	if f.Encoding == EncodingJSON {
		return encodeJSON(v)
	}
	s, ok := coerceScalar(f.Type, v)
	if !ok {
		return nil
	}
	return s
}

// mapRepeated maps a sequence element-wise. A mapping is lifted into a sequence of
// records when the field names a key subfield; otherwise it is one element.
func mapRepeated(f Field, v any) any {
	var out []any
	switch val := v.(type) {
	case []any:
		for _, elem := range val {
			if mapped := mapElement(f, elem); mapped != nil {
				out = append(out, mapped)
			}
		}
	case map[string]any:
		if f.Type == TypeRecord && f.KeyField != "" {
			keys := make([]string, 0, len(val))
			for k := range val {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out = append(out, keyedRecord(f, k, val[k]))
			}
		} else if mapped := mapElement(f, val); mapped != nil {
			out = append(out, mapped)
		}
	default:
		if mapped := mapElement(f, val); mapped != nil {
			out = append(out, mapped)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapElement(f Field, v any) any {
	if v == nil {
		return nil
	}
	if f.Type == TypeRecord {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		return mapRecord(f.Fields, m)
	}
	if f.Encoding == EncodingJSON {
		return encodeJSON(v)
	}
	s, ok := coerceScalar(f.Type, v)
	if !ok {
		return nil
	}
	return s
}

// keyedRecord builds one record of a lifted mapping. The mapping key always wins
// over a same-named field inside the aggregate.
func keyedRecord(f Field, key string, v any) Row {
	src := make(map[string]any)
	if m, ok := v.(map[string]any); ok {
		for k, val := range m {
			src[k] = val
		}
	}
	src[f.KeyField] = key
	return mapRecord(f.Fields, src)
}

// encodeJSON returns canonical JSON text (sorted keys, no HTML escaping).
// Empty substructures and empty strings map to nil so that an absent field stays
// distinguishable from an empty encoding.
func encodeJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 0 {
			return nil
		}
	case []any:
		if len(val) == 0 {
			return nil
		}
	case string:
		if val == "" {
			return nil
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil
	}
	return strings.TrimRight(buf.String(), "\n")
}

func coerceScalar(t FieldType, v any) (any, bool) {
	switch t {
	case TypeString:
		return toString(v)
	case TypeInteger:
		return toInt(v)
	case TypeFloat:
		return toFloat(v)
	case TypeBoolean:
		return toBool(v)
	case TypeTimestamp:
		return toTimestamp(v)
	default:
		return nil, false
	}
}

func toString(v any) (any, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return nil, false
	}
}

func toInt(v any) (any, bool) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		f, err := val.Float64()
		if err != nil {
			return nil, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(val)
	case int:
		return int64(val), true
	case int64:
		return val, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, false
		}
		return i, true
	default:
		return nil, false
	}
}

func floatToInt(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) ||
		f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, false
	}
	return int64(f), true
}

func toFloat(v any) (any, bool) {
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return nil, false
		}
		f = parsed
	case float64:
		f = val
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, false
		}
		f = parsed
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

func toBool(v any) (any, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil, false
		}
		return b, true
	default:
		return nil, false
	}
}

func toTimestamp(v any) (any, bool) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return nil, false
	case json.Number:
		secs, err := val.Float64()
		if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return nil, false
		}
		whole, frac := math.Modf(secs)
		return time.Unix(int64(whole), int64(frac*1e9)).UTC(), true
	default:
		return nil, false
	}
}
