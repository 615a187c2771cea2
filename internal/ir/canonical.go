package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"
)

// MarshalCanonical produces RFC 8785 canonical JSON for a tree.
// CRITICAL: This is the ONLY serialization that should be used for
// content-addressed identity (TreeHash, Method.Hash).
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Strings are written as their raw bytes, so NFC-equivalent spellings
//    of a literal stay distinct
// 4. Floats use the shortest round-trip form and keep the sign of -0;
//    NaN and Inf are rejected
// 5. Literal payloads are always present and constants are tagged by kind,
//    so 5, 5.0 and -0 never share an encoding
func MarshalCanonical(n Node) ([]byte, error) {
	w, err := toWire(n)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, w.document()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// document flattens a wire node into plain maps for canonical encoding.
func (w *wireNode) document() map[string]any {
	doc := map[string]any{"kind": w.Kind}
	if w.Name != "" {
		doc["name"] = w.Name
	}
	if w.Type != TypeInvalid {
		doc["type"] = int64(w.Type)
	}
	if w.Method != nil {
		doc["method"] = w.Method.document()
	}
	switch w.Kind {
	case KindIntegerLiteral.String():
		doc["int"] = w.Int
	case KindFloatLiteral.String():
		if w.Float != nil {
			doc["float"] = *w.Float
		}
	case KindStringLiteral.String():
		doc["string"] = w.Str
	case KindConstant.String():
		doc["value"] = constantDocument(w.Const)
	}
	if len(w.Children) > 0 {
		kids := make([]any, len(w.Children))
		for i, c := range w.Children {
			kids[i] = c.document()
		}
		doc["children"] = kids
	}
	return doc
}

// constantDocument tags a constant with its kind. Null stays bare.
func constantDocument(v any) any {
	switch x := v.(type) {
	case bool:
		return map[string]any{"bool": x}
	case int64:
		return map[string]any{"int": x}
	case float64:
		return map[string]any{"float": x}
	case string:
		return map[string]any{"string": x}
	default:
		return x
	}
}

func (w *wireMethod) document() map[string]any {
	params := make([]any, len(w.Params))
	for i, p := range w.Params {
		params[i] = int64(p)
	}
	return map[string]any{
		"owner":  int64(w.Owner),
		"output": int64(w.Output),
		"name":   w.Name,
		"params": params,
	}
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("non-finite float %v is forbidden in canonical JSON", val)
		}
		// FormatFloat writes -0 as "-0".
		buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case string:
		s, err := marshalCanonicalString(val)
		if err != nil {
			return err
		}
		buf.Write(s)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeysRFC8785)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := marshalCanonicalString(k)
			if err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785. Go's default string comparison uses UTF-8, which
// orders supplementary-plane characters differently.
func compareKeysRFC8785(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// marshalCanonicalString produces a canonical JSON string. Only control
// characters, backslash and quote are escaped.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // <, >, & must NOT be escaped
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	result := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})

	// encoding/json escapes U+2028 and U+2029 for JavaScript; RFC 8785 does not.
	return unescapeLineSeparators(result), nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters, leaving \\u2028 (an escaped backslash followed by text) alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	backslashes := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\\' && backslashes%2 == 0 && i+5 < len(data) &&
			string(data[i+1:i+5]) == "u202" && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			backslashes = 0
			continue
		}
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
		out = append(out, c)
	}
	return out
}
