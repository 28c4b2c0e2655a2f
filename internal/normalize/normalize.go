// Package normalize turns raw transaction cell values into canonical lists
// of reference ids or contact strings. Relation columns in configured tables
// hold anything from plain scalars to JSON-encoded arrays of objects, so
// every extraction is defensive: a value that fails to parse is treated as a
// single scalar id, never as an error.
package normalize

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dynaerp/notify-engine/internal/domain"
)

// ContactKind selects the shape check applied by ContactValues.
type ContactKind int

const (
	ContactEmail ContactKind = iota
	ContactPhone
)

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRe = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{4,}$`)
)

// ReferenceIDs extracts an ordered, de-duplicated set of reference ids from
// a raw cell value. idField names the id key inside array-of-object values;
// "id" is tried as a fallback. Nil, blank, and "[]" inputs yield nil.
func ReferenceIDs(raw any, idField string) []string {
	return collect(raw, idField, "")
}

// ReferenceIDsDelimited behaves like ReferenceIDs but additionally splits
// non-JSON scalar strings on delim. Used for relations declared IsArray,
// where legacy rows store "10,20" instead of a JSON list.
func ReferenceIDsDelimited(raw any, idField, delim string) []string {
	return collect(raw, idField, delim)
}

// ContactValues extracts contact addresses (emails or phones) from a raw
// cell value using the same parsing rules as ReferenceIDs, keeping only
// entries that pass the shape check for kind.
func ContactValues(raw any, kind ContactKind) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range collect(raw, "", ",") {
		v = strings.TrimSpace(v)
		if !isContact(v, kind) {
			continue
		}
		key := strings.ToLower(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func isContact(v string, kind ContactKind) bool {
	switch kind {
	case ContactEmail:
		return emailRe.MatchString(v)
	case ContactPhone:
		return phoneRe.MatchString(v)
	}
	return false
}

// collect flattens any supported value shape into a deduped ordered list.
func collect(raw any, idField, delim string) []string {
	var out []string
	seen := make(map[string]struct{})

	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case nil:
		case []any:
			for _, el := range t {
				walk(el)
			}
		case map[string]any:
			add(objectID(t, idField))
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				return
			}
			// Attempt a JSON parse only when the string looks like one;
			// anything else is a scalar id (optionally delimited).
			if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
				var parsed any
				if err := json.Unmarshal([]byte(s), &parsed); err == nil {
					walk(parsed)
					return
				}
				// Malformed JSON falls through to scalar handling.
			}
			if delim != "" && strings.Contains(s, delim) {
				for _, part := range strings.Split(s, delim) {
					add(part)
				}
				return
			}
			add(s)
		default:
			add(domain.Stringify(v))
		}
	}
	walk(raw)
	return out
}

// objectID pulls the id out of an object element, preferring idField and
// falling back to "id". Lookup is case-insensitive like everything else.
func objectID(obj map[string]any, idField string) string {
	row := domain.Row(obj)
	if idField != "" {
		if s := row.String(idField); s != "" {
			return s
		}
	}
	return row.String("id")
}
