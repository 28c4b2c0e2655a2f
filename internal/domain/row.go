package domain

import (
	"strconv"
	"strings"
)

// Row is a record from a dynamically configured transaction table, keyed by
// column name with case preserved. Values come straight from JSON decoding,
// so scalars are string/float64/bool and nested data is []any / map[string]any.
//
// Column lookup is case-insensitive everywhere: tenant configuration is
// written by hand and "Customer_ID" vs "customer_id" must not matter.
type Row map[string]any

// Lookup returns the value for col, matching column names case-insensitively.
// An exact match is preferred over a folded one.
func (r Row) Lookup(col string) (any, bool) {
	if r == nil {
		return nil, false
	}
	if v, ok := r[col]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, col) {
			return v, true
		}
	}
	return nil, false
}

// Get is Lookup without the presence flag.
func (r Row) Get(col string) any {
	v, _ := r.Lookup(col)
	return v
}

// String returns the value for col rendered as a string, or "" when the
// column is absent, null, or not a scalar.
func (r Row) String(col string) string {
	v, ok := r.Lookup(col)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Stringify renders a scalar cell value as a string. Numbers coming out of
// JSON are float64; integral values are printed without a fraction so ids
// like 42 do not become "42.000000". Non-scalar values yield "".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
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
