package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder rendered for absent or unusable text fields.
const NotAvailable = "N/A"

// Document is a schemaless record as stored by a source collection.
type Document map[string]any

// Clone returns a shallow copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Text returns the trimmed string form of key, or "" when absent or null.
func (d Document) Text(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// TextOr returns Text(key), or NotAvailable when it is empty.
func (d Document) TextOr(key string) string {
	if s := d.Text(key); s != "" {
		return s
	}
	return NotAvailable
}

// Number returns key as a float64, or 0 when absent or not numeric.
func (d Document) Number(key string) float64 {
	switch n := d[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
