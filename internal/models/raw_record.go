package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// RawRecord is one CSV row keyed by its exact header strings, in header order.
// It is stored verbatim next to the normalized columns and is the ground truth
// when a normalized column is absent or ambiguous.
type RawRecord struct {
	keys   []string
	values map[string]string
}

// NewRawRecord pairs headers with cells. Missing trailing cells become "".
// A repeated header keeps its first position and its last value.
func NewRawRecord(headers, cells []string) RawRecord {
	r := RawRecord{values: make(map[string]string, len(headers))}
	for i, h := range headers {
		v := ""
		if i < len(cells) {
			v = cells[i]
		}
		r.Set(h, v)
	}
	return r
}

// Set assigns a column value, appending the column if it is new.
func (r *RawRecord) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value of the column named exactly key.
func (r RawRecord) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the column names in header order.
func (r RawRecord) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r RawRecord) Len() int { return len(r.keys) }

// Lookup resolves the first alias that names a column: every alias is tried
// as an exact header first, then as a substring of any header (so "取引日"
// matches "取引日付"). The value is trimmed.
func (r RawRecord) Lookup(aliases ...string) (string, bool) {
	key, ok := r.ResolveKey(aliases...)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(r.values[key]), true
}

// ResolveKey is Lookup returning the matched header instead of its value.
func (r RawRecord) ResolveKey(aliases ...string) (string, bool) {
	for _, a := range aliases {
		if _, ok := r.values[a]; ok {
			return a, true
		}
	}
	for _, a := range aliases {
		if a == "" {
			continue
		}
		for _, k := range r.keys {
			if strings.Contains(k, a) {
				return k, true
			}
		}
	}
	return "", false
}

// MarshalJSON writes an object whose keys keep header order.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object preserving key order. Non-string values are
// kept as their JSON text.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = RawRecord{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("raw record: expected object, got %v", tok)
	}

	out := RawRecord{values: make(map[string]string)}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := kt.(string)
		if !ok {
			return fmt.Errorf("raw record: expected string key, got %v", kt)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		out.Set(key, s)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// Value implements driver.Valuer.
func (r RawRecord) Value() (driver.Value, error) {
	b, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *RawRecord) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = RawRecord{}
		return nil
	case []byte:
		return r.UnmarshalJSON(v)
	case string:
		return r.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("raw record: unsupported scan type %T", value)
	}
}

// GormDBDataType keeps postgres on json (not jsonb) so key order survives.
func (RawRecord) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSON"
	default:
		return "TEXT"
	}
}
