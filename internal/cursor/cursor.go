// Package cursor encodes keyset pagination positions as opaque tokens.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Cursor records the sort key values and id of the last row of a page.
// Rows are assumed to be ordered ascending by SortFields, then id.
type Cursor struct {
	SortFields []string      `json:"sort_fields"`
	LastValues []interface{} `json:"last_values"`
	LastID     string        `json:"last_id"`
}

// New creates a cursor from the last row of a page
func New(sortFields []string, lastValues []interface{}, lastID string) (*Cursor, error) {
	if len(sortFields) != len(lastValues) {
		return nil, fmt.Errorf("sort fields and last values length mismatch")
	}
	if lastID == "" {
		return nil, fmt.Errorf("last ID required")
	}
	return &Cursor{SortFields: sortFields, LastValues: lastValues, LastID: lastID}, nil
}

// Encode serializes the cursor to an opaque base64 string
func (c *Cursor) Encode() (string, error) {
	if len(c.SortFields) != len(c.LastValues) {
		return "", fmt.Errorf("sort fields and last values length mismatch")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a token produced by Encode
func Decode(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty cursor string")
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}
	if len(c.SortFields) == 0 {
		return nil, fmt.Errorf("cursor missing sort fields")
	}
	if len(c.SortFields) != len(c.LastValues) {
		return nil, fmt.Errorf("cursor sort fields and values length mismatch")
	}
	if c.LastID == "" {
		return nil, fmt.Errorf("cursor missing last ID")
	}
	return &c, nil
}

// Matches reports whether the cursor was built for the given ordering
func (c *Cursor) Matches(sortFields ...string) bool {
	if len(c.SortFields) != len(sortFields) {
		return false
	}
	for i, f := range sortFields {
		if c.SortFields[i] != f {
			return false
		}
	}
	return true
}

// Where builds the predicate selecting rows after the cursor.
// For sort fields a, b it yields:
//
//	((a > ?) OR (a = ? AND b > ?) OR (a = ? AND b = ? AND id > ?))
//
// Field names are interpolated, so callers must pass trusted column names.
func (c *Cursor) Where() (string, []interface{}) {
	var (
		clauses []string
		params  []interface{}
	)

	keys := append(append([]string{}, c.SortFields...), "id")
	values := append(append([]interface{}{}, c.LastValues...), c.LastID)

	for i := range keys {
		parts := make([]string, 0, i+1)
		for j := 0; j < i; j++ {
			parts = append(parts, keys[j]+" = ?")
			params = append(params, values[j])
		}
		parts = append(parts, keys[i]+" > ?")
		params = append(params, values[i])
		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}

	return "(" + strings.Join(clauses, " OR ") + ")", params
}
