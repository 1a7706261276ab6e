package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray is a []string persisted as a JSON array column.
type StringArray []string

// Value implements driver.Valuer. A nil slice is stored as an empty array so
// the column is never NULL.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. The column only ever holds JSON arrays written
// by Value, so anything else is an error.
func (a *StringArray) Scan(value interface{}) error {
	if a == nil {
		return fmt.Errorf("models.StringArray: Scan on nil pointer")
	}

	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models.StringArray: unsupported Scan type %T", value)
	}

	if len(raw) == 0 || string(raw) == "null" {
		*a = StringArray{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("models.StringArray: %w", err)
	}
	*a = out
	return nil
}
