// Package gormx holds column types shared by the models.
package gormx

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MapJson is a JSON object column. A nil map is stored as NULL.
type MapJson map[string]interface{}

func (s *MapJson) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into a json map", value)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, s)
}

func (s MapJson) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Clone returns a shallow copy that is never nil.
func (s MapJson) Clone() MapJson {
	c := make(MapJson, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Merge returns a copy of s with every key of the given maps written over it.
func (s MapJson) Merge(maps ...map[string]interface{}) MapJson {
	c := s.Clone()
	for _, m := range maps {
		for k, v := range m {
			c[k] = v
		}
	}
	return c
}
