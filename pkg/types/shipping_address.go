package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ShippingAddress is stored as JSONB on orders.
type ShippingAddress struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// Value serializes the address to JSON.
func (s *ShippingAddress) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	buf, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the address.
func (s *ShippingAddress) Scan(value interface{}) error {
	if value == nil {
		*s = ShippingAddress{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, s)
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported scan type %T", value)
	}
}
