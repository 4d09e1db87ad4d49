// Package enums holds the closed string vocabularies stored on products,
// carts and orders.
package enums

import (
	"fmt"
	"slices"
)

// members is the ordered list of accepted values of one enum.
type members[T ~string] []T

func (m members[T]) contains(v T) bool {
	return slices.Contains(m, v)
}

// parse matches raw exactly; callers normalize case first when the input
// comes from a query string.
func (m members[T]) parse(kind, raw string) (T, error) {
	if v := T(raw); m.contains(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
