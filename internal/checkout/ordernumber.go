package checkout

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	nanoid "github.com/jaevor/go-nanoid"
)

const (
	orderNumberAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderNumberSuffixLen = 6
)

var orderNumberPattern = regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-Z]{6}$`)

// OrderNumberFunc produces a human readable order number for the given instant.
type OrderNumberFunc func(now time.Time) string

// NewOrderNumberGenerator returns ORD-<base36 millis>-<6 random [0-9A-Z]>.
// The unique index on orders.order_number backs the randomness; a collision
// retries the checkout.
func NewOrderNumberGenerator() (OrderNumberFunc, error) {
	suffix, err := nanoid.CustomASCII(orderNumberAlphabet, orderNumberSuffixLen)
	if err != nil {
		return nil, fmt.Errorf("order number generator: %w", err)
	}
	return func(now time.Time) string {
		stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
		return "ORD-" + stamp + "-" + suffix()
	}, nil
}

// ValidOrderNumber reports whether s has the order number shape.
func ValidOrderNumber(s string) bool {
	return orderNumberPattern.MatchString(s)
}
