package orders

import (
	"crypto/rand"
	"fmt"
	"time"
)

// numberLocation pins order timestamps to the business's home timezone so
// that numbers sort the way the office reads them.
var numberLocation = mustLoadLocation("Asia/Ho_Chi_Minh")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderNumber builds an order number of the form
// {prefix}-{yymmddHHmmss}-{XXXX} where XXXX is a random uppercase
// alphanumeric suffix. The prefix comes from the product category of the
// order's first item.
func NewOrderNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, now.In(numberLocation).Format("060102150405"), randomSuffix(4))
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a fixed suffix rather than panicking in a request path.
		return "ZZZZ"[:n]
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}
