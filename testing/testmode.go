// Package testing switches the application into test mode for every test
// binary that imports it, keeping main() wiring from starting servers.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ORDERDESK_TEST_MODE", "1")
	})
}

func init() {
	ensureTestMode()
}

// TestMain guards packages that rely on the shared environment setup.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
