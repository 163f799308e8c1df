package test

import (
	"os"
	"testing"
)

// Integration skips the test unless integration tests are explicitly enabled.
// Integration tests need external tooling (such as a running Docker daemon)
// that isn't available everywhere.
func Integration(t *testing.T) {
	if os.Getenv("PROCBRIDGE_INTEG_TESTS") == "" {
		t.Skip("set PROCBRIDGE_INTEG_TESTS=1 to run integration tests")
	}
}
