// Package testing prepares the environment for HTTP-level tests. Import it
// blank from a _test.go file.
package testing

import (
	"os"
	stdtesting "testing"
)

// Defaults applied when the variable is unset.
var defaults = map[string]string{
	"WEBPAGE_TEST_MODE": "1",
	"SESSION_SECRET":    "test-session-secret-0123456789",
	"LOG_FORMAT":        "text",
}

func init() {
	for key, value := range defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}

// TestMain runs m after init has applied the defaults.
func TestMain(m *stdtesting.M) {
	os.Exit(m.Run())
}
