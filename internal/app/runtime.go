package app

import (
	"os"
	"strconv"
)

// TestModeEnv names the variable that keeps cmd/webpage from opening
// connections while package tests import it.
const TestModeEnv = "WEBPAGE_TEST_MODE"

// InTestMode reports whether TestModeEnv holds a true value ("1", "true", ...).
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
