package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv switches off side effects that tests must not trigger: the
// mains return early, the rate limiter and the access log are skipped.
const TestModeEnv = "FEEDMILL_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
})

// InTestMode reports whether FEEDMILL_TEST_MODE is set to a true value. The
// variable is read once per process.
func InTestMode() bool {
	return testMode()
}
