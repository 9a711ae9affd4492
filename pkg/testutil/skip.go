// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"testing"
)

// IntegrationEnv enables tests that start containers.
const IntegrationEnv = "TASKBOARD_INTEGRATION"

// SkipIfShort skips the test in -short mode.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

// RequireIntegration skips the test unless TASKBOARD_INTEGRATION is set and
// the run is not in -short mode.
func RequireIntegration(t *testing.T) {
	t.Helper()
	SkipIfShort(t)
	if os.Getenv(IntegrationEnv) == "" {
		t.Skipf("skipping integration test (set %s=1 to run)", IntegrationEnv)
	}
}
