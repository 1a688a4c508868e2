// Package test holds helpers shared by the package tests.
package test

import (
	"runtime"
	"testing"
)

// RequirePOSIXTools skips tests that drive standard POSIX shell tools
// (sh, cat, sleep and friends) on platforms that do not ship them.
func RequirePOSIXTools(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test requires POSIX shell tools")
	}
}
