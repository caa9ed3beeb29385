// Package testutil provides common test helpers for utmnet tests.
package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// TestVMID is a well-formed UTM VM id.
const TestVMID = "A1B2C3D4-0000-4000-8000-00000000CAFE"

// Logger returns a zap logger that writes through t.Log.
func Logger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))
}
