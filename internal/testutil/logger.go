// Package testutil provides shared test helpers for FrameForge packages.
package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Logger returns a logger that writes through t, so output is attached to
// the test that produced it.
func Logger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t).Named("frameforge")
}
