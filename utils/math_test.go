package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestClamp(t *testing.T) {
	test.That(t, Clamp(1.5, 0, 1), test.ShouldEqual, 1.0)
	test.That(t, Clamp(-0.25, 0, 1), test.ShouldEqual, 0.0)
	test.That(t, Clamp(0.5, 0, 1), test.ShouldEqual, 0.5)
	test.That(t, Clamp(12, 0, 10), test.ShouldEqual, 10)
}
