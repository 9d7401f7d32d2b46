package delivery

import (
	"testing"

	"go.uber.org/goleak"
	testutilsext "go.viam.com/utils/testutils/ext"
)

func TestMain(m *testing.M) {
	testutilsext.VerifyTestMain(m, testutilsext.WithLeakOpt(goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start")))
}
