package common_test

import (
	"testing"

	"github.com/ymakino/MegatronDB/common"
	testingpkg "github.com/ymakino/MegatronDB/testing/testing_util"
)

func TestAssertPanicsOnViolation(t *testing.T) {
	common.Assert(true, "held invariants stay silent")

	defer func() {
		testingpkg.Equals(t, "broken invariant", recover())
	}()
	common.Assert(false, "broken invariant")
}
