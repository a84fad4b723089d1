package common_test

import (
	"testing"

	"github.com/ymakino/MegatronDB/common"
	testingpkg "github.com/ymakino/MegatronDB/testing/testing_util"
)

func TestDiskConfigValidation(t *testing.T) {
	testingpkg.Assert(t, common.NewDiskConfig().IsValid(), "defaults must validate")

	undersized := common.NewCustomDiskConfig(1, 1, 1, 1, common.MinBytesPerSector-1)
	testingpkg.Assert(t, !undersized.IsValid(), "a sector smaller than a block header is unusable")

	testingpkg.Assert(t, !common.NewCustomDiskConfig(0, 1, 1, 1, 4096).IsValid(), "zero platters")
	testingpkg.Assert(t, !common.NewCustomDiskConfig(1, 1, -1, 1, 4096).IsValid(), "negative tracks")
}

func TestCapacityMath(t *testing.T) {
	cfg := common.NewCustomDiskConfig(2, 2, 16, 32, 512)
	testingpkg.Equals(t, int32(4), cfg.TotalSurfaces())
	testingpkg.Equals(t, int64(2048), cfg.TotalSectors())
	testingpkg.Equals(t, int64(1048576), cfg.TotalCapacity())
	testingpkg.Equals(t, "1 MB", cfg.FormattedCapacity())
	testingpkg.Equals(t, "512 bytes", common.FormatBytes(512))
}
