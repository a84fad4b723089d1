package backend_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ymakino/MegatronDB/common"
	"github.com/ymakino/MegatronDB/storage/address"
	"github.com/ymakino/MegatronDB/storage/backend"
	"github.com/ymakino/MegatronDB/storage/record"
	testingpkg "github.com/ymakino/MegatronDB/testing/testing_util"
	"github.com/ymakino/MegatronDB/types"
)

func sampleSchema() record.Schema {
	return record.Schema{
		record.NewFieldDefinition("id", types.Integer, 0, false),
		record.NewFieldDefinition("name", types.String, 20, true),
	}
}

func TestMemBackendBlockRoundTrip(t *testing.T) {
	m := backend.NewMemBackend()
	addr := address.New(0, 1, 2, 3)

	_, err := m.ReadBlock(addr)
	testingpkg.Assert(t, err == backend.ErrBlockNotFound, "missing sector must report not found")

	payload := "BLOCK_HEADER|P0_S1_T2_SEC3|4096|64|users|0\nOFFSET_TABLE|\n"
	testingpkg.Ok(t, m.WriteBlock(addr, payload))

	got, err := m.ReadBlock(addr)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, payload, got)

	// Overwrites replace, not append.
	shorter := "BLOCK_HEADER|P0_S1_T2_SEC3|4096|64|x|0\nOFFSET_TABLE|\n"
	testingpkg.Ok(t, m.WriteBlock(addr, shorter))
	got, err = m.ReadBlock(addr)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, shorter, got)

	testingpkg.Equals(t, 1, m.OccupiedAddresses().Cardinality())
	testingpkg.Assert(t, m.OccupiedAddresses().Contains(addr), "occupied set must hold the written address")
}

func TestMemBackendCorruptionFailsClosed(t *testing.T) {
	m := backend.NewMemBackend()
	addr := address.New(0, 0, 0, 0)
	testingpkg.Ok(t, m.WriteBlock(addr, "payload line\n"))

	testingpkg.Assert(t, m.CorruptSector(addr), "sector must exist to be corrupted")
	_, err := m.ReadBlock(addr)
	testingpkg.Assert(t, err == backend.ErrCorruptedFrame, "checksum mismatch must fail closed")

	testingpkg.Assert(t, !m.CorruptSector(address.New(9, 9, 9, 9)), "absent sector cannot be corrupted")
}

func TestFileBackendBlockRoundTrip(t *testing.T) {
	f, err := backend.NewFileBackend(t.TempDir())
	testingpkg.Ok(t, err)

	addr := address.New(1, 0, 42, 7)
	location := f.Location(addr)
	testingpkg.Assert(t, strings.HasSuffix(location, filepath.FromSlash("platter_1/surface_0/track_42/sector_7.txt")),
		"sector location must mirror the geometry, got %s", location)

	payload := "BLOCK_HEADER|P1_S0_T42_SEC7|4096|64|users|0\nOFFSET_TABLE|\n"
	testingpkg.Ok(t, f.WriteBlock(addr, payload))

	got, err := f.ReadBlock(addr)
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, payload, got)

	_, err = f.ReadBlock(address.New(0, 0, 0, 0))
	testingpkg.Assert(t, err == backend.ErrBlockNotFound, "missing sector must report not found")
}

func TestFileBackendOccupiedAddresses(t *testing.T) {
	f, err := backend.NewFileBackend(t.TempDir())
	testingpkg.Ok(t, err)

	addrs := []address.PhysicalAddress{
		address.New(0, 0, 0, 0),
		address.New(0, 0, 0, 1),
		address.New(3, 1, 65535, 255),
	}
	for _, a := range addrs {
		testingpkg.Ok(t, f.WriteBlock(a, "x\n"))
	}
	// Metadata files must not show up as sectors.
	testingpkg.Ok(t, f.SaveSchema("users", sampleSchema(), record.FixedKind))
	testingpkg.Ok(t, f.SaveConfig(common.NewDiskConfig()))

	occupied := f.OccupiedAddresses()
	testingpkg.Equals(t, 3, occupied.Cardinality())
	for _, a := range addrs {
		testingpkg.Assert(t, occupied.Contains(a), "address %s must be occupied", a.Key())
	}
}

func TestFileBackendTamperedSectorFailsClosed(t *testing.T) {
	f, err := backend.NewFileBackend(t.TempDir())
	testingpkg.Ok(t, err)

	addr := address.New(0, 0, 0, 0)
	testingpkg.Ok(t, f.WriteBlock(addr, "original payload\n"))

	raw, err := os.ReadFile(f.Location(addr))
	testingpkg.Ok(t, err)
	tampered := strings.Replace(string(raw), "original", "doctored", 1)
	testingpkg.Ok(t, os.WriteFile(f.Location(addr), []byte(tampered), 0644))

	_, err = f.ReadBlock(addr)
	testingpkg.Assert(t, err == backend.ErrCorruptedFrame, "edited payload must fail the checksum")
}

func TestSchemaRoundTrip(t *testing.T) {
	for name, b := range map[string]backend.Backend{
		"mem":  backend.NewMemBackend(),
		"file": mustFileBackend(t),
	} {
		_, err := b.LoadSchema("users")
		testingpkg.Assert(t, err == backend.ErrSchemaNotFound, "%s: missing schema must report not found", name)

		testingpkg.Ok(t, b.SaveSchema("users", sampleSchema(), record.VariableKind))

		schema, err := b.LoadSchema("users")
		testingpkg.Ok(t, err)
		testingpkg.Equals(t, sampleSchema(), schema)
		testingpkg.Assert(t, !b.IsFixedKind("users"), "%s: kind must survive the round trip", name)
		testingpkg.Assert(t, b.IsFixedKind("unknown"), "%s: unknown tables default to fixed", name)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	for name, b := range map[string]backend.Backend{
		"mem":  backend.NewMemBackend(),
		"file": mustFileBackend(t),
	} {
		_, err := b.LoadConfig()
		testingpkg.Assert(t, err == backend.ErrConfigNotFound, "%s: missing config must report not found", name)

		cfg := common.NewCustomDiskConfig(2, 2, 16, 32, 512)
		cfg.SeekTimeMs = 3.5
		testingpkg.Ok(t, b.SaveConfig(cfg))

		loaded, err := b.LoadConfig()
		testingpkg.Ok(t, err)
		testingpkg.Equals(t, cfg, loaded)
	}
}

func mustFileBackend(t *testing.T) *backend.FileBackend {
	t.Helper()
	f, err := backend.NewFileBackend(t.TempDir())
	testingpkg.Ok(t, err)
	return f
}
