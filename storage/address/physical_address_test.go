package address_test

import (
	"sort"
	"testing"

	"github.com/ymakino/MegatronDB/storage/address"
	testingpkg "github.com/ymakino/MegatronDB/testing/testing_util"
)

func TestKeyRoundTrip(t *testing.T) {
	a := address.New(2, 1, 4095, 37)
	testingpkg.Equals(t, "P2_S1_T4095_SEC37", a.Key())

	parsed, err := address.ParseKey(a.Key())
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, a, parsed)
}

func TestParseKeyRejectsMalformedInput(t *testing.T) {
	for _, key := range []string{
		"",
		"P2_S1_T4095",
		"platter_2",
		"P2_S1_T4095_SEC-7",
		"Px_S1_T0_SEC0",
		"P0_S0_T0_SEC0junk",
		"P0_S0_T0_SEC0 ",
		"P00_S0_T0_SEC0",
	} {
		_, err := address.ParseKey(key)
		testingpkg.Assert(t, err == address.ErrBadKey, "key %q should not parse", key)
	}
}

func TestPathComponents(t *testing.T) {
	a := address.New(0, 1, 42, 7)
	testingpkg.Equals(t, "platter_0/surface_1/track_42", a.DirectoryPath())
	testingpkg.Equals(t, "sector_7.txt", a.SectorFileName())
	testingpkg.Equals(t, "(0,1,42,7)", a.String())
}

func TestLexicographicOrdering(t *testing.T) {
	addrs := []address.PhysicalAddress{
		address.New(1, 0, 0, 0),
		address.New(0, 1, 0, 0),
		address.New(0, 0, 5, 0),
		address.New(0, 0, 0, 9),
		address.New(0, 0, 0, 2),
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	expected := []address.PhysicalAddress{
		address.New(0, 0, 0, 2),
		address.New(0, 0, 0, 9),
		address.New(0, 0, 5, 0),
		address.New(0, 1, 0, 0),
		address.New(1, 0, 0, 0),
	}
	testingpkg.Equals(t, expected, addrs)

	testingpkg.Equals(t, 0, addrs[0].Compare(addrs[0]))
	testingpkg.Equals(t, -1, addrs[0].Compare(addrs[1]))
	testingpkg.Equals(t, 1, addrs[4].Compare(addrs[3]))
}
