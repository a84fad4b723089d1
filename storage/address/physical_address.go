package address

import (
	"fmt"

	"github.com/ymakino/MegatronDB/errors"
)

const ErrBadKey = errors.Error("malformed physical address key")

// PhysicalAddress locates one sector inside the simulated disk
// geometry: platter -> surface -> track -> sector. The zero value is
// the first sector of the disk.
type PhysicalAddress struct {
	Platter int32
	Surface int32
	Track   int32
	Sector  int32
}

func New(platter, surface, track, sector int32) PhysicalAddress {
	return PhysicalAddress{platter, surface, track, sector}
}

// Compare orders addresses lexicographically on
// (platter, surface, track, sector). It returns -1, 0 or 1.
func (a PhysicalAddress) Compare(other PhysicalAddress) int {
	pairs := [4][2]int32{
		{a.Platter, other.Platter},
		{a.Surface, other.Surface},
		{a.Track, other.Track},
		{a.Sector, other.Sector},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}

func (a PhysicalAddress) Less(other PhysicalAddress) bool {
	return a.Compare(other) < 0
}

// Key returns the flat identifier used inside block and record
// encodings, e.g. "P0_S1_T42_SEC7".
func (a PhysicalAddress) Key() string {
	return fmt.Sprintf("P%d_S%d_T%d_SEC%d", a.Platter, a.Surface, a.Track, a.Sector)
}

// DirectoryPath returns the hierarchical location of the sector's
// track, e.g. "platter_0/surface_1/track_42".
func (a PhysicalAddress) DirectoryPath() string {
	return fmt.Sprintf("platter_%d/surface_%d/track_%d", a.Platter, a.Surface, a.Track)
}

// SectorFileName returns the file name of the sector inside its track
// directory.
func (a PhysicalAddress) SectorFileName() string {
	return fmt.Sprintf("sector_%d.txt", a.Sector)
}

func (a PhysicalAddress) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", a.Platter, a.Surface, a.Track, a.Sector)
}

// ParseKey is the inverse of Key. Only the canonical rendering is
// accepted: trailing bytes or non-canonical digits fail.
func ParseKey(key string) (PhysicalAddress, error) {
	var a PhysicalAddress
	n, err := fmt.Sscanf(key, "P%d_S%d_T%d_SEC%d", &a.Platter, &a.Surface, &a.Track, &a.Sector)
	if err != nil || n != 4 {
		return PhysicalAddress{}, ErrBadKey
	}
	if a.Platter < 0 || a.Surface < 0 || a.Track < 0 || a.Sector < 0 {
		return PhysicalAddress{}, ErrBadKey
	}
	if a.Key() != key {
		return PhysicalAddress{}, ErrBadKey
	}
	return a, nil
}
