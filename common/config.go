package common

import "fmt"

// MinBytesPerSector is the smallest usable sector size: one block
// header with no payload room.
const MinBytesPerSector = 64

// Geometry and timing defaults modeled on the Megatron 747 drive.
const (
	DefaultNumPlatters         = 4
	DefaultSurfacesPerPlatter  = 2
	DefaultTracksPerSurface    = 65536
	DefaultSectorsPerTrack     = 256
	DefaultBytesPerSector      = 4096
	DefaultSeekTimeMs          = 6.46
	DefaultRotationalLatencyMs = 4.17
	DefaultTransferTimeMs      = 0.13
)

// DiskConfig describes the physical geometry of the simulated disk and
// the timing parameters used by the access-time model.
type DiskConfig struct {
	NumPlatters        int32
	SurfacesPerPlatter int32
	TracksPerSurface   int32
	SectorsPerTrack    int32
	BytesPerSector     uint32

	// mean latencies in milliseconds
	SeekTimeMs          float64
	RotationalLatencyMs float64
	TransferTimeMs      float64
}

// NewDiskConfig returns the default geometry.
func NewDiskConfig() *DiskConfig {
	return &DiskConfig{
		NumPlatters:         DefaultNumPlatters,
		SurfacesPerPlatter:  DefaultSurfacesPerPlatter,
		TracksPerSurface:    DefaultTracksPerSurface,
		SectorsPerTrack:     DefaultSectorsPerTrack,
		BytesPerSector:      DefaultBytesPerSector,
		SeekTimeMs:          DefaultSeekTimeMs,
		RotationalLatencyMs: DefaultRotationalLatencyMs,
		TransferTimeMs:      DefaultTransferTimeMs,
	}
}

// NewCustomDiskConfig returns a config with the given geometry and the
// default timing parameters.
func NewCustomDiskConfig(platters, surfaces, tracks, sectors int32, bytesPerSector uint32) *DiskConfig {
	cfg := NewDiskConfig()
	cfg.NumPlatters = platters
	cfg.SurfacesPerPlatter = surfaces
	cfg.TracksPerSurface = tracks
	cfg.SectorsPerTrack = sectors
	cfg.BytesPerSector = bytesPerSector
	return cfg
}

// IsValid checks that every geometry dimension is positive and that a
// sector can hold at least a block header.
func (c *DiskConfig) IsValid() bool {
	return c.NumPlatters > 0 &&
		c.SurfacesPerPlatter > 0 &&
		c.TracksPerSurface > 0 &&
		c.SectorsPerTrack > 0 &&
		c.BytesPerSector >= MinBytesPerSector
}

// TotalSurfaces returns the number of recording surfaces on the disk.
func (c *DiskConfig) TotalSurfaces() int32 {
	return c.NumPlatters * c.SurfacesPerPlatter
}

// TotalSectors returns the number of addressable sectors.
func (c *DiskConfig) TotalSectors() int64 {
	return int64(c.NumPlatters) *
		int64(c.SurfacesPerPlatter) *
		int64(c.TracksPerSurface) *
		int64(c.SectorsPerTrack)
}

// TotalCapacity returns the raw capacity of the disk in bytes.
func (c *DiskConfig) TotalCapacity() int64 {
	return c.TotalSectors() * int64(c.BytesPerSector)
}

// FormattedCapacity renders the total capacity in a human readable unit.
func (c *DiskConfig) FormattedCapacity() string {
	return FormatBytes(c.TotalCapacity())
}

// FormatBytes renders a byte count in the largest fitting binary unit.
func FormatBytes(bytes int64) string {
	switch {
	case bytes >= 1<<40:
		return fmt.Sprintf("%d TB", bytes/(1<<40))
	case bytes >= 1<<30:
		return fmt.Sprintf("%d GB", bytes/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%d MB", bytes/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%d KB", bytes/(1<<10))
	}
	return fmt.Sprintf("%d bytes", bytes)
}
