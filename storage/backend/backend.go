package backend

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ymakino/MegatronDB/common"
	"github.com/ymakino/MegatronDB/errors"
	"github.com/ymakino/MegatronDB/storage/address"
	"github.com/ymakino/MegatronDB/storage/record"
)

const (
	ErrBlockNotFound  = errors.Error("no block stored at the given address")
	ErrSchemaNotFound = errors.Error("schema descriptor not found")
	ErrConfigNotFound = errors.Error("disk config not found")
	ErrCorruptedFrame = errors.Error("sector payload does not match its checksum")
	ErrIO             = errors.Error("backend i/o failure")
)

// Backend is the persistence contract the disk manager drives. A
// backend turns physical addresses into durable sector payloads and
// stores the per-relation schema descriptors and the disk config.
//
// Implementations convert their native I/O faults into the error
// vocabulary above; callers never observe a raw filesystem error.
type Backend interface {
	// ReadBlock returns the serialized block stored at addr, or
	// ErrBlockNotFound when the sector is unoccupied.
	ReadBlock(addr address.PhysicalAddress) (string, error)
	// WriteBlock stores the serialized block at addr, overwriting any
	// previous payload.
	WriteBlock(addr address.PhysicalAddress, data string) error
	// OccupiedAddresses enumerates every sector holding a block. The
	// iteration order is backend defined.
	OccupiedAddresses() mapset.Set[address.PhysicalAddress]
	// Location returns the backend specific hierarchical key of addr.
	Location(addr address.PhysicalAddress) string

	SaveSchema(table string, schema record.Schema, kind record.Kind) error
	// LoadSchema returns ErrSchemaNotFound when no descriptor exists.
	LoadSchema(table string) (record.Schema, error)
	// IsFixedKind reports the persisted record kind of the table. It
	// defaults to fixed when the descriptor is missing or unreadable.
	IsFixedKind(table string) bool

	SaveConfig(cfg *common.DiskConfig) error
	// LoadConfig returns ErrConfigNotFound when the disk was never
	// initialized.
	LoadConfig() (*common.DiskConfig, error)
}
