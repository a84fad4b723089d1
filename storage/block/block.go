package block

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ymakino/MegatronDB/common"
	"github.com/ymakino/MegatronDB/errors"
	"github.com/ymakino/MegatronDB/storage/address"
	"github.com/ymakino/MegatronDB/storage/record"
)

const ErrEncoding = errors.Error("malformed block encoding")

const (
	// HeaderSize is the fixed byte cost of the block header.
	HeaderSize = 64
	// OffsetEntrySize is the byte cost of one offset-table entry.
	OffsetEntrySize = 8
)

// Serialized line tags.
const (
	headerTag      = "BLOCK_HEADER"
	offsetTableTag = "OFFSET_TABLE"
	recordTag      = "RECORD"
)

// Block is a slotted page holding records of a single relation. The
// offset table runs parallel to the record list: one entry per record,
// tombstoned or not, until a compaction rebuilds both.
//
// Serialized format (line oriented):
//
//	BLOCK_HEADER|<address>|<capacity>|<used_space>|<relation>|<record_count>
//	OFFSET_TABLE|<off1>,<off2>,...
//	RECORD|<record encoding>
//	...
type Block struct {
	addr        address.PhysicalAddress
	capacity    uint32
	records     []record.Record
	offsetTable []uint32
	usedSpace   uint32
	relation    string
	dirty       bool
}

func New(addr address.PhysicalAddress, capacity uint32) *Block {
	return &Block{addr: addr, capacity: capacity, usedSpace: HeaderSize}
}

func (b *Block) Address() address.PhysicalAddress { return b.addr }
func (b *Block) Capacity() uint32                 { return b.capacity }
func (b *Block) UsedSpace() uint32                { return b.usedSpace }
func (b *Block) RecordCount() int                 { return len(b.records) }
func (b *Block) RelationName() string             { return b.relation }
func (b *Block) SetRelationName(name string)      { b.relation = name }
func (b *Block) IsDirty() bool                    { return b.dirty }
func (b *Block) MarkDirty()                       { b.dirty = true }
func (b *Block) MarkClean()                       { b.dirty = false }

// FreeSpace returns the room left for records and offset entries, 0
// when the capacity is smaller than the header itself.
func (b *Block) FreeSpace() uint32 {
	if b.usedSpace >= b.capacity {
		return 0
	}
	return b.capacity - b.usedSpace
}

// OccupancyPercent reports how full the block is, capped at 100.
func (b *Block) OccupancyPercent() float64 {
	if b.usedSpace >= b.capacity {
		return 100.0
	}
	return float64(b.usedSpace) / float64(b.capacity) * 100.0
}

// CanFit reports whether the record plus its offset-table entry still
// fit into the block.
func (b *Block) CanFit(r record.Record) bool {
	return b.usedSpace+r.Size()+OffsetEntrySize <= b.capacity
}

// AddRecord appends the record to the block: it stamps the block's
// address onto the record, records the current used space as the
// record's offset and advances the used-space counter. The block is
// untouched when the record does not fit. Record ids are assigned by
// the disk manager before insertion, never here.
func (b *Block) AddRecord(r record.Record) bool {
	if !b.CanFit(r) {
		return false
	}
	r.SetAddress(b.addr)
	b.offsetTable = append(b.offsetTable, b.usedSpace)
	b.records = append(b.records, r)
	b.usedSpace += r.Size() + OffsetEntrySize
	b.dirty = true
	common.Assert(len(b.offsetTable) == len(b.records), "offset table out of sync with record list")
	return true
}

// RemoveLastRecord pops the most recently added record together with
// its offset entry and returns the used-space counter to its prior
// value. It is the inverse of the immediately preceding AddRecord and
// is how the disk manager unwinds an insert whose persist failed.
func (b *Block) RemoveLastRecord() {
	if len(b.records) == 0 {
		return
	}
	last := b.records[len(b.records)-1]
	b.records = b.records[:len(b.records)-1]
	b.offsetTable = b.offsetTable[:len(b.offsetTable)-1]
	b.usedSpace -= last.Size() + OffsetEntrySize
	b.dirty = true
}

// DeleteRecord tombstones the record with the given id. It returns
// true when a record with that id lives in the block, even when it was
// already tombstoned; the space is reclaimed only by Compact.
func (b *Block) DeleteRecord(id int32) bool {
	for _, r := range b.records {
		if r.ID() == id {
			r.MarkDeleted()
			b.dirty = true
			return true
		}
	}
	return false
}

// FindRecord returns the active record with the given id, or nil.
// Tombstoned records are invisible.
func (b *Block) FindRecord(id int32) record.Record {
	for _, r := range b.records {
		if r.ID() == id && !r.IsDeleted() {
			return r
		}
	}
	return nil
}

// Compact drops every tombstoned record, keeping the survivors in
// their original relative order, and rebuilds the offset table and the
// used-space counter from scratch. Irreversible. The block is only
// marked dirty when the record count actually changed.
func (b *Block) Compact() {
	alive := make([]record.Record, 0, len(b.records))
	for _, r := range b.records {
		if !r.IsDeleted() {
			alive = append(alive, r)
		}
	}
	if len(alive) == len(b.records) {
		return
	}
	b.records = alive
	b.recalculateOffsets()
	b.dirty = true
}

func (b *Block) recalculateOffsets() {
	b.offsetTable = b.offsetTable[:0]
	b.usedSpace = HeaderSize
	for _, r := range b.records {
		b.offsetTable = append(b.offsetTable, b.usedSpace)
		b.usedSpace += r.Size() + OffsetEntrySize
	}
}

// ActiveRecords returns a snapshot of the non-tombstoned records.
func (b *Block) ActiveRecords() []record.Record {
	active := make([]record.Record, 0, len(b.records))
	for _, r := range b.records {
		if !r.IsDeleted() {
			active = append(active, r)
		}
	}
	return active
}

// AllRecords returns a snapshot of every record, tombstoned included.
func (b *Block) AllRecords() []record.Record {
	all := make([]record.Record, len(b.records))
	copy(all, b.records)
	return all
}

// OffsetTable returns a snapshot of the offset table.
func (b *Block) OffsetTable() []uint32 {
	out := make([]uint32, len(b.offsetTable))
	copy(out, b.offsetTable)
	return out
}

// AttachSchema hands the relation's schema to every record in the
// block. Fixed records rederive their size from it, which the wire
// encoding does not carry.
func (b *Block) AttachSchema(schema record.Schema) {
	for _, r := range b.records {
		r.SetSchema(schema)
	}
}

func (b *Block) Serialize() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%d|%d|%s|%d\n",
		headerTag, b.addr.Key(), b.capacity, b.usedSpace, b.relation, len(b.records))
	sb.WriteString(offsetTableTag)
	sb.WriteString("|")
	for i, off := range b.offsetTable {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.FormatUint(uint64(off), 10))
	}
	sb.WriteString("\n")
	for _, r := range b.records {
		sb.WriteString(recordTag)
		sb.WriteString("|")
		sb.WriteString(r.Serialize())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Deserialize replaces the block's state with the decoded one. It
// fails closed: a malformed header, offset table or record line leaves
// the receiver untouched.
func (b *Block) Deserialize(data string) error {
	var (
		addr        address.PhysicalAddress
		capacity    uint64
		usedSpace   uint64
		relation    string
		recordCount uint64
		sawHeader   bool
		sawOffsets  bool
		offsets     []uint32
		records     []record.Record
	)

	for _, line := range strings.Split(data, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, headerTag+"|"):
			parts := strings.SplitN(line, "|", 6)
			if len(parts) != 6 {
				return ErrEncoding
			}
			var err error
			if addr, err = address.ParseKey(parts[1]); err != nil {
				return ErrEncoding
			}
			if capacity, err = strconv.ParseUint(parts[2], 10, 32); err != nil {
				return ErrEncoding
			}
			if usedSpace, err = strconv.ParseUint(parts[3], 10, 32); err != nil {
				return ErrEncoding
			}
			relation = parts[4]
			if recordCount, err = strconv.ParseUint(parts[5], 10, 32); err != nil {
				return ErrEncoding
			}
			sawHeader = true

		case strings.HasPrefix(line, offsetTableTag+"|"):
			segment := line[len(offsetTableTag)+1:]
			if segment != "" {
				for _, field := range strings.Split(segment, ",") {
					off, err := strconv.ParseUint(field, 10, 32)
					if err != nil {
						return ErrEncoding
					}
					offsets = append(offsets, uint32(off))
				}
			}
			sawOffsets = true

		case strings.HasPrefix(line, recordTag+"|"):
			r, err := record.Deserialize(line[len(recordTag)+1:])
			if err != nil {
				return err
			}
			records = append(records, r)

		default:
			return ErrEncoding
		}
	}

	if !sawHeader || !sawOffsets {
		return ErrEncoding
	}
	if uint64(len(records)) != recordCount || len(offsets) != len(records) {
		return ErrEncoding
	}

	b.addr = addr
	b.capacity = uint32(capacity)
	b.usedSpace = uint32(usedSpace)
	b.relation = relation
	b.records = records
	b.offsetTable = offsets
	b.dirty = false
	return nil
}

// Display renders a diagnostic summary of the block.
func (b *Block) Display() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Block %s relation=%s\n", b.addr, b.relation)
	fmt.Fprintf(&sb, "  capacity: %d bytes, used: %d bytes (%.1f%%), free: %d bytes\n",
		b.capacity, b.usedSpace, b.OccupancyPercent(), b.FreeSpace())
	deleted := 0
	for _, r := range b.records {
		if r.IsDeleted() {
			deleted++
		}
	}
	fmt.Fprintf(&sb, "  records: %d (%d tombstoned)\n", len(b.records), deleted)
	return sb.String()
}
