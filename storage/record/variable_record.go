package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ymakino/MegatronDB/storage/address"
	"github.com/ymakino/MegatronDB/types"
)

// VariableRecord stores String fields at their actual length, so the
// total size cannot be derived from the schema and every field's byte
// offset is carried explicitly in the encoding.
type VariableRecord struct {
	base
	offsets   []uint32
	totalSize uint32
}

// NewVariableRecord builds a record over schema and computes the field
// offsets from the actual values. It fails fast when the number of
// values does not match the schema.
func NewVariableRecord(id int32, schema Schema, values []string) (*VariableRecord, error) {
	if len(values) != len(schema) {
		return nil, ErrFieldCountMismatch
	}
	r := &VariableRecord{base: base{id: id, values: values, schema: schema}}
	r.computeOffsets()
	return r, nil
}

// computeOffsets walks the values left to right. Strings contribute
// their literal length plus a terminator byte, everything else its
// fixed width. The header reserves one offset slot per schema field.
func (r *VariableRecord) computeOffsets() {
	r.offsets = r.offsets[:0]
	total := uint32(idSize+deletedSize+sizeSlotSize) + uint32(len(r.schema))*offsetSlotSize
	for i := range r.values {
		r.offsets = append(r.offsets, total)
		if r.schema[i].Type == types.String {
			total += uint32(len(r.values[i])) + 1
		} else {
			total += r.schema[i].Type.Size()
		}
	}
	r.totalSize = total
}

func (r *VariableRecord) Kind() Kind { return VariableKind }

func (r *VariableRecord) Size() uint32 { return r.totalSize }

// FieldOffsets returns the byte offset of each field inside the
// encoded record.
func (r *VariableRecord) FieldOffsets() []uint32 {
	out := make([]uint32, len(r.offsets))
	copy(out, r.offsets)
	return out
}

func (r *VariableRecord) Serialize() string {
	var sb strings.Builder
	sb.WriteString(VariableTag)
	sb.WriteString("|")
	sb.WriteString(strconv.Itoa(int(r.id)))
	sb.WriteString("|")
	sb.WriteString(boolFlag(r.deleted))
	sb.WriteString("|")
	sb.WriteString(r.addr.Key())
	sb.WriteString("|")
	sb.WriteString(strconv.FormatUint(uint64(r.totalSize), 10))
	sb.WriteString("|")
	for i, off := range r.offsets {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(strconv.FormatUint(uint64(off), 10))
	}
	sb.WriteString("|")
	sb.WriteString(joinValues(r.values))
	return sb.String()
}

func (r *VariableRecord) Deserialize(data string) error {
	parts := strings.SplitN(data, "|", 7)
	if len(parts) != 7 || parts[0] != VariableTag {
		return ErrEncoding
	}
	id, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return ErrEncoding
	}
	deleted, err := parseBoolFlag(parts[2])
	if err != nil {
		return ErrEncoding
	}
	addr, err := address.ParseKey(parts[3])
	if err != nil {
		return ErrEncoding
	}
	totalSize, err := strconv.ParseUint(parts[4], 10, 32)
	if err != nil {
		return ErrEncoding
	}
	var offsets []uint32
	if parts[5] != "" {
		for _, segment := range strings.Split(parts[5], ",") {
			off, err := strconv.ParseUint(segment, 10, 32)
			if err != nil {
				return ErrEncoding
			}
			offsets = append(offsets, uint32(off))
		}
	}
	values := splitValues(parts[6])
	if len(offsets) != len(values) {
		return ErrEncoding
	}

	r.id = int32(id)
	r.deleted = deleted
	r.addr = addr
	r.totalSize = uint32(totalSize)
	r.offsets = offsets
	r.values = values
	return nil
}

func (r *VariableRecord) Display() string {
	var sb strings.Builder
	r.displayInto(&sb)
	fmt.Fprintf(&sb, "  Total size: %d bytes\n", r.totalSize)
	sb.WriteString("  Field offsets:")
	for _, off := range r.offsets {
		fmt.Fprintf(&sb, " %d", off)
	}
	sb.WriteString("\n")
	return sb.String()
}
