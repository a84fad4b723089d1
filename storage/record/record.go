package record

import (
	"strconv"
	"strings"

	"github.com/ymakino/MegatronDB/errors"
	"github.com/ymakino/MegatronDB/storage/address"
)

const (
	ErrEncoding           = errors.Error("malformed record encoding")
	ErrFieldCountMismatch = errors.Error("value count does not match schema length")
)

// InvalidID marks a record that has not been assigned an id yet. Ids
// are handed out by the disk manager, which is the single id authority
// for the whole storage instance.
const InvalidID = int32(-1)

// Kind distinguishes the two record encodings. The set is closed:
// every encode/decode boundary switches on it explicitly.
type Kind uint8

const (
	FixedKind Kind = iota
	VariableKind
)

func (k Kind) String() string {
	if k == FixedKind {
		return "FIXED"
	}
	return "VARIABLE"
}

// Serialized type tags. They double as the Kind names in the schema
// descriptor.
const (
	FixedTag    = "FIXED"
	VariableTag = "VARIABLE"
)

// Encoding header sizes in bytes, shared by both variants.
const (
	idSize         = 4 // int32 record id
	deletedSize    = 1 // tombstone flag
	sizeSlotSize   = 8 // total-size slot of the variable encoding
	offsetSlotSize = 8 // one per field in the variable encoding
)

// Record is the capability set common to both encodings.
type Record interface {
	ID() int32
	SetID(id int32)
	IsDeleted() bool
	MarkDeleted()
	UnmarkDeleted()
	Address() address.PhysicalAddress
	SetAddress(addr address.PhysicalAddress)
	Values() []string
	Schema() Schema
	SetSchema(schema Schema)
	Kind() Kind

	// Size is the total encoded byte length charged against the block
	// that stores the record.
	Size() uint32
	// Serialize produces the deterministic text encoding, starting with
	// the kind tag.
	Serialize() string
	// Deserialize replaces the receiver's state with the decoded one.
	// It fails closed: on error the receiver is untouched.
	Deserialize(data string) error
	// Display renders the record for diagnostics.
	Display() string
}

// Deserialize decodes a record of either kind, dispatching on the
// leading type tag.
func Deserialize(data string) (Record, error) {
	switch {
	case strings.HasPrefix(data, FixedTag+"|"):
		r := &FixedRecord{}
		if err := r.Deserialize(data); err != nil {
			return nil, err
		}
		return r, nil
	case strings.HasPrefix(data, VariableTag+"|"):
		r := &VariableRecord{}
		if err := r.Deserialize(data); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, ErrEncoding
}

// base carries the state shared by both record variants.
type base struct {
	id      int32
	deleted bool
	addr    address.PhysicalAddress
	values  []string
	schema  Schema
}

func (b *base) ID() int32                          { return b.id }
func (b *base) SetID(id int32)                     { b.id = id }
func (b *base) IsDeleted() bool                    { return b.deleted }
func (b *base) MarkDeleted()                       { b.deleted = true }
func (b *base) UnmarkDeleted()                     { b.deleted = false }
func (b *base) Address() address.PhysicalAddress   { return b.addr }
func (b *base) SetAddress(a address.PhysicalAddress) { b.addr = a }
func (b *base) Values() []string                   { return b.values }
func (b *base) Schema() Schema                     { return b.schema }
func (b *base) SetSchema(s Schema)                 { b.schema = s }

func (b *base) displayInto(sb *strings.Builder) {
	sb.WriteString("Record ID: ")
	sb.WriteString(strconv.Itoa(int(b.id)))
	if b.deleted {
		sb.WriteString(" [DELETED]")
	}
	sb.WriteString(" | Address: ")
	sb.WriteString(b.addr.String())
	sb.WriteString("\n")
	for i := 0; i < len(b.values) && i < len(b.schema); i++ {
		sb.WriteString("  ")
		sb.WriteString(b.schema[i].Name)
		sb.WriteString(": ")
		sb.WriteString(b.values[i])
		sb.WriteString("\n")
	}
}

// joinValues renders the comma separated value list of the encodings.
func joinValues(values []string) string {
	return strings.Join(values, ",")
}

// splitValues is the inverse of joinValues. An empty segment means no
// values at all.
func splitValues(segment string) []string {
	if segment == "" {
		return nil
	}
	return strings.Split(segment, ",")
}
