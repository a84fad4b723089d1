package record

import "github.com/ymakino/MegatronDB/types"

// FieldDefinition describes one column of a relation.
type FieldDefinition struct {
	Name      string
	Type      types.FieldType
	MaxLength uint32 // encoded width of String fields; ignored otherwise
	Nullable  bool
}

func NewFieldDefinition(name string, fieldType types.FieldType, maxLength uint32, nullable bool) FieldDefinition {
	return FieldDefinition{name, fieldType, maxLength, nullable}
}

// Schema is the ordered field layout of a relation. It is fixed when
// the table is created and never altered afterwards.
type Schema []FieldDefinition

// Width returns the fixed encoded width of the field at index i.
func (s Schema) Width(i int) uint32 {
	if s[i].Type == types.String {
		return s[i].MaxLength
	}
	return s[i].Type.Size()
}
