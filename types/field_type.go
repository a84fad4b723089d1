package types

// FieldType identifies the storage type of one record field.
type FieldType int32

const (
	Integer FieldType = iota
	Float
	String
	Date
)

// Size returns the fixed encoded width of the type in bytes. String
// has no intrinsic width; its fixed-form width comes from the schema's
// max length, so Size reports 0 for it.
func (t FieldType) Size() uint32 {
	switch t {
	case Integer:
		return 4
	case Float:
		return 4
	case Date:
		// "YYYY-MM-DD" plus terminator, padded to 12
		return 12
	}
	return 0
}

// IsValid checks whether t is one of the declared field types.
func (t FieldType) IsValid() bool {
	return t >= Integer && t <= Date
}

func (t FieldType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Float:
		return "FLOAT"
	case String:
		return "STRING"
	case Date:
		return "DATE"
	}
	return "INVALID"
}
