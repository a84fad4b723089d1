package record_test

import (
	"testing"

	"github.com/ymakino/MegatronDB/storage/address"
	"github.com/ymakino/MegatronDB/storage/record"
	testingpkg "github.com/ymakino/MegatronDB/testing/testing_util"
	"github.com/ymakino/MegatronDB/types"
)

func usersSchema() record.Schema {
	return record.Schema{
		record.NewFieldDefinition("id", types.Integer, 0, false),
		record.NewFieldDefinition("name", types.String, 20, false),
		record.NewFieldDefinition("score", types.Float, 0, true),
	}
}

func TestFixedSizeAlignment(t *testing.T) {
	// 5 byte header + 4 + 20 + 4 = 33, aligned up to 36.
	testingpkg.Equals(t, uint32(36), record.FixedSizeOf(usersSchema()))

	single := record.Schema{record.NewFieldDefinition("id", types.Integer, 0, false)}
	testingpkg.Equals(t, uint32(12), record.FixedSizeOf(single))

	date := record.Schema{record.NewFieldDefinition("born", types.Date, 0, false)}
	testingpkg.Equals(t, uint32(20), record.FixedSizeOf(date))
}

func TestNewRecordRejectsFieldCountMismatch(t *testing.T) {
	_, err := record.NewFixedRecord(1, usersSchema(), []string{"7", "alice"})
	testingpkg.Assert(t, err == record.ErrFieldCountMismatch, "short value list must be rejected")

	_, err = record.NewVariableRecord(1, usersSchema(), []string{"7", "alice", "1.5", "extra"})
	testingpkg.Assert(t, err == record.ErrFieldCountMismatch, "long value list must be rejected")
}

func TestFixedRecordRoundTrip(t *testing.T) {
	r, err := record.NewFixedRecord(7, usersSchema(), []string{"7", "alice", "1.5"})
	testingpkg.Ok(t, err)
	r.SetAddress(address.New(0, 1, 2, 3))
	r.MarkDeleted()

	testingpkg.Equals(t, "FIXED|7|1|P0_S1_T2_SEC3|7,alice,1.5", r.Serialize())

	decoded, err := record.Deserialize(r.Serialize())
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, record.FixedKind, decoded.Kind())
	testingpkg.Equals(t, int32(7), decoded.ID())
	testingpkg.Assert(t, decoded.IsDeleted(), "tombstone flag must survive the round trip")
	testingpkg.Equals(t, r.Address(), decoded.Address())
	testingpkg.Equals(t, r.Values(), decoded.Values())

	// The fixed size is not on the wire; it comes back with the schema.
	decoded.SetSchema(usersSchema())
	testingpkg.Equals(t, uint32(36), decoded.Size())
}

func TestVariableRecordOffsets(t *testing.T) {
	schema := record.Schema{
		record.NewFieldDefinition("id", types.Integer, 0, false),
		record.NewFieldDefinition("name", types.String, 100, false),
		record.NewFieldDefinition("note", types.String, 100, true),
	}
	r, err := record.NewVariableRecord(1, schema, []string{"7", "alice", "x"})
	testingpkg.Ok(t, err)

	// 13 byte header + 3 offset slots of 8 = 37, then 4 for the
	// integer and each string at len+1.
	testingpkg.Equals(t, []uint32{37, 41, 47}, r.FieldOffsets())
	testingpkg.Equals(t, uint32(49), r.Size())
}

func TestVariableRecordRoundTrip(t *testing.T) {
	schema := record.Schema{
		record.NewFieldDefinition("id", types.Integer, 0, false),
		record.NewFieldDefinition("name", types.String, 100, false),
	}
	r, err := record.NewVariableRecord(3, schema, []string{"9", "bob"})
	testingpkg.Ok(t, err)
	r.SetAddress(address.New(1, 0, 0, 5))

	decoded, err := record.Deserialize(r.Serialize())
	testingpkg.Ok(t, err)
	testingpkg.Equals(t, record.VariableKind, decoded.Kind())
	testingpkg.Equals(t, r.Size(), decoded.Size())
	testingpkg.Equals(t, r.Values(), decoded.Values())

	variable := decoded.(*record.VariableRecord)
	testingpkg.Equals(t, r.FieldOffsets(), variable.FieldOffsets())
}

func TestDeserializeRejectsMalformedInput(t *testing.T) {
	for _, data := range []string{
		"",
		"UNKNOWN|1|0|P0_S0_T0_SEC0|a",
		"FIXED|x|0|P0_S0_T0_SEC0|a",
		"FIXED|1|2|P0_S0_T0_SEC0|a",
		"FIXED|1|0|badaddr|a",
		"FIXED|1|0|P0_S0_T0_SEC0",
		"VARIABLE|1|0|P0_S0_T0_SEC0|29|29,34|a",
		"VARIABLE|1|0|P0_S0_T0_SEC0|notasize|29|a",
	} {
		_, err := record.Deserialize(data)
		testingpkg.Nok(t, err)
	}
}

func TestDeserializeFailsClosed(t *testing.T) {
	r, err := record.NewFixedRecord(5, usersSchema(), []string{"5", "carol", "2.0"})
	testingpkg.Ok(t, err)

	err = r.Deserialize("FIXED|broken")
	testingpkg.Nok(t, err)
	testingpkg.Equals(t, int32(5), r.ID())
	testingpkg.Equals(t, []string{"5", "carol", "2.0"}, r.Values())
}
