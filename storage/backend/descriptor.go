package backend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ymakino/MegatronDB/common"
	"github.com/ymakino/MegatronDB/storage/record"
	"github.com/ymakino/MegatronDB/types"
)

// Schema descriptor format, one descriptor per table:
//
//	record_type=FIXED|VARIABLE
//	field_count=<n>
//	<name>|<type_int>|<max_length>|<nullable:0|1>   (n lines)
//
// Lines starting with '#' are comments.

func encodeSchema(table string, schema record.Schema, kind record.Kind) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# schema of table %s\n", table)
	fmt.Fprintf(&sb, "record_type=%s\n", kind)
	fmt.Fprintf(&sb, "field_count=%d\n", len(schema))
	for i := range schema {
		nullable := 0
		if schema[i].Nullable {
			nullable = 1
		}
		fmt.Fprintf(&sb, "%s|%d|%d|%d\n", schema[i].Name, int32(schema[i].Type), schema[i].MaxLength, nullable)
	}
	return sb.String()
}

func decodeSchema(data string) (record.Schema, record.Kind, error) {
	var (
		schema     record.Schema
		kind       = record.FixedKind
		fieldCount = -1
	)
	for _, line := range strings.Split(data, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "record_type="):
			switch line[len("record_type="):] {
			case record.FixedTag:
				kind = record.FixedKind
			case record.VariableTag:
				kind = record.VariableKind
			default:
				return nil, kind, ErrSchemaNotFound
			}
		case strings.HasPrefix(line, "field_count="):
			n, err := strconv.Atoi(line[len("field_count="):])
			if err != nil || n < 0 {
				return nil, kind, ErrSchemaNotFound
			}
			fieldCount = n
		default:
			parts := strings.SplitN(line, "|", 4)
			if len(parts) != 4 {
				return nil, kind, ErrSchemaNotFound
			}
			typeInt, err := strconv.ParseInt(parts[1], 10, 32)
			if err != nil || !types.FieldType(typeInt).IsValid() {
				return nil, kind, ErrSchemaNotFound
			}
			maxLen, err := strconv.ParseUint(parts[2], 10, 32)
			if err != nil {
				return nil, kind, ErrSchemaNotFound
			}
			nullable := parts[3] == "1"
			schema = append(schema, record.NewFieldDefinition(parts[0], types.FieldType(typeInt), uint32(maxLen), nullable))
		}
	}
	if fieldCount >= 0 && fieldCount != len(schema) {
		return nil, kind, ErrSchemaNotFound
	}
	return schema, kind, nil
}

// Disk config format: plain k=v lines, one per parameter.

func encodeConfig(cfg *common.DiskConfig) string {
	var sb strings.Builder
	sb.WriteString("# simulated disk configuration\n")
	fmt.Fprintf(&sb, "num_platters=%d\n", cfg.NumPlatters)
	fmt.Fprintf(&sb, "surfaces_per_platter=%d\n", cfg.SurfacesPerPlatter)
	fmt.Fprintf(&sb, "tracks_per_surface=%d\n", cfg.TracksPerSurface)
	fmt.Fprintf(&sb, "sectors_per_track=%d\n", cfg.SectorsPerTrack)
	fmt.Fprintf(&sb, "bytes_per_sector=%d\n", cfg.BytesPerSector)
	fmt.Fprintf(&sb, "seek_time_ms=%g\n", cfg.SeekTimeMs)
	fmt.Fprintf(&sb, "rotational_latency_ms=%g\n", cfg.RotationalLatencyMs)
	fmt.Fprintf(&sb, "transfer_time_ms=%g\n", cfg.TransferTimeMs)
	return sb.String()
}

func decodeConfig(data string) (*common.DiskConfig, error) {
	cfg := common.NewDiskConfig()
	for _, line := range strings.Split(data, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, ErrConfigNotFound
		}
		var err error
		switch key {
		case "num_platters":
			err = parseInt32(value, &cfg.NumPlatters)
		case "surfaces_per_platter":
			err = parseInt32(value, &cfg.SurfacesPerPlatter)
		case "tracks_per_surface":
			err = parseInt32(value, &cfg.TracksPerSurface)
		case "sectors_per_track":
			err = parseInt32(value, &cfg.SectorsPerTrack)
		case "bytes_per_sector":
			var n uint64
			if n, err = strconv.ParseUint(value, 10, 32); err == nil {
				cfg.BytesPerSector = uint32(n)
			}
		case "seek_time_ms":
			cfg.SeekTimeMs, err = strconv.ParseFloat(value, 64)
		case "rotational_latency_ms":
			cfg.RotationalLatencyMs, err = strconv.ParseFloat(value, 64)
		case "transfer_time_ms":
			cfg.TransferTimeMs, err = strconv.ParseFloat(value, 64)
		}
		if err != nil {
			return nil, ErrConfigNotFound
		}
	}
	if !cfg.IsValid() {
		return nil, ErrConfigNotFound
	}
	return cfg, nil
}

func parseInt32(value string, out *int32) error {
	n, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return err
	}
	*out = int32(n)
	return nil
}
