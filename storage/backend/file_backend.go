package backend

import (
	"fmt"
	"os"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/golang-collections/collections/stack"
	"github.com/ymakino/MegatronDB/common"
	"github.com/ymakino/MegatronDB/errors"
	"github.com/ymakino/MegatronDB/storage/address"
	"github.com/ymakino/MegatronDB/storage/record"
)

const ErrBadBasePath = errors.Error("base path does not exist and cannot be created")

const metadataDir = "metadata"

// FileBackend persists blocks as a directory tree mirroring the disk
// geometry: one directory per track, one text file per occupied
// sector. Schema descriptors and the disk config live under
// <base>/metadata.
type FileBackend struct {
	basePath string
}

func NewFileBackend(basePath string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Join(basePath, metadataDir), 0755); err != nil {
		return nil, ErrBadBasePath
	}
	return &FileBackend{basePath: basePath}, nil
}

func (f *FileBackend) BasePath() string { return f.basePath }

// Location returns the sector file path for addr.
func (f *FileBackend) Location(addr address.PhysicalAddress) string {
	return filepath.Join(f.basePath, filepath.FromSlash(addr.DirectoryPath()), addr.SectorFileName())
}

func (f *FileBackend) WriteBlock(addr address.PhysicalAddress, data string) error {
	location := f.Location(addr)
	if err := os.MkdirAll(filepath.Dir(location), 0755); err != nil {
		common.LogPrintf(common.WARN, "mkdir for sector %s failed: %v\n", addr.Key(), err)
		return ErrIO
	}
	if err := os.WriteFile(location, []byte(frame(addr, data)), 0644); err != nil {
		common.LogPrintf(common.WARN, "write of sector %s failed: %v\n", addr.Key(), err)
		return ErrIO
	}
	return nil
}

func (f *FileBackend) ReadBlock(addr address.PhysicalAddress) (string, error) {
	raw, err := os.ReadFile(f.Location(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrBlockNotFound
		}
		common.LogPrintf(common.WARN, "read of sector %s failed: %v\n", addr.Key(), err)
		return "", ErrIO
	}
	return unframe(string(raw))
}

// OccupiedAddresses walks the geometry tree with an explicit stack and
// collects every sector file it finds. Files that do not match the
// platter/surface/track/sector naming are ignored.
func (f *FileBackend) OccupiedAddresses() mapset.Set[address.PhysicalAddress] {
	occupied := mapset.NewThreadUnsafeSet[address.PhysicalAddress]()

	pending := stack.New()
	pending.Push(f.basePath)
	for pending.Len() > 0 {
		dir := pending.Pop().(string)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if dir == f.basePath && entry.Name() == metadataDir {
					continue
				}
				pending.Push(path)
				continue
			}
			rel, err := filepath.Rel(f.basePath, path)
			if err != nil {
				continue
			}
			var a address.PhysicalAddress
			n, err := fmt.Sscanf(filepath.ToSlash(rel), "platter_%d/surface_%d/track_%d/sector_%d.txt",
				&a.Platter, &a.Surface, &a.Track, &a.Sector)
			if err == nil && n == 4 {
				occupied.Add(a)
			}
		}
	}
	return occupied
}

func (f *FileBackend) schemaPath(table string) string {
	return filepath.Join(f.basePath, metadataDir, "schema_"+table+".txt")
}

func (f *FileBackend) SaveSchema(table string, schema record.Schema, kind record.Kind) error {
	if err := os.WriteFile(f.schemaPath(table), []byte(encodeSchema(table, schema, kind)), 0644); err != nil {
		common.LogPrintf(common.WARN, "write of schema descriptor for %s failed: %v\n", table, err)
		return ErrIO
	}
	return nil
}

func (f *FileBackend) LoadSchema(table string) (record.Schema, error) {
	raw, err := os.ReadFile(f.schemaPath(table))
	if err != nil {
		return nil, ErrSchemaNotFound
	}
	schema, _, err := decodeSchema(string(raw))
	return schema, err
}

func (f *FileBackend) IsFixedKind(table string) bool {
	raw, err := os.ReadFile(f.schemaPath(table))
	if err != nil {
		return true
	}
	_, kind, err := decodeSchema(string(raw))
	if err != nil {
		return true
	}
	return kind == record.FixedKind
}

func (f *FileBackend) configPath() string {
	return filepath.Join(f.basePath, metadataDir, "disk_config.txt")
}

func (f *FileBackend) SaveConfig(cfg *common.DiskConfig) error {
	if err := os.WriteFile(f.configPath(), []byte(encodeConfig(cfg)), 0644); err != nil {
		common.LogPrintf(common.WARN, "write of disk config failed: %v\n", err)
		return ErrIO
	}
	return nil
}

func (f *FileBackend) LoadConfig() (*common.DiskConfig, error) {
	raw, err := os.ReadFile(f.configPath())
	if err != nil {
		return nil, ErrConfigNotFound
	}
	return decodeConfig(string(raw))
}
