package backend

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dsnet/golib/memfile"
	"github.com/sasha-s/go-deadlock"
	"github.com/ymakino/MegatronDB/common"
	"github.com/ymakino/MegatronDB/storage/address"
	"github.com/ymakino/MegatronDB/storage/record"
)

// MemBackend keeps every sector in an in-memory file. It implements
// the same contract as FileBackend, including the checksum framing,
// and is what the tests run against.
type MemBackend struct {
	mu      deadlock.Mutex
	sectors map[address.PhysicalAddress]*memfile.File
	schemas map[string]string
	config  string
}

func NewMemBackend() *MemBackend {
	return &MemBackend{
		sectors: make(map[address.PhysicalAddress]*memfile.File),
		schemas: make(map[string]string),
	}
}

func (m *MemBackend) Location(addr address.PhysicalAddress) string {
	return addr.DirectoryPath() + "/" + addr.SectorFileName()
}

func (m *MemBackend) WriteBlock(addr address.PhysicalAddress, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sector, ok := m.sectors[addr]
	if !ok {
		sector = memfile.New(nil)
		m.sectors[addr] = sector
	}
	framed := frame(addr, data)
	if err := sector.Truncate(0); err != nil {
		return ErrIO
	}
	if _, err := sector.WriteAt([]byte(framed), 0); err != nil {
		return ErrIO
	}
	return nil
}

func (m *MemBackend) ReadBlock(addr address.PhysicalAddress) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sector, ok := m.sectors[addr]
	if !ok {
		return "", ErrBlockNotFound
	}
	return unframe(string(sector.Bytes()))
}

func (m *MemBackend) OccupiedAddresses() mapset.Set[address.PhysicalAddress] {
	m.mu.Lock()
	defer m.mu.Unlock()

	occupied := mapset.NewThreadUnsafeSet[address.PhysicalAddress]()
	for addr := range m.sectors {
		occupied.Add(addr)
	}
	return occupied
}

// CorruptSector flips one payload byte of a stored sector. Test hook
// for exercising the fail-closed read path.
func (m *MemBackend) CorruptSector(addr address.PhysicalAddress) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sector, ok := m.sectors[addr]
	if !ok {
		return false
	}
	data := sector.Bytes()
	if len(data) == 0 {
		return false
	}
	data[len(data)-1] ^= 0xff
	return true
}

func (m *MemBackend) SaveSchema(table string, schema record.Schema, kind record.Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.schemas[table] = encodeSchema(table, schema, kind)
	return nil
}

func (m *MemBackend) LoadSchema(table string) (record.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.schemas[table]
	if !ok {
		return nil, ErrSchemaNotFound
	}
	schema, _, err := decodeSchema(raw)
	return schema, err
}

func (m *MemBackend) IsFixedKind(table string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.schemas[table]
	if !ok {
		return true
	}
	_, kind, err := decodeSchema(raw)
	if err != nil {
		return true
	}
	return kind == record.FixedKind
}

func (m *MemBackend) SaveConfig(cfg *common.DiskConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = encodeConfig(cfg)
	return nil
}

func (m *MemBackend) LoadConfig() (*common.DiskConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config == "" {
		return nil, ErrConfigNotFound
	}
	return decodeConfig(m.config)
}
