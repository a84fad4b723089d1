package disk

import (
	"fmt"
	"sort"

	pair "github.com/notEpsilon/go-pair"
	"github.com/sasha-s/go-deadlock"
	"github.com/ymakino/MegatronDB/common"
	"github.com/ymakino/MegatronDB/errors"
	"github.com/ymakino/MegatronDB/storage/address"
	"github.com/ymakino/MegatronDB/storage/backend"
	"github.com/ymakino/MegatronDB/storage/block"
	"github.com/ymakino/MegatronDB/storage/record"
)

const (
	ErrNotInitialized      = errors.Error("disk manager is not initialized")
	ErrInvalidConfig       = errors.Error("disk config is not valid")
	ErrTableNotFound       = errors.Error("table not found")
	ErrDuplicateTable      = errors.Error("table already exists")
	ErrRecordNotFound      = errors.Error("record not found")
	ErrCapacityExceeded    = errors.Error("record does not fit even an empty block")
	ErrAllocationExhausted = errors.Error("no free sectors left on the simulated disk")
)

// DiskManager ties the storage engine together: it allocates block
// addresses along the disk geometry, keeps an unbounded address->block
// cache, maps each relation to its ordered block list, hands out
// record ids from a single global counter and accounts the simulated
// access time of every operation.
//
// Execution is single threaded; the mutex only guards the shared-state
// boundary so independent manager instances can coexist in tests.
type DiskManager struct {
	mu  deadlock.Mutex
	cfg *common.DiskConfig
	fs  backend.Backend

	blockCache     map[address.PhysicalAddress]*block.Block
	relationBlocks map[string][]address.PhysicalAddress

	nextFreeAddr address.PhysicalAddress
	exhausted    bool
	nextRecordID int32

	timer             *AccessTimer
	totalReads        uint64
	totalWrites       uint64
	totalAccessTimeMs float64

	initialized bool
}

func NewDiskManager(fs backend.Backend) *DiskManager {
	return &DiskManager{
		fs:             fs,
		blockCache:     make(map[address.PhysicalAddress]*block.Block),
		relationBlocks: make(map[string][]address.PhysicalAddress),
		nextRecordID:   1,
	}
}

// Initialize sets up a fresh disk with the given geometry and persists
// the config through the backend.
func (d *DiskManager) Initialize(cfg *common.DiskConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cfg == nil || !cfg.IsValid() {
		return ErrInvalidConfig
	}
	if err := d.fs.SaveConfig(cfg); err != nil {
		return err
	}
	d.cfg = cfg
	d.timer = NewAccessTimer(cfg)
	d.initialized = true
	return nil
}

// LoadExisting rehydrates the manager from the backend: it reloads the
// persisted config, reads back every occupied sector, rebuilds the
// relation directory from the relation names embedded in the blocks,
// recomputes the global id counter as max(loaded ids)+1 and sets the
// allocation cursor to the successor of the highest occupied address.
// Addresses are visited in lexicographic order, so the directory order
// and the cursor do not depend on the backend's enumeration order.
func (d *DiskManager) LoadExisting() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cfg, err := d.fs.LoadConfig()
	if err != nil {
		return err
	}
	d.cfg = cfg
	d.timer = NewAccessTimer(cfg)
	d.initialized = true

	addrs := d.fs.OccupiedAddresses().ToSlice()
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })

	for _, addr := range addrs {
		blk, err := d.readBlock(addr)
		if err != nil {
			common.LogPrintf(common.WARN, "skipping unreadable sector %s: %v\n", addr.Key(), err)
			continue
		}
		d.blockCache[addr] = blk
		if relation := blk.RelationName(); relation != "" {
			d.relationBlocks[relation] = append(d.relationBlocks[relation], addr)
		}
		for _, r := range blk.AllRecords() {
			if r.ID() >= d.nextRecordID {
				d.nextRecordID = r.ID() + 1
			}
		}
	}

	if len(addrs) > 0 {
		last := addrs[len(addrs)-1]
		d.nextFreeAddr, d.exhausted = d.successorOf(last)
	}
	return nil
}

// CreateTable registers a new relation: it persists the schema
// descriptor and allocates the relation's first, empty block.
func (d *DiskManager) CreateTable(name string, schema record.Schema, kind record.Kind) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return ErrNotInitialized
	}
	if _, ok := d.relationBlocks[name]; ok {
		return ErrDuplicateTable
	}
	savedCursor, savedExhausted := d.nextFreeAddr, d.exhausted
	addr, err := d.allocate()
	if err != nil {
		return err
	}
	blk := block.New(addr, d.cfg.BytesPerSector)
	blk.SetRelationName(name)
	if err := d.persistBlock(blk); err != nil {
		d.nextFreeAddr, d.exhausted = savedCursor, savedExhausted
		return err
	}
	// The schema descriptor follows the block so a failed create never
	// leaves a schema for a table that was not registered.
	if err := d.fs.SaveSchema(name, schema, kind); err != nil {
		return err
	}
	d.blockCache[addr] = blk
	d.relationBlocks[name] = []address.PhysicalAddress{addr}
	common.LogPrintf(common.DEBUG_INFO, "table %s created at %s\n", name, addr.Key())
	return nil
}

// InsertRecord builds a record of the table's persisted kind, assigns
// the next global id and places it into the first block of the
// relation with enough free space, allocating a new block when none
// fits. It returns the assigned record id.
func (d *DiskManager) InsertRecord(table string, values []string) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return record.InvalidID, ErrNotInitialized
	}
	blocks, ok := d.relationBlocks[table]
	if !ok {
		return record.InvalidID, ErrTableNotFound
	}
	schema, err := d.fs.LoadSchema(table)
	if err != nil {
		return record.InvalidID, ErrTableNotFound
	}

	var rec record.Record
	if d.fs.IsFixedKind(table) {
		rec, err = record.NewFixedRecord(record.InvalidID, schema, values)
	} else {
		rec, err = record.NewVariableRecord(record.InvalidID, schema, values)
	}
	if err != nil {
		return record.InvalidID, err
	}

	// A record bigger than an empty block can never be placed; detect
	// it up front instead of allocating blocks forever.
	if block.HeaderSize+rec.Size()+block.OffsetEntrySize > d.cfg.BytesPerSector {
		return record.InvalidID, ErrCapacityExceeded
	}

	// First fit over the relation's blocks in directory order.
	var target *block.Block
	for _, addr := range blocks {
		blk, err := d.getBlock(addr)
		if err != nil {
			continue
		}
		if blk.CanFit(rec) {
			target = blk
			break
		}
	}

	// The placement is staged: cache, directory, cursor and id counter
	// advance only once the backend write succeeded.
	savedCursor, savedExhausted := d.nextFreeAddr, d.exhausted
	var newAddr address.PhysicalAddress
	allocated := false
	if target == nil {
		addr, err := d.allocate()
		if err != nil {
			return record.InvalidID, err
		}
		target = block.New(addr, d.cfg.BytesPerSector)
		target.SetRelationName(table)
		newAddr = addr
		allocated = true
	}

	wasDirty := target.IsDirty()
	rec.SetID(d.nextRecordID)
	if !target.AddRecord(rec) {
		if allocated {
			d.nextFreeAddr, d.exhausted = savedCursor, savedExhausted
		}
		return record.InvalidID, ErrCapacityExceeded
	}
	if err := d.persistBlock(target); err != nil {
		target.RemoveLastRecord()
		if !wasDirty {
			target.MarkClean()
		}
		if allocated {
			d.nextFreeAddr, d.exhausted = savedCursor, savedExhausted
		}
		return record.InvalidID, err
	}
	if allocated {
		d.blockCache[newAddr] = target
		d.relationBlocks[table] = append(blocks, newAddr)
	}
	d.nextRecordID++
	ms := d.accrue()
	d.totalWrites++
	common.LogPrintf(common.INFO, "record %d inserted into %s (%.2f ms)\n", rec.ID(), table, ms)
	return rec.ID(), nil
}

// FindRecord scans the relation's blocks in directory order and
// returns the first active record with the given id. The read counter
// and the access-time total advance on success only.
func (d *DiskManager) FindRecord(table string, id int32) (record.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blocks, ok := d.relationBlocks[table]
	if !ok {
		return nil, ErrTableNotFound
	}
	for _, addr := range blocks {
		blk, err := d.getBlock(addr)
		if err != nil {
			continue
		}
		if r := blk.FindRecord(id); r != nil {
			d.accrue()
			d.totalReads++
			return r, nil
		}
	}
	return nil, ErrRecordNotFound
}

// DeleteRecord tombstones the record in the first block that reports
// it. Ids are globally unique, so the scan stops at the first hit.
func (d *DiskManager) DeleteRecord(table string, id int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	blocks, ok := d.relationBlocks[table]
	if !ok {
		return ErrTableNotFound
	}
	for _, addr := range blocks {
		blk, err := d.getBlock(addr)
		if err != nil {
			continue
		}
		// active is non-nil only when the record was not tombstoned yet;
		// it is the handle for unwinding a failed persist.
		active := blk.FindRecord(id)
		wasDirty := blk.IsDirty()
		if !blk.DeleteRecord(id) {
			continue
		}
		if err := d.persistBlock(blk); err != nil {
			if active != nil {
				active.UnmarkDeleted()
			}
			if !wasDirty {
				blk.MarkClean()
			}
			return err
		}
		ms := d.accrue()
		d.totalWrites++
		common.LogPrintf(common.INFO, "record %d tombstoned in %s (%.2f ms)\n", id, table, ms)
		return nil
	}
	return ErrRecordNotFound
}

// CompactTable compacts every block of the relation and persists only
// the blocks whose record count changed. It returns the number of
// blocks rewritten.
func (d *DiskManager) CompactTable(table string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blocks, ok := d.relationBlocks[table]
	if !ok {
		return 0, ErrTableNotFound
	}
	rewritten := 0
	for _, addr := range blocks {
		blk, err := d.getBlock(addr)
		if err != nil {
			continue
		}
		before := blk.RecordCount()
		blk.Compact()
		if blk.RecordCount() != before {
			if err := d.persistBlock(blk); err != nil {
				return rewritten, err
			}
			rewritten++
		}
	}
	common.LogPrintf(common.DEBUG_INFO, "compaction of %s rewrote %d block(s)\n", table, rewritten)
	return rewritten, nil
}

// TableBlocks returns the relation's block addresses in directory
// order.
func (d *DiskManager) TableBlocks(table string) ([]address.PhysicalAddress, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blocks, ok := d.relationBlocks[table]
	if !ok {
		return nil, ErrTableNotFound
	}
	out := make([]address.PhysicalAddress, len(blocks))
	copy(out, blocks)
	return out, nil
}

// GetBlock returns the cached or loaded block at addr.
func (d *DiskManager) GetBlock(addr address.PhysicalAddress) (*block.Block, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.getBlock(addr)
}

// SetAccessTimer swaps the latency model, letting tests inject a
// deterministic random source.
func (d *DiskManager) SetAccessTimer(t *AccessTimer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timer = t
}

// allocate hands out the cursor address and advances the cursor one
// sector, carrying into track, surface and platter. Past the last
// sector of the configured geometry it fails instead of wrapping back
// to address zero.
func (d *DiskManager) allocate() (address.PhysicalAddress, error) {
	if d.exhausted {
		return address.PhysicalAddress{}, ErrAllocationExhausted
	}
	addr := d.nextFreeAddr
	d.nextFreeAddr, d.exhausted = d.successorOf(addr)
	return addr, nil
}

// successorOf returns the next address in geometric order. exhausted
// is true when a was the last sector of the disk.
func (d *DiskManager) successorOf(a address.PhysicalAddress) (next address.PhysicalAddress, exhausted bool) {
	a.Sector++
	if a.Sector >= d.cfg.SectorsPerTrack {
		a.Sector = 0
		a.Track++
		if a.Track >= d.cfg.TracksPerSurface {
			a.Track = 0
			a.Surface++
			if a.Surface >= d.cfg.SurfacesPerPlatter {
				a.Surface = 0
				a.Platter++
				if a.Platter >= d.cfg.NumPlatters {
					return a, true
				}
			}
		}
	}
	return a, false
}

// getBlock is cache first: a hit returns the cached instance, a miss
// reads through the backend and populates the cache.
func (d *DiskManager) getBlock(addr address.PhysicalAddress) (*block.Block, error) {
	if blk, ok := d.blockCache[addr]; ok {
		return blk, nil
	}
	blk, err := d.readBlock(addr)
	if err != nil {
		return nil, err
	}
	d.blockCache[addr] = blk
	return blk, nil
}

func (d *DiskManager) readBlock(addr address.PhysicalAddress) (*block.Block, error) {
	data, err := d.fs.ReadBlock(addr)
	if err != nil {
		return nil, err
	}
	blk := block.New(addr, d.cfg.BytesPerSector)
	if err := blk.Deserialize(data); err != nil {
		return nil, err
	}
	if schema, err := d.fs.LoadSchema(blk.RelationName()); err == nil {
		blk.AttachSchema(schema)
	}
	return blk, nil
}

func (d *DiskManager) persistBlock(blk *block.Block) error {
	if err := d.fs.WriteBlock(blk.Address(), blk.Serialize()); err != nil {
		return err
	}
	blk.MarkClean()
	return nil
}

// accrue samples one access latency and adds it to the running total.
func (d *DiskManager) accrue() float64 {
	ms := d.timer.Sample()
	d.totalAccessTimeMs += ms
	return ms
}

// Stats are the manager's running access counters.
type Stats struct {
	Reads             uint64
	Writes            uint64
	TotalAccessTimeMs float64
}

// MeanAccessTimeMs is the average simulated latency per accounted
// operation, 0 when nothing ran yet.
func (s Stats) MeanAccessTimeMs() float64 {
	if s.Reads+s.Writes == 0 {
		return 0
	}
	return s.TotalAccessTimeMs / float64(s.Reads+s.Writes)
}

func (d *DiskManager) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{Reads: d.totalReads, Writes: d.totalWrites, TotalAccessTimeMs: d.totalAccessTimeMs}
}

// TableSummaries lists every relation with its block count, sorted by
// relation name.
func (d *DiskManager) TableSummaries() []pair.Pair[string, int] {
	d.mu.Lock()
	defer d.mu.Unlock()

	summaries := make([]pair.Pair[string, int], 0, len(d.relationBlocks))
	for relation, blocks := range d.relationBlocks {
		summaries = append(summaries, pair.Pair[string, int]{First: relation, Second: len(blocks)})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].First < summaries[j].First })
	return summaries
}

// DisplayStatistics renders the disk usage and access statistics.
func (d *DiskManager) DisplayStatistics() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := Stats{Reads: d.totalReads, Writes: d.totalWrites, TotalAccessTimeMs: d.totalAccessTimeMs}
	occupied := int64(d.fs.OccupiedAddresses().Cardinality())
	total := d.cfg.TotalSectors()

	var lines []string
	lines = append(lines,
		"=== disk usage ===",
		fmt.Sprintf("sectors: %d occupied / %d total", occupied, total),
		fmt.Sprintf("capacity: %s", d.cfg.FormattedCapacity()),
		fmt.Sprintf("used: %s", common.FormatBytes(occupied*int64(d.cfg.BytesPerSector))),
		"=== access statistics ===",
		fmt.Sprintf("reads: %d, writes: %d", stats.Reads, stats.Writes),
		fmt.Sprintf("total access time: %.2f ms (mean %.2f ms)", stats.TotalAccessTimeMs, stats.MeanAccessTimeMs()),
	)
	out := ""
	for _, line := range lines {
		out += line + "\n"
	}
	return out
}

// DisplayTable renders every block of the relation with its active
// records.
func (d *DiskManager) DisplayTable(table string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	blocks, ok := d.relationBlocks[table]
	if !ok {
		return "", ErrTableNotFound
	}
	out := fmt.Sprintf("=== table %s ===\n", table)
	totalRecords, activeRecords := 0, 0
	for _, addr := range blocks {
		blk, err := d.getBlock(addr)
		if err != nil {
			continue
		}
		out += blk.Display()
		for _, r := range blk.ActiveRecords() {
			out += r.Display()
			activeRecords++
		}
		totalRecords += blk.RecordCount()
	}
	out += fmt.Sprintf("%d active of %d total records\n", activeRecords, totalRecords)
	return out, nil
}
