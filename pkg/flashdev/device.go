package flashdev

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vorteil/flashtree/pkg/elog"
	"github.com/vorteil/flashtree/pkg/flashtree"
)

// Stats is the aggregate flash activity counters spec.md §4.6 and
// uffs_FlashStatSt track: how many erases, page reads/writes and spare
// reads/writes this device has driven since mount.
type Stats struct {
	BlockEraseCount int64
	PageWriteCount  int64
	PageReadCount   int64
	SpareWriteCount int64
	SpareReadCount  int64
}

// Device is the per-partition container (spec.md's C8): the tree, the
// partition range, storage geometry, the injected flash driver, the
// recursive lock, and running statistics. One Device corresponds to one
// partition; devices share nothing mutable with each other.
type Device struct {
	Tree      *flashtree.Tree
	Partition Partition
	Attrs     Attrs
	Driver    FlashDriver
	Lock      *Lock
	Stats     Stats

	log elog.Logger
}

// NewDevice allocates a Device with an empty tree sized to the partition's
// block count. The tree starts in the empty-device state and can be driven
// directly; call Mount instead to try restoring a persisted state.
func NewDevice(partition Partition, attrs Attrs, driver FlashDriver, log elog.Logger) (*Device, error) {
	if partition.BlockCount() <= 0 {
		return nil, fmt.Errorf("flashdev: empty or inverted partition range %+v", partition)
	}
	t, err := flashtree.New(partition.BlockCount())
	if err != nil {
		return nil, fmt.Errorf("flashdev: allocating tree: %w", err)
	}
	attrs.VolumeID = uuid.New()
	return &Device{
		Tree:      t,
		Partition: partition,
		Attrs:     attrs,
		Driver:    driver,
		Lock:      NewLock(),
		log:       log,
	}, nil
}

// Mount tries to restore the device's tree from a previously serialized
// state. On failure it logs the cause at SERIOUS severity, resets the tree
// to the empty-device state (already done by flashtree.Deserialize) and
// returns the error so the caller knows to fall back to a full flash scan,
// per spec.md §7's deserialize policy.
func (d *Device) Mount(task uint64, source flashtree.Source) error {
	d.Lock.Lock(task)
	defer func() { _ = d.Lock.Unlock(task) }()

	t, err := flashtree.Deserialize(d.Partition.BlockCount(), source)
	if err != nil {
		if d.log != nil {
			d.log.Errorf("flashdev: deserialize failed, falling back to full scan: %v", err)
		}
		d.Tree = t
		return err
	}
	d.Tree = t
	return nil
}

// Persist serializes the device's current tree state through sink. Persist
// acquires the device lock itself under task and holds it for the whole
// call, so a single call is always consistent.
func (d *Device) Persist(task uint64, sink flashtree.Sink) error {
	d.Lock.Lock(task)
	defer func() { _ = d.Lock.Unlock(task) }()

	return flashtree.Serialize(d.Tree, sink)
}
