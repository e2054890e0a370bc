// Package flashdev holds the per-partition device container (spec.md's C8):
// the tree arena, the partition's block range, storage geometry, a
// recursive device lock, aggregate flash statistics, and the flash-driver
// and serialization vtables the enclosing file system injects. Nothing in
// this package understands paths, file handles, or the POSIX API -- that
// remains an external collaborator's job.
package flashdev

import "github.com/google/uuid"

// DeviceType enumerates the storage transports a device may sit on,
// grounded on uffs_device.h's UFFS_DEV_* constants.
type DeviceType uint32

const (
	DeviceTypeNull DeviceType = iota
	DeviceTypeNAND
	DeviceTypeSmartMedia
	DeviceTypeRAM
	DeviceTypeROM
	DeviceTypeEmulated
)

// Attrs mirrors uffs_StorageAttrSt (spec.md §6.3): the fixed geometry a
// flash driver reports once at mount time.
type Attrs struct {
	DeviceType        DeviceType
	Maker             int
	ID                int
	TotalBlocks       uint32
	BlockDataSize     uint32
	PageDataSize      uint16
	SpareSize         uint16
	PagesPerBlock     uint16
	BlockStatusOffset uint16

	// VolumeID is a host-side identifier stamped at NewDevice time for log
	// correlation across remounts of the same partition. It is never part
	// of the on-flash format or the serialized stream.
	VolumeID uuid.UUID
}

// Partition is the inclusive block range (spec.md's uffs_PartitionSt) this
// device manages within the wider flash chip.
type Partition struct {
	Start uint16
	End   uint16
}

// BlockCount returns the number of blocks in the partition.
func (p Partition) BlockCount() int {
	return int(p.End) - int(p.Start) + 1
}

// Contains reports whether block lies within the partition.
func (p Partition) Contains(block uint16) bool {
	return block >= p.Start && block <= p.End
}
