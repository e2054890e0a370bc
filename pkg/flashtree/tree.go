package flashtree

import "fmt"

// Tree is the per-device index: the node arena plus the three hash-bucketed
// chains and the erased/bad list heads. Every mutation on a Tree must be
// made while the owning device's lock (see pkg/flashdev) is held; Tree
// itself does no locking.
type Tree struct {
	arena *Arena

	dirEntry  [DirNodeEntryLen]uint16
	fileEntry [FileNodeEntryLen]uint16
	dataEntry [DataNodeEntryLen]uint16

	erased, erasedTail uint16
	erasedCount        uint32

	bad, badTail uint16
	badCount     uint32

	dirCount, fileCount, dataCount uint32
}

// New returns a Tree over a freshly allocated arena of the given capacity,
// already in the empty-device state (equivalent to calling Reset on a zero
// Tree of that capacity).
func New(capacity int) (*Tree, error) {
	arena, err := NewArena(capacity)
	if err != nil {
		return nil, err
	}
	t := &Tree{arena: arena}
	t.Reset()
	return t, nil
}

// Cap returns the tree's node capacity (== partition block count).
func (t *Tree) Cap() int { return t.arena.Cap() }

// ErasedCount and BadCount expose the list-length counters spec.md requires
// to stay consistent with the actual list lengths (property §8.6).
func (t *Tree) ErasedCount() uint32 { return t.erasedCount }
func (t *Tree) BadCount() uint32    { return t.badCount }

// DirCount, FileCount and DataCount report how many nodes are currently
// live in each bucketed class.
func (t *Tree) DirCount() uint32  { return t.dirCount }
func (t *Tree) FileCount() uint32 { return t.fileCount }
func (t *Tree) DataCount() uint32 { return t.dataCount }

// Reset reinitializes the tree to the empty-device state: every arena slot
// chained into one free list in index order, every bucket head EMPTY, every
// list head EMPTY and every count zero. Idempotent (§8.2): calling it twice
// in a row is indistinguishable from calling it once.
func (t *Tree) Reset() {
	for i := range t.dirEntry {
		t.dirEntry[i] = EMPTY
	}
	for i := range t.fileEntry {
		t.fileEntry[i] = EMPTY
	}
	for i := range t.dataEntry {
		t.dataEntry[i] = EMPTY
	}
	t.erased, t.erasedTail = EMPTY, EMPTY
	t.erasedCount = 0
	t.bad, t.badTail = EMPTY, EMPTY
	t.badCount = 0
	t.dirCount, t.fileCount, t.dataCount = 0, 0, 0
	t.arena.reset()
}

// Node returns the node currently stored at idx. The caller must have
// obtained idx from this tree (AllocSlot, a lookup, or a walk); indices
// read from an untrusted source must go through Deserialize instead.
func (t *Tree) Node(idx uint16) *Node {
	return t.arena.Get(idx)
}

// AllocSlot hands out a fresh arena slot (C1 alloc()) for a block the
// caller has not described to the tree before. Most callers instead obtain
// a slot via PopErased, recycling the node that already describes the
// block being reused.
func (t *Tree) AllocSlot() (uint16, error) {
	return t.arena.Alloc()
}

// FreeSlot discards idx back to the free list without placing it on any
// bucket or list. Used to unwind a slot obtained via AllocSlot that never
// ended up describing a real block.
func (t *Tree) FreeSlot(idx uint16) {
	t.arena.Free(idx)
}

// InsertDir places idx (already allocated) into the directory bucket keyed
// by serial.
func (t *Tree) InsertDir(idx, block, checksum, parent, serial uint16) {
	n := t.arena.Get(idx)
	n.Kind = KindDir
	n.Block = block
	n.Checksum = checksum
	n.Parent = parent
	n.Serial = serial
	n.Len = 0
	n.Prev, n.Next = EMPTY, EMPTY
	t.insertBucket(classDir, idx, serial)
	t.dirCount++
}

// InsertFile places idx into the file bucket keyed by serial.
func (t *Tree) InsertFile(idx, block, checksum, parent, serial uint16, length uint32) {
	n := t.arena.Get(idx)
	n.Kind = KindFile
	n.Block = block
	n.Checksum = checksum
	n.Parent = parent
	n.Serial = serial
	n.Len = length
	n.Prev, n.Next = EMPTY, EMPTY
	t.insertBucket(classFile, idx, serial)
	t.fileCount++
}

// InsertData places idx into the data bucket keyed by parent. Data nodes
// carry no checksum (spec.md §3).
func (t *Tree) InsertData(idx, block, parent, serial uint16, length uint32) {
	n := t.arena.Get(idx)
	n.Kind = KindData
	n.Block = block
	n.Checksum = 0
	n.Parent = parent
	n.Serial = serial
	n.Len = length
	n.Prev, n.Next = EMPTY, EMPTY
	t.insertBucket(classData, idx, parent)
	t.dataCount++
}

// RemoveDir unlinks idx from the directory bucket. The slot remains Kind
// Dir with stale field values until the caller calls FreeSlot, PushErased
// or reinserts it; Remove only changes bucket membership (invariant 1).
func (t *Tree) RemoveDir(idx uint16) error {
	n := t.arena.Get(idx)
	if n.Kind != KindDir {
		return fmt.Errorf("%w: slot %d is not a directory node", ErrFatal, idx)
	}
	t.removeBucket(classDir, idx, n.Serial)
	t.dirCount--
	return nil
}

// RemoveFile unlinks idx from the file bucket.
func (t *Tree) RemoveFile(idx uint16) error {
	n := t.arena.Get(idx)
	if n.Kind != KindFile {
		return fmt.Errorf("%w: slot %d is not a file node", ErrFatal, idx)
	}
	t.removeBucket(classFile, idx, n.Serial)
	t.fileCount--
	return nil
}

// RemoveData unlinks idx from the data bucket.
func (t *Tree) RemoveData(idx uint16) error {
	n := t.arena.Get(idx)
	if n.Kind != KindData {
		return fmt.Errorf("%w: slot %d is not a data node", ErrFatal, idx)
	}
	t.removeBucket(classData, idx, n.Parent)
	t.dataCount--
	return nil
}

// LookupDirBySerial finds the directory node with the given serial.
func (t *Tree) LookupDirBySerial(serial uint16) (uint16, *Node, error) {
	idx, ok := t.lookupBySerial(classDir, serial)
	if !ok {
		return EMPTY, nil, fmt.Errorf("%w: dir serial %d", ErrNotFound, serial)
	}
	return idx, t.arena.Get(idx), nil
}

// LookupFileBySerial finds the file node with the given serial.
func (t *Tree) LookupFileBySerial(serial uint16) (uint16, *Node, error) {
	idx, ok := t.lookupBySerial(classFile, serial)
	if !ok {
		return EMPTY, nil, fmt.Errorf("%w: file serial %d", ErrNotFound, serial)
	}
	return idx, t.arena.Get(idx), nil
}

// ScanDataChildren invokes cb for every data node whose Parent equals
// parent. It is the tree's only way to enumerate a file or directory's data
// blocks -- there is no secondary index keyed by a data node's own serial.
func (t *Tree) ScanDataChildren(parent uint16, cb func(idx uint16, n *Node) error) error {
	return t.scanChildren(parent, cb)
}

// PushErased appends a slot describing a known-erased block to the tail of
// the erased list. Used both for blocks freshly reported as erased by the
// flash driver and for blocks moved back to erased after their bucket
// membership ends.
func (t *Tree) PushErased(idx, block uint16, needCheck bool) {
	n := t.arena.Get(idx)
	n.Kind = KindErased
	n.Block = block
	n.Checksum = 0
	n.Parent = 0
	n.Serial = 0
	n.Len = 0
	n.NeedCheck = needCheck
	n.HashPrev, n.HashNext = EMPTY, EMPTY
	t.appendErased(idx)
}

// PopErased removes and returns the head of the erased list -- the oldest
// erased block, ready for the caller to write fresh content to. Returns
// ErrExhausted if the erased list is empty; the caller must erase more
// blocks (or evict) before retrying, exactly as Arena.Alloc does for the
// free list.
func (t *Tree) PopErased() (idx, block uint16, needCheck bool, err error) {
	if t.erased == EMPTY {
		return EMPTY, NoBlock, false, ErrExhausted
	}
	idx = t.erased
	n := t.arena.Get(idx)
	block, needCheck = n.Block, n.NeedCheck
	t.unlinkErased(idx)
	return idx, block, needCheck, nil
}

// PushBad appends idx to the bad list. The bad list is append-only at
// runtime (spec.md §4.3): once a block is marked bad it is never returned
// to service by this tree.
func (t *Tree) PushBad(idx, block uint16) {
	n := t.arena.Get(idx)
	n.Kind = KindBad
	n.Block = block
	n.Checksum = 0
	n.Parent = 0
	n.Serial = 0
	n.Len = 0
	n.NeedCheck = false
	n.HashPrev, n.HashNext = EMPTY, EMPTY
	t.appendBad(idx)
}

// MarkErasedBlockBad finds block on the erased list and moves it to the bad
// list in place, reusing the same arena slot (scenario 5 of spec.md §8):
// erasedCount decreases by one, badCount increases by one, and the bad
// entry survives a subsequent serialize round-trip.
func (t *Tree) MarkErasedBlockBad(block uint16) error {
	var found uint16 = EMPTY
	err := t.walkErased(func(idx uint16, n *Node) error {
		if n.Block == block {
			found = idx
		}
		return nil
	})
	if err != nil {
		return err
	}
	if found == EMPTY {
		return fmt.Errorf("%w: block %d is not on the erased list", ErrNotFound, block)
	}
	t.unlinkErased(found)
	t.appendBad(found)
	n := t.arena.Get(found)
	n.Kind = KindBad
	n.NeedCheck = false
	return nil
}

// WalkErased and WalkBad expose the erased/bad lists head-to-tail, for
// statistics reporting and tests asserting §8.6's count-consistency
// property.
func (t *Tree) WalkErased(cb func(idx uint16, n *Node) error) error { return t.walkErased(cb) }
func (t *Tree) WalkBad(cb func(idx uint16, n *Node) error) error    { return t.walkBad(cb) }
