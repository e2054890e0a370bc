package flashtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDeserializeTruncatedStreamResetsToEmpty is scenario 6 and property
// §8.3: any I/O failure mid-stream must leave the caller with a usable,
// empty tree rather than a half-populated one.
func TestDeserializeTruncatedStreamResetsToEmpty(t *testing.T) {
	tr, err := New(16)
	require.NoError(t, err)
	idx, err := tr.AllocSlot()
	require.NoError(t, err)
	tr.InsertDir(idx, 1, 0, 0, 1)

	m, sink := newMemSink()
	require.NoError(t, Serialize(tr, sink))
	m.truncate(len(m.b) / 2)

	got, err := Deserialize(16, m.source())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIo)
	require.EqualValues(t, 0, got.DirCount())
	require.EqualValues(t, 0, got.FileCount())
	require.EqualValues(t, 0, got.DataCount())

	// The returned tree must still be usable.
	_, err = got.AllocSlot()
	require.NoError(t, err)
}

// TestDeserializeRejectsOutOfRangeBucketHead is property §8.4: an index
// field naming a slot >= capacity must reset to empty, never silently
// clamp or wrap. Hand-built rather than derived from a real Serialize
// output, so the corruption lands at an exact, known point: the first
// directory bucket head.
func TestDeserializeRejectsOutOfRangeBucketHead(t *testing.T) {
	u16s := []uint16{EMPTY, EMPTY, EMPTY} // free, erased, bad
	u16s = append(u16s, 20)               // first dir bucket head, >= capacity
	u16s = append(u16s, emptyHeads(DirNodeEntryLen-1)...)
	q := &queueSource{u16s: u16s}

	got, err := Deserialize(16, q.source())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCorruptOutOfRange)
	require.EqualValues(t, 0, got.DirCount())
}

// TestDeserializeRejectsCountTooLarge is property §8.4's count-based
// variant: a class count exceeding capacity is corrupt by construction,
// regardless of what indices follow it. Hand-built for the same reason as
// above -- Serialize itself would refuse to ever emit a mismatched count.
func TestDeserializeRejectsCountTooLarge(t *testing.T) {
	u16s := []uint16{EMPTY, EMPTY, EMPTY} // free, erased, bad
	u16s = append(u16s, emptyHeads(DirNodeEntryLen)...)
	u16s = append(u16s, 0xFFFF) // dir count, far larger than capacity
	q := &queueSource{u16s: u16s}

	got, err := Deserialize(4, q.source())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCorruptCountTooLarge)
	require.True(t, IsCorrupt(err))
	require.EqualValues(t, 0, got.DirCount())
}

func emptyHeads(n int) []uint16 {
	h := make([]uint16, n)
	for i := range h {
		h[i] = EMPTY
	}
	return h
}

// TestDeserializeRejectsBrokenChainBackpointer is property §8.5: a hash
// chain whose back-pointer disagrees with its forward neighbor is
// structurally corrupt and must not be accepted silently.
func TestDeserializeRejectsBrokenChainBackpointer(t *testing.T) {
	tr, err := New(16)
	require.NoError(t, err)

	i1, err := tr.AllocSlot()
	require.NoError(t, err)
	tr.InsertDir(i1, 1, 0, 0, 1)
	i2, err := tr.AllocSlot()
	require.NoError(t, err)
	tr.InsertDir(i2, 2, 0, 0, 1+DirNodeEntryLen) // force same bucket as i1 (serial 1)

	// Directly corrupt the in-memory tree's back-pointer rather than
	// guessing byte offsets for a specific hash placement, then serialize
	// that corrupted state and confirm deserialize catches it.
	n := tr.Node(i2)
	n.HashPrev = 9999 % 16

	m, sink := newMemSink()
	require.NoError(t, Serialize(tr, sink))

	got, err := Deserialize(16, m.source())
	require.Error(t, err)
	require.True(t, IsCorrupt(err))
	require.EqualValues(t, 0, got.DirCount())
}

// TestDeserializeRejectsDanglingDataParent is invariant 5: a data node
// whose parent names neither an existing file nor an existing directory
// must be rejected, not silently linked to nothing.
func TestDeserializeRejectsDanglingDataParent(t *testing.T) {
	tr, err := New(16)
	require.NoError(t, err)

	idx, err := tr.AllocSlot()
	require.NoError(t, err)
	tr.InsertData(idx, 1, 999, 0, 10) // parent 999 never inserted

	m, sink := newMemSink()
	require.NoError(t, Serialize(tr, sink))

	got, err := Deserialize(16, m.source())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCorruptStructural)
	require.EqualValues(t, 0, got.DataCount())
}

// TestDeserializeRejectsDanglingFileParent is spec.md's concrete scenario
// 2: a directory (serial=1, parent=0, block=3), a file under it (serial=2,
// parent=1, block=5, len=120, checksum=0xABCD) and a data block under the
// file (parent=2, serial=0, block=6, len=512); the file's parent is then
// corrupted to 0xF000 and deserialize must reset to empty. Corrupting the
// in-memory node's Parent field before Serialize reproduces the same
// corrupted value on the wire as patching the serialized bytes directly
// would, since Serialize copies the field through unchanged.
func TestDeserializeRejectsDanglingFileParent(t *testing.T) {
	tr, err := New(16)
	require.NoError(t, err)

	dirIdx, err := tr.AllocSlot()
	require.NoError(t, err)
	tr.InsertDir(dirIdx, 3, 0, 0, 1)

	fileIdx, err := tr.AllocSlot()
	require.NoError(t, err)
	tr.InsertFile(fileIdx, 5, 0xABCD, 1, 2, 120)

	dataIdx, err := tr.AllocSlot()
	require.NoError(t, err)
	tr.InsertData(dataIdx, 6, 2, 0, 512)

	tr.Node(fileIdx).Parent = 0xF000

	m, sink := newMemSink()
	require.NoError(t, Serialize(tr, sink))

	got, err := Deserialize(16, m.source())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrCorruptStructural)
	require.EqualValues(t, 0, got.DirCount())
	require.EqualValues(t, 0, got.FileCount())
	require.EqualValues(t, 0, got.DataCount())
}

func TestRemoveWrongKindReturnsFatal(t *testing.T) {
	tr, err := New(8)
	require.NoError(t, err)
	idx, err := tr.AllocSlot()
	require.NoError(t, err)
	tr.InsertDir(idx, 1, 0, 0, 1)

	err = tr.RemoveFile(idx)
	require.ErrorIs(t, err, ErrFatal)
}

func TestLookupMissingSerialIsNotFound(t *testing.T) {
	tr, err := New(8)
	require.NoError(t, err)
	_, _, err = tr.LookupDirBySerial(42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPopErasedOnEmptyListIsExhausted(t *testing.T) {
	tr, err := New(8)
	require.NoError(t, err)
	_, _, _, err = tr.PopErased()
	require.ErrorIs(t, err, ErrExhausted)
}
