package flashtree

import "fmt"

// Deserialize rebuilds a Tree of the given capacity from source, in the
// exact order Serialize wrote it. On any error the returned Tree is the
// empty-device state (as Reset produces) and the error is non-nil -- no
// partially populated tree is ever returned to the caller, so a failed
// mount can fall back to a full flash scan without first having to notice
// and discard a half-built index itself. The one exception is an invalid
// capacity: no Tree is allocated, and the returned Tree is nil.
func Deserialize(capacity int, source Source) (*Tree, error) {
	t, err := New(capacity)
	if err != nil {
		return nil, err
	}

	if err := deserializeInto(t, source); err != nil {
		t.Reset()
		return t, err
	}
	return t, nil
}

type reader struct {
	source  Source
	cap     uint16
	claimed []bool
}

func (r *reader) readIndex() (uint16, error) {
	if r.source.ReadU16 == nil {
		return 0, fmt.Errorf("%w: source has no ReadU16", ErrFatal)
	}
	v, err := r.source.ReadU16()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	if v != EMPTY && v >= r.cap {
		return 0, fmt.Errorf("%w: index %d >= capacity %d", ErrCorruptOutOfRange, v, r.cap)
	}
	return v, nil
}

func (r *reader) readU16() (uint16, error) {
	v, err := r.source.ReadU16()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return v, nil
}

func (r *reader) readU32() (uint32, error) {
	v, err := r.source.ReadU32()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return v, nil
}

func (r *reader) readU8() (uint8, error) {
	v, err := r.source.ReadU8()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrIo, err)
	}
	return v, nil
}

func (r *reader) claim(idx uint16) error {
	if r.claimed[idx] {
		return fmt.Errorf("%w: slot %d claimed by more than one list/bucket", ErrCorruptStructural, idx)
	}
	r.claimed[idx] = true
	return nil
}

func deserializeInto(t *Tree, source Source) error {
	if source.BeginDeserialize != nil {
		if err := source.BeginDeserialize(); err != nil {
			return fmt.Errorf("%w: begin deserialize: %v", ErrIo, err)
		}
	}
	if source.EndDeserialize != nil {
		defer source.EndDeserialize()
	}

	r := &reader{source: source, cap: uint16(t.Cap()), claimed: make([]bool, t.Cap())}

	if err := readFreeChain(t, r); err != nil {
		return err
	}
	if err := readErasedList(t, r); err != nil {
		return err
	}
	if err := readBadList(t, r); err != nil {
		return err
	}
	if err := readBucketHeads(t.dirEntry[:], r); err != nil {
		return err
	}
	n, err := readClassNodes(t, r, classDir)
	if err != nil {
		return err
	}
	t.dirCount = n

	if err := readBucketHeads(t.fileEntry[:], r); err != nil {
		return err
	}
	n, err = readClassNodes(t, r, classFile)
	if err != nil {
		return err
	}
	t.fileCount = n

	if err := readBucketHeads(t.dataEntry[:], r); err != nil {
		return err
	}
	n, err = readClassNodes(t, r, classData)
	if err != nil {
		return err
	}
	t.dataCount = n

	if err := verifyChains(t); err != nil {
		return err
	}
	if err := verifyParentReferences(t); err != nil {
		return err
	}

	return nil
}

func readFreeChain(t *Tree, r *reader) error {
	prev := EMPTY
	idx, err := r.readIndex()
	if err != nil {
		return err
	}
	head := EMPTY
	for idx != EMPTY {
		if err := r.claim(idx); err != nil {
			return err
		}
		n := t.arena.Get(idx)
		n.reset()
		if prev == EMPTY {
			head = idx
		} else {
			t.arena.Get(prev).Next = idx
		}
		prev = idx

		idx, err = r.readIndex()
		if err != nil {
			return err
		}
	}
	if prev != EMPTY {
		t.arena.Get(prev).Next = EMPTY
	}
	t.arena.free = head
	return nil
}

func readErasedList(t *Tree, r *reader) error {
	prev := EMPTY
	for {
		idx, err := r.readIndex()
		if err != nil {
			return err
		}
		if idx == EMPTY {
			break
		}
		if err := r.claim(idx); err != nil {
			return err
		}
		block, err := r.readU16()
		if err != nil {
			return err
		}
		nc, err := r.readU8()
		if err != nil {
			return err
		}

		n := t.arena.Get(idx)
		n.reset()
		n.Kind = KindErased
		n.Block = block
		n.NeedCheck = nc != 0
		n.Prev = prev
		n.Next = EMPTY
		if prev == EMPTY {
			t.erased = idx
		} else {
			t.arena.Get(prev).Next = idx
		}
		prev = idx
		t.erasedCount++
	}
	t.erasedTail = prev
	return nil
}

func readBadList(t *Tree, r *reader) error {
	prev := EMPTY
	for {
		idx, err := r.readIndex()
		if err != nil {
			return err
		}
		if idx == EMPTY {
			break
		}
		if err := r.claim(idx); err != nil {
			return err
		}
		block, err := r.readU16()
		if err != nil {
			return err
		}

		n := t.arena.Get(idx)
		n.reset()
		n.Kind = KindBad
		n.Block = block
		n.Prev = prev
		n.Next = EMPTY
		if prev == EMPTY {
			t.bad = idx
		} else {
			t.arena.Get(prev).Next = idx
		}
		prev = idx
		t.badCount++
	}
	t.badTail = prev
	return nil
}

func readBucketHeads(entries []uint16, r *reader) error {
	for i := range entries {
		v, err := r.readIndex()
		if err != nil {
			return err
		}
		entries[i] = v
	}
	return nil
}

func readClassNodes(t *Tree, r *reader, c class) (uint32, error) {
	count, err := r.readU16()
	if err != nil {
		return 0, err
	}
	if int(count) > t.Cap() {
		return 0, fmt.Errorf("%w: %s count %d exceeds capacity %d", ErrCorruptCountTooLarge, c, count, t.Cap())
	}

	var kind Kind
	switch c {
	case classDir:
		kind = KindDir
	case classFile:
		kind = KindFile
	default:
		kind = KindData
	}

	for i := uint16(0); i < count; i++ {
		idx, err := r.readIndex()
		if err != nil {
			return 0, err
		}
		if idx == EMPTY {
			return 0, fmt.Errorf("%w: %s record has EMPTY index", ErrCorruptOutOfRange, c)
		}
		if err := r.claim(idx); err != nil {
			return 0, err
		}
		hashNext, err := r.readIndex()
		if err != nil {
			return 0, err
		}
		hashPrev, err := r.readIndex()
		if err != nil {
			return 0, err
		}
		block, err := r.readU16()
		if err != nil {
			return 0, err
		}

		n := t.arena.Get(idx)
		n.reset()
		n.Kind = kind
		n.Block = block
		n.HashNext = hashNext
		n.HashPrev = hashPrev

		if c == classData {
			parent, err := r.readU16()
			if err != nil {
				return 0, err
			}
			serial, err := r.readU16()
			if err != nil {
				return 0, err
			}
			length, err := r.readU32()
			if err != nil {
				return 0, err
			}
			n.Parent, n.Serial, n.Len = parent, serial, length
		} else {
			checksum, err := r.readU16()
			if err != nil {
				return 0, err
			}
			parent, err := r.readU16()
			if err != nil {
				return 0, err
			}
			serial, err := r.readU16()
			if err != nil {
				return 0, err
			}
			n.Checksum, n.Parent, n.Serial = checksum, parent, serial
			if c == classFile {
				length, err := r.readU32()
				if err != nil {
					return 0, err
				}
				n.Len = length
			}
		}
	}

	return uint32(count), nil
}

// verifyChains is the second pass spec.md §4.4 requires: every bucket head
// must either be EMPTY or point at a node carrying HashPrev == EMPTY, and
// every link in the chain must agree with its neighbor's back-link.
// Bounded by capacity+1 steps so a cyclic, corrupted chain fails instead of
// looping forever.
func verifyChains(t *Tree) error {
	if err := verifyClassChain(t, t.dirEntry[:], classDir, KindDir); err != nil {
		return err
	}
	if err := verifyClassChain(t, t.fileEntry[:], classFile, KindFile); err != nil {
		return err
	}
	return verifyClassChain(t, t.dataEntry[:], classData, KindData)
}

func verifyClassChain(t *Tree, entries []uint16, c class, kind Kind) error {
	limit := t.Cap() + 1
	for _, head := range entries {
		if head == EMPTY {
			continue
		}
		prev := EMPTY
		idx := head
		steps := 0
		for idx != EMPTY {
			steps++
			if steps > limit {
				return fmt.Errorf("%w: %s bucket chain exceeds capacity, likely cyclic", ErrCorruptStructural, c)
			}
			n := t.arena.Get(idx)
			if n.Kind != kind {
				return fmt.Errorf("%w: %s bucket chain enters a slot of kind %s", ErrCorruptStructural, c, n.Kind)
			}
			if n.HashPrev != prev {
				return fmt.Errorf("%w: %s node %d has HashPrev %d, expected %d", ErrCorruptStructural, c, idx, n.HashPrev, prev)
			}
			prev = idx
			idx = n.HashNext
		}
	}
	return nil
}

// verifyParentReferences enforces invariant 5: a Data node's (parent,
// serial) must name a File or Dir that exists, with no exception -- the
// serializer rejects dangling references outright, rather than tolerating
// the "caller mid-transaction" case that only applies in memory, before a
// serialize ever happens. A File's parent must likewise resolve to an
// existing Dir, except the documented parent == 0 root sentinel.
func verifyParentReferences(t *Tree) error {
	var ferr error
	_ = t.walkFile(func(idx uint16, n *Node) error {
		if n.Parent == 0 {
			return nil
		}
		if _, _, err := t.LookupDirBySerial(n.Parent); err != nil {
			ferr = fmt.Errorf("%w: file %d has dangling parent serial %d", ErrCorruptStructural, idx, n.Parent)
			return ferr
		}
		return nil
	})
	if ferr != nil {
		return ferr
	}

	var derr error
	for _, head := range t.dataEntry {
		idx := head
		for idx != EMPTY {
			n := t.arena.Get(idx)
			if _, _, err := t.LookupDirBySerial(n.Parent); err != nil {
				if _, _, ferr2 := t.LookupFileBySerial(n.Parent); ferr2 != nil {
					derr = fmt.Errorf("%w: data %d has dangling parent serial %d", ErrCorruptStructural, idx, n.Parent)
					return derr
				}
			}
			idx = n.HashNext
		}
	}
	return nil
}

// walkFile mirrors walkErased/walkBad for the file bucket class, used only
// by parent-reference verification.
func (t *Tree) walkFile(cb func(idx uint16, n *Node) error) error {
	for _, head := range t.fileEntry {
		idx := head
		for idx != EMPTY {
			n := t.arena.Get(idx)
			next := n.HashNext
			if err := cb(idx, n); err != nil {
				return err
			}
			idx = next
		}
	}
	return nil
}
