package flashtree

// class identifies which of the three hash-bucketed node populations an
// operation targets.
type class int

const (
	classDir class = iota
	classFile
	classData
)

func (c class) String() string {
	switch c {
	case classDir:
		return "dir"
	case classFile:
		return "file"
	case classData:
		return "data"
	default:
		return "unknown"
	}
}

func hash(key uint16, width int) int {
	return int(key) % width
}

// entries returns the live backing slice for a bucket class's head array.
// Mutating the returned slice mutates the tree.
func (t *Tree) entries(c class) []uint16 {
	switch c {
	case classDir:
		return t.dirEntry[:]
	case classFile:
		return t.fileEntry[:]
	default:
		return t.dataEntry[:]
	}
}

// insertBucket splices the node at idx onto the head of its class's hash
// chain for key.
func (t *Tree) insertBucket(c class, idx uint16, key uint16) {
	entries := t.entries(c)
	h := hash(key, len(entries))
	head := entries[h]

	n := t.arena.Get(idx)
	n.HashPrev = EMPTY
	n.HashNext = head
	if head != EMPTY {
		t.arena.Get(head).HashPrev = idx
	}
	entries[h] = idx
}

// removeBucket unlinks the node at idx from its class's hash chain for key.
func (t *Tree) removeBucket(c class, idx uint16, key uint16) {
	entries := t.entries(c)
	h := hash(key, len(entries))

	n := t.arena.Get(idx)
	if n.HashPrev == EMPTY {
		entries[h] = n.HashNext
	} else {
		t.arena.Get(n.HashPrev).HashNext = n.HashNext
	}
	if n.HashNext != EMPTY {
		t.arena.Get(n.HashNext).HashPrev = n.HashPrev
	}
	n.HashPrev, n.HashNext = EMPTY, EMPTY
}

// lookupBySerial walks the chain for serial in class c, returning the first
// node whose Serial field matches.
func (t *Tree) lookupBySerial(c class, serial uint16) (uint16, bool) {
	entries := t.entries(c)
	h := hash(serial, len(entries))
	idx := entries[h]
	for idx != EMPTY {
		n := t.arena.Get(idx)
		if n.Serial == serial {
			return idx, true
		}
		idx = n.HashNext
	}
	return EMPTY, false
}

// scanChildren walks the data bucket chain for parent, invoking cb for
// every data node whose Parent matches. cb may be called zero times. It is
// safe for cb to remove the node it was just handed (the next link is read
// before cb runs).
func (t *Tree) scanChildren(parent uint16, cb func(idx uint16, n *Node) error) error {
	entries := t.entries(classData)
	h := hash(parent, len(entries))
	idx := entries[h]
	for idx != EMPTY {
		n := t.arena.Get(idx)
		next := n.HashNext
		if n.Parent == parent {
			if err := cb(idx, n); err != nil {
				return err
			}
		}
		idx = next
	}
	return nil
}
