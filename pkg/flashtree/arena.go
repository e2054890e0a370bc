package flashtree

import "fmt"

// Arena is a contiguous, fixed-capacity pool of Node slots. Capacity equals
// the owning partition's block count, since at most one node exists per
// live block. A node's slot index is its identity: it never moves, and
// doubles as the index Serialize writes to the stream.
type Arena struct {
	nodes []Node
	free  uint16 // head of the free list, EMPTY if none
}

// NewArena allocates an arena of the given capacity with every slot chained
// into the free list in index order, matching Reset's empty-device state.
// capacity must be at most 0xFFFF, so that every slot index (0..capacity-1)
// stays distinct from the EMPTY sentinel.
func NewArena(capacity int) (*Arena, error) {
	if capacity < 0 || capacity > int(EMPTY) {
		return nil, fmt.Errorf("%w: arena capacity %d out of range", ErrFatal, capacity)
	}
	a := &Arena{nodes: make([]Node, capacity)}
	a.reset()
	return a, nil
}

// Cap returns the arena's fixed capacity.
func (a *Arena) Cap() int {
	return len(a.nodes)
}

// Valid reports whether idx names a real slot (EMPTY is never valid here;
// callers check for EMPTY separately since it means "no node", not "slot 0").
func (a *Arena) Valid(idx uint16) bool {
	return idx != EMPTY && int(idx) < len(a.nodes)
}

// Get returns the node at idx. idx must satisfy Valid; callers that read
// indices from an untrusted stream must check bounds themselves first (see
// Deserialize) so that a corrupt index never reaches Get.
func (a *Arena) Get(idx uint16) *Node {
	return &a.nodes[idx]
}

// Alloc pops a slot off the free list. Returns ErrExhausted if none remain.
func (a *Arena) Alloc() (uint16, error) {
	if a.free == EMPTY {
		return EMPTY, ErrExhausted
	}
	idx := a.free
	n := &a.nodes[idx]
	a.free = n.Next
	*n = Node{Kind: KindFree, Block: NoBlock, HashPrev: EMPTY, HashNext: EMPTY, Prev: EMPTY, Next: EMPTY}
	return idx, nil
}

// Free pushes idx back onto the free list, wiping its contents.
func (a *Arena) Free(idx uint16) {
	n := &a.nodes[idx]
	n.reset()
	n.Next = a.free
	a.free = idx
}

func (a *Arena) reset() {
	n := len(a.nodes)
	for i := 0; i < n; i++ {
		a.nodes[i].reset()
		if i+1 < n {
			a.nodes[i].Next = uint16(i + 1)
		} else {
			a.nodes[i].Next = EMPTY
		}
	}
	if n == 0 {
		a.free = EMPTY
	} else {
		a.free = 0
	}
}

// freeChain returns the free list as a slice of indices, head first. Used
// only by the serializer and by tests asserting §8.2's reset idempotence.
func (a *Arena) freeChain() []uint16 {
	var out []uint16
	for cur := a.free; cur != EMPTY; cur = a.nodes[cur].Next {
		out = append(out, cur)
	}
	return out
}
