package flashtree

// Erased and bad lists are doubly linked through Node.Prev/Next, append-only
// at the tail for O(1) enqueue of newly erased or newly bad blocks, with
// pop-from-head for erased blocks so the oldest erase wins reuse first.

func (t *Tree) appendErased(idx uint16) {
	n := t.arena.Get(idx)
	n.Prev = t.erasedTail
	n.Next = EMPTY
	if t.erasedTail != EMPTY {
		t.arena.Get(t.erasedTail).Next = idx
	} else {
		t.erased = idx
	}
	t.erasedTail = idx
	t.erasedCount++
}

func (t *Tree) unlinkErased(idx uint16) {
	n := t.arena.Get(idx)
	if n.Prev != EMPTY {
		t.arena.Get(n.Prev).Next = n.Next
	} else {
		t.erased = n.Next
	}
	if n.Next != EMPTY {
		t.arena.Get(n.Next).Prev = n.Prev
	} else {
		t.erasedTail = n.Prev
	}
	n.Prev, n.Next = EMPTY, EMPTY
	t.erasedCount--
}

func (t *Tree) appendBad(idx uint16) {
	n := t.arena.Get(idx)
	n.Prev = t.badTail
	n.Next = EMPTY
	if t.badTail != EMPTY {
		t.arena.Get(t.badTail).Next = idx
	} else {
		t.bad = idx
	}
	t.badTail = idx
	t.badCount++
}

// walkErased and walkBad call cb for every index currently on the
// respective list, head to tail. Returning a non-nil error from cb stops
// the walk and the error propagates.
func (t *Tree) walkErased(cb func(idx uint16, n *Node) error) error {
	for cur := t.erased; cur != EMPTY; {
		n := t.arena.Get(cur)
		next := n.Next
		if err := cb(cur, n); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

func (t *Tree) walkBad(cb func(idx uint16, n *Node) error) error {
	for cur := t.bad; cur != EMPTY; {
		n := t.arena.Get(cur)
		next := n.Next
		if err := cb(cur, n); err != nil {
			return err
		}
		cur = next
	}
	return nil
}
