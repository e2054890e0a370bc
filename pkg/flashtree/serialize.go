package flashtree

import "fmt"

// Sink is the set of entry points Serialize drives to externalize a Tree.
// BeginSerialize and EndSerialize are optional framing hooks -- a nil
// BeginSerialize or EndSerialize is treated as a no-op, preserving the
// optionality of the source protocol's BeginSerialization/EndSerialization.
// WriteU32/16/8 are mandatory; a nil one makes Serialize panic the first
// time it needs that width (WriteU8 only for erased records, WriteU32 only
// for file and data records), since that is a programmer error in the
// caller's wiring, not a runtime I/O failure.
type Sink struct {
	BeginSerialize func() error
	EndSerialize   func() error
	WriteU32       func(uint32) error
	WriteU16       func(uint16) error
	WriteU8        func(uint8) error
}

// Source is the read-side counterpart of Sink. EndDeserialize returns no
// error, matching the source protocol's void EndDeserialization -- framing
// cleanup on read is assumed infallible.
type Source struct {
	BeginDeserialize func() error
	EndDeserialize   func()
	ReadU32          func() (uint32, error)
	ReadU16          func() (uint16, error)
	ReadU8           func() (uint8, error)
}

func (s Sink) writeU16(v uint16) error {
	if err := s.WriteU16(v); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

func (s Sink) writeU32(v uint32) error {
	if err := s.WriteU32(v); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

func (s Sink) writeU8(v uint8) error {
	if err := s.WriteU8(v); err != nil {
		return fmt.Errorf("%w: %v", ErrIo, err)
	}
	return nil
}

func (s Sink) writeIndex(idx uint16) error {
	return s.writeU16(idx)
}

// Serialize walks t in the fixed order spec.md §4.4 defines -- free chain,
// erased list, bad list, then dir/file/data bucket heads each followed by
// their node records -- and emits it through sink. The caller must hold the
// owning device's lock for the duration of the call; Serialize never
// reorders what it finds; and it is invalid to mutate t concurrently.
func Serialize(t *Tree, sink Sink) error {
	if sink.BeginSerialize != nil {
		if err := sink.BeginSerialize(); err != nil {
			return fmt.Errorf("%w: begin serialize: %v", ErrIo, err)
		}
	}

	if err := serializeBody(t, sink); err != nil {
		return err
	}

	if sink.EndSerialize != nil {
		if err := sink.EndSerialize(); err != nil {
			return fmt.Errorf("%w: end serialize: %v", ErrIo, err)
		}
	}
	return nil
}

func serializeBody(t *Tree, sink Sink) error {
	// 1. Free-entry chain.
	for _, idx := range t.arena.freeChain() {
		if err := sink.writeIndex(idx); err != nil {
			return err
		}
	}
	if err := sink.writeIndex(EMPTY); err != nil {
		return err
	}

	// 2. Erased blocks.
	if err := t.walkErased(func(idx uint16, n *Node) error {
		if err := sink.writeIndex(idx); err != nil {
			return err
		}
		if err := sink.writeU16(n.Block); err != nil {
			return err
		}
		nc := uint8(0)
		if n.NeedCheck {
			nc = 1
		}
		return sink.writeU8(nc)
	}); err != nil {
		return err
	}
	if err := sink.writeIndex(EMPTY); err != nil {
		return err
	}

	// 3. Bad blocks.
	if err := t.walkBad(func(idx uint16, n *Node) error {
		if err := sink.writeIndex(idx); err != nil {
			return err
		}
		return sink.writeU16(n.Block)
	}); err != nil {
		return err
	}
	if err := sink.writeIndex(EMPTY); err != nil {
		return err
	}

	// 4-5. Dir bucket heads, then count + records.
	for _, h := range t.dirEntry {
		if err := sink.writeU16(h); err != nil {
			return err
		}
	}
	if err := sink.writeU16(uint16(t.dirCount)); err != nil {
		return err
	}
	written := uint32(0)
	for _, head := range t.dirEntry {
		for idx := head; idx != EMPTY; {
			n := t.arena.Get(idx)
			next := n.HashNext
			if err := writeDirRecord(sink, idx, n); err != nil {
				return err
			}
			written++
			idx = next
		}
	}
	if written != t.dirCount {
		return fmt.Errorf("%w: dir bucket walk produced %d records, counter says %d", ErrFatal, written, t.dirCount)
	}

	// 6-7. File bucket heads, then count + records.
	for _, h := range t.fileEntry {
		if err := sink.writeU16(h); err != nil {
			return err
		}
	}
	if err := sink.writeU16(uint16(t.fileCount)); err != nil {
		return err
	}
	written = 0
	for _, head := range t.fileEntry {
		for idx := head; idx != EMPTY; {
			n := t.arena.Get(idx)
			next := n.HashNext
			if err := writeFileRecord(sink, idx, n); err != nil {
				return err
			}
			written++
			idx = next
		}
	}
	if written != t.fileCount {
		return fmt.Errorf("%w: file bucket walk produced %d records, counter says %d", ErrFatal, written, t.fileCount)
	}

	// 8-9. Data bucket heads, then count + records.
	for _, h := range t.dataEntry {
		if err := sink.writeU16(h); err != nil {
			return err
		}
	}
	if err := sink.writeU16(uint16(t.dataCount)); err != nil {
		return err
	}
	written = 0
	for _, head := range t.dataEntry {
		for idx := head; idx != EMPTY; {
			n := t.arena.Get(idx)
			next := n.HashNext
			if err := writeDataRecord(sink, idx, n); err != nil {
				return err
			}
			written++
			idx = next
		}
	}
	if written != t.dataCount {
		return fmt.Errorf("%w: data bucket walk produced %d records, counter says %d", ErrFatal, written, t.dataCount)
	}

	return nil
}

func writeDirRecord(sink Sink, idx uint16, n *Node) error {
	for _, v := range [...]uint16{idx, n.HashNext, n.HashPrev, n.Block, n.Checksum, n.Parent, n.Serial} {
		if err := sink.writeU16(v); err != nil {
			return err
		}
	}
	return nil
}

func writeFileRecord(sink Sink, idx uint16, n *Node) error {
	if err := writeDirRecord(sink, idx, n); err != nil {
		return err
	}
	return sink.writeU32(n.Len)
}

func writeDataRecord(sink Sink, idx uint16, n *Node) error {
	for _, v := range [...]uint16{idx, n.HashNext, n.HashPrev, n.Block, n.Parent, n.Serial} {
		if err := sink.writeU16(v); err != nil {
			return err
		}
	}
	return sink.writeU32(n.Len)
}
