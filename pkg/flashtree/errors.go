package flashtree

import "errors"

// Sentinel errors, wrapped with fmt.Errorf("%w: ...", ...) for context
// throughout this package. Callers distinguish failure classes with
// errors.Is, e.g. to tell "evict and retry" (ErrExhausted) from "rescan the
// partition" (any ErrCorrupt* or ErrFatal) from "retry the I/O" (ErrIo).
var (
	// ErrExhausted is returned by Arena.Alloc when the free list is empty.
	ErrExhausted = errors.New("flashtree: arena exhausted")

	// ErrNotFound is returned by a lookup-by-serial that found no match.
	ErrNotFound = errors.New("flashtree: serial not found")

	// ErrIo wraps a negative return from the injected Sink/Source.
	ErrIo = errors.New("flashtree: sink/source io error")

	// ErrCorruptOutOfRange: a deserialized index names a slot >= capacity.
	ErrCorruptOutOfRange = errors.New("flashtree: corrupt stream: index out of range")

	// ErrCorruptUnaligned is the legacy "not a whole slot" error kind. No
	// code path in this package returns it: the wire format carries plain
	// slot indices, which always name a whole slot.
	ErrCorruptUnaligned = errors.New("flashtree: corrupt stream: unaligned index")

	// ErrCorruptCountTooLarge: a class count exceeds arena capacity.
	ErrCorruptCountTooLarge = errors.New("flashtree: corrupt stream: count exceeds capacity")

	// ErrCorruptStructural: a hash chain back-pointer doesn't match its
	// forward pointer, or a slot is claimed by more than one list/bucket.
	ErrCorruptStructural = errors.New("flashtree: corrupt stream: structural mismatch")

	// ErrFatal marks an internal invariant violation -- equivalent to the
	// C source's assert(). Also returned for invalid caller arguments: an
	// out-of-range arena capacity, removing a slot as the wrong kind, or
	// comparing two equal Seq values.
	ErrFatal = errors.New("flashtree: internal invariant violated")
)

// IsCorrupt reports whether err is any of the Corrupt subkinds.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptOutOfRange) ||
		errors.Is(err, ErrCorruptUnaligned) ||
		errors.Is(err, ErrCorruptCountTooLarge) ||
		errors.Is(err, ErrCorruptStructural)
}
