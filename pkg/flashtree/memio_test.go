package flashtree

import (
	"encoding/binary"
	"errors"
)

var errShortRead = errors.New("memio: short read")

// memBuf backs an in-memory Sink/Source pair for round-trip and corruption
// tests, matching the wire layout a real Sink/Source pair would produce
// without pulling in gzip or a file.
type memBuf struct {
	b   []byte
	pos int
}

func newMemSink() (*memBuf, Sink) {
	m := &memBuf{}
	return m, Sink{
		WriteU32: func(v uint32) error {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], v)
			m.b = append(m.b, b[:]...)
			return nil
		},
		WriteU16: func(v uint16) error {
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], v)
			m.b = append(m.b, b[:]...)
			return nil
		},
		WriteU8: func(v uint8) error {
			m.b = append(m.b, v)
			return nil
		},
	}
}

func (m *memBuf) source() Source {
	return Source{
		ReadU32: func() (uint32, error) {
			if m.pos+4 > len(m.b) {
				return 0, errShortRead
			}
			v := binary.BigEndian.Uint32(m.b[m.pos:])
			m.pos += 4
			return v, nil
		},
		ReadU16: func() (uint16, error) {
			if m.pos+2 > len(m.b) {
				return 0, errShortRead
			}
			v := binary.BigEndian.Uint16(m.b[m.pos:])
			m.pos += 2
			return v, nil
		},
		ReadU8: func() (uint8, error) {
			if m.pos+1 > len(m.b) {
				return 0, errShortRead
			}
			v := m.b[m.pos]
			m.pos++
			return v, nil
		},
	}
}

func (m *memBuf) truncate(n int) {
	if n < len(m.b) {
		m.b = m.b[:n]
	}
}

// queueSource lets a test hand-author an exact sequence of protocol values
// without depending on the byte layout Serialize happens to produce --
// useful for constructing streams that are corrupt in one specific,
// targeted way while the surrounding calls stay well-formed.
type queueSource struct {
	u16s []uint16
	u32s []uint32
	u8s  []uint8
}

func (q *queueSource) source() Source {
	return Source{
		ReadU16: func() (uint16, error) {
			if len(q.u16s) == 0 {
				return 0, errShortRead
			}
			v := q.u16s[0]
			q.u16s = q.u16s[1:]
			return v, nil
		},
		ReadU32: func() (uint32, error) {
			if len(q.u32s) == 0 {
				return 0, errShortRead
			}
			v := q.u32s[0]
			q.u32s = q.u32s[1:]
			return v, nil
		},
		ReadU8: func() (uint8, error) {
			if len(q.u8s) == 0 {
				return 0, errShortRead
			}
			v := q.u8s[0]
			q.u8s = q.u8s[1:]
			return v, nil
		},
	}
}
