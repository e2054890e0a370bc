package flashdev

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/vorteil/flashtree/pkg/flashtree"
)

// FileSink wraps a writer with gzip compression and buffered, big-endian
// primitive writes, turning any io.Writer into a flashtree.Sink. Persisted
// tree snapshots are small but written often enough (one per unmount, one
// per checkpoint) that compressing them costs little and saves a lot on
// constrained storage -- the same tradeoff the teacher's archive writer
// makes for its own snapshots.
type FileSink struct {
	gz *gzip.Writer
	bw *bufio.Writer
}

// NewFileSink wraps w. The caller owns w and must Close it after Sink's
// Close (via EndSerialize) returns.
func NewFileSink(w io.Writer) *FileSink {
	gz := gzip.NewWriter(w)
	return &FileSink{gz: gz, bw: bufio.NewWriter(gz)}
}

// Sink returns the flashtree.Sink view of fs, ready to pass to
// flashtree.Serialize or Device.Persist.
func (fs *FileSink) Sink() flashtree.Sink {
	return flashtree.Sink{
		EndSerialize: fs.close,
		WriteU32: func(v uint32) error {
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], v)
			_, err := fs.bw.Write(b[:])
			return err
		},
		WriteU16: func(v uint16) error {
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], v)
			_, err := fs.bw.Write(b[:])
			return err
		},
		WriteU8: func(v uint8) error {
			return fs.bw.WriteByte(v)
		},
	}
}

func (fs *FileSink) close() error {
	if err := fs.bw.Flush(); err != nil {
		return err
	}
	return fs.gz.Close()
}

// FileSource is the read-side counterpart of FileSink.
type FileSource struct {
	gz *gzip.Reader
	br *bufio.Reader
}

// NewFileSource wraps r, which must contain a stream previously written by
// a FileSink. The caller owns r.
func NewFileSource(r io.Reader) (*FileSource, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &FileSource{gz: gz, br: bufio.NewReader(gz)}, nil
}

// Source returns the flashtree.Source view of fs, ready to pass to
// flashtree.Deserialize or Device.Mount.
func (fs *FileSource) Source() flashtree.Source {
	return flashtree.Source{
		EndDeserialize: func() { _ = fs.gz.Close() },
		ReadU32: func() (uint32, error) {
			var b [4]byte
			if _, err := io.ReadFull(fs.br, b[:]); err != nil {
				return 0, err
			}
			return binary.BigEndian.Uint32(b[:]), nil
		},
		ReadU16: func() (uint16, error) {
			var b [2]byte
			if _, err := io.ReadFull(fs.br, b[:]); err != nil {
				return 0, err
			}
			return binary.BigEndian.Uint16(b[:]), nil
		},
		ReadU8: func() (uint8, error) {
			return fs.br.ReadByte()
		},
	}
}
