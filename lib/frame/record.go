package frame

import (
	"bufio"
	"io"

	iolib "redmine-io/lib/io"

	"github.com/pkg/errors"
)

// ReaderOptions configures record framing.
// Records are a big-endian length header followed by the payload.
type ReaderOptions struct {
	// HeaderSize is the width of the length header in bytes, from 1 to 4.
	HeaderSize uint

	// MaxRecordLength rejects records with larger declared length.
	// Zero means no limit.
	MaxRecordLength uint32
}

// DefaultReaderOptions uses 24-bit headers, as TLS handshake messages do.
var DefaultReaderOptions = ReaderOptions{
	HeaderSize:      3,
	MaxRecordLength: 0,
}

var (
	ErrInvalidHeaderSize = errors.New("header size must be between 1 and 4")
	ErrRecordTooLong     = errors.New("record length exceeds limit")
	ErrRecordNotConsumed = errors.New("previous record is not fully consumed")
)

func (opts ReaderOptions) validate() error {
	if opts.HeaderSize < 1 || opts.HeaderSize > 4 {
		return errors.Wrapf(ErrInvalidHeaderSize, "got %d", opts.HeaderSize)
	}
	return nil
}

// RecordReader splits a stream of length-prefixed records.
// Each record payload is handed out as a [iolib.BoundedReader],
// which fails if the stream ends before the declared length.
type RecordReader struct {
	br   *bufio.Reader
	c    io.Closer // nil if underlying reader is not closable.
	opts ReaderOptions

	header  []byte
	current *iolib.BoundedReader
}

func NewRecordReader(r io.Reader, opts ReaderOptions) (*RecordReader, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	rr := &RecordReader{
		br:     bufio.NewReader(r),
		opts:   opts,
		header: make([]byte, opts.HeaderSize),
	}
	if c, ok := r.(io.Closer); ok {
		rr.c = c
	}

	return rr, nil
}

// Next returns the payload of the next record.
// The previous payload must be read to the end or discarded first.
// Next returns [io.EOF] when the stream ends between records.
func (rr *RecordReader) Next() (*iolib.BoundedReader, error) {
	if rr.current != nil && rr.current.Remaining() > 0 {
		return nil, ErrRecordNotConsumed
	}
	rr.current = nil

	if _, err := io.ReadFull(rr.br, rr.header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "reading record header")
	}

	length := decodeLength(rr.header)
	if rr.opts.MaxRecordLength > 0 && length > rr.opts.MaxRecordLength {
		return nil, errors.Wrapf(ErrRecordTooLong, "%d > %d", length, rr.opts.MaxRecordLength)
	}

	// The window ends where the record does,
	// so the end-of-record probe never touches the next header.
	window := io.LimitReader(rr.br, int64(length))

	payload, err := iolib.NewBoundedReader(iolib.AdaptSource(window), int64(length))
	if err != nil {
		return nil, errors.Wrap(err, "bounding record")
	}

	rr.current = payload
	return payload, nil
}

// Discard skips the rest of the current record.
func (rr *RecordReader) Discard() error {
	if rr.current == nil {
		return nil
	}

	for rr.current.Remaining() > 0 {
		n, err := rr.current.Skip(rr.current.Remaining())
		if err != nil {
			return errors.Wrap(err, "skipping record")
		}
		if n == 0 {
			return errors.Wrapf(io.ErrUnexpectedEOF,
				"%d bytes of record missing", rr.current.Remaining())
		}
	}

	return nil
}

// Close closes the underlying reader.
func (rr *RecordReader) Close() error {
	if rr.c == nil {
		return nil
	}
	return rr.c.Close()
}

func decodeLength(header []byte) uint32 {
	var length uint32
	for _, b := range header {
		length = length<<8 | uint32(b)
	}
	return length
}

// RecordWriter writes length-prefixed records.
type RecordWriter struct {
	w          io.Writer
	headerSize uint
}

func NewRecordWriter(w io.Writer, headerSize uint) (*RecordWriter, error) {
	if err := (ReaderOptions{HeaderSize: headerSize}).validate(); err != nil {
		return nil, err
	}
	return &RecordWriter{w: w, headerSize: headerSize}, nil
}

// WriteRecord writes p as a single record.
func (rw *RecordWriter) WriteRecord(p []byte) error {
	if limit := uint64(1)<<(8*rw.headerSize) - 1; uint64(len(p)) > limit {
		return errors.Wrapf(ErrRecordTooLong, "%d > %d", len(p), limit)
	}

	header := make([]byte, rw.headerSize)
	for i, l := len(header)-1, len(p); i >= 0; i-- {
		header[i] = byte(l)
		l >>= 8
	}

	if _, err := rw.w.Write(append(header, p...)); err != nil {
		return errors.Wrap(err, "writing record")
	}

	return nil
}
