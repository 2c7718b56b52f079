package iolib

import (
	"io"

	"github.com/pkg/errors"
)

var (
	ErrNegativeLimit    = errors.New("limit can't be negative")
	ErrStreamTooLong    = errors.New("underlying stream is longer than the limit")
	ErrInvalidSource    = errors.New("underlying stream skipped an invalid amount")
	ErrMarkNotSupported = errors.New("mark/reset not supported")
)

// BoundedReader reads exactly N bytes from the underlying source.
//
// Unlike [io.LimitedReader], it fails when the source ends before N bytes
// (an error matching [io.ErrUnexpectedEOF]) and when the source still has data
// once N bytes were read ([ErrStreamTooLong]).
// The latter is detected as soon as the budget reaches zero
// by reading one more byte from the source, which is discarded.
//
// BoundedReader owns the source: closing it closes the source.
// It is not safe for concurrent use.
type BoundedReader struct {
	src       ByteSource
	remaining int64 // never negative.
}

var (
	_ io.ReadCloser = (*BoundedReader)(nil)
	_ ByteSource    = (*BoundedReader)(nil)
)

// NewBoundedReader wraps src so that exactly limit bytes can be read.
// A zero limit is checked against src right away.
// src is not closed when an error is returned.
func NewBoundedReader(src ByteSource, limit int64) (*BoundedReader, error) {
	if limit < 0 {
		return nil, errors.Wrapf(ErrNegativeLimit, "limit %d", limit)
	}

	br := &BoundedReader{src: src, remaining: limit}
	if err := br.ensureEOF(); err != nil {
		return nil, err
	}

	return br, nil
}

// Remaining returns how many bytes are left to be read.
func (br *BoundedReader) Remaining() int64 { return br.remaining }

// ReadByte reads a single byte.
// When the byte exhausts the budget and the source turns out to be longer,
// the byte is returned along with [ErrStreamTooLong].
func (br *BoundedReader) ReadByte() (byte, error) {
	if br.remaining == 0 {
		return 0, io.EOF
	}

	c, err := br.src.ReadByte()
	if err != nil {
		if err == io.EOF {
			return 0, br.unexpectedEOF()
		}
		return 0, errors.Wrap(err, "reading source")
	}

	br.remaining--

	return c, br.ensureEOF()
}

// Read reads at most min(len(p), remaining) bytes.
// Read never asks the source for more than the remaining budget.
func (br *BoundedReader) Read(p []byte) (n int, err error) {
	if br.remaining == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	if int64(len(p)) > br.remaining {
		p = p[:br.remaining]
	}

	n, err = br.src.Read(p)
	br.remaining -= int64(n)

	if err != nil {
		if err != io.EOF {
			return n, errors.Wrap(err, "reading source")
		}
		// Source may return EOF along with the last bytes.
		if br.remaining > 0 {
			return n, br.unexpectedEOF()
		}
	}

	if err := br.ensureEOF(); err != nil {
		return n, err
	}

	return n, nil
}

// Skip discards at most min(n, remaining) bytes from the source.
func (br *BoundedReader) Skip(n int64) (int64, error) {
	if br.remaining == 0 || n <= 0 {
		return 0, nil
	}

	if n > br.remaining {
		n = br.remaining
	}

	skipped, err := br.src.Skip(n)
	if skipped < 0 || skipped > n {
		return 0, errors.Wrapf(ErrInvalidSource, "skipped %d of %d bytes", skipped, n)
	}

	br.remaining -= skipped

	if err != nil {
		return skipped, errors.Wrap(err, "skipping source")
	}

	return skipped, br.ensureEOF()
}

// Available never reports more than the remaining budget.
func (br *BoundedReader) Available() int {
	avail := int64(br.src.Available())
	if avail < 0 {
		return 0
	}
	if avail > br.remaining {
		return int(br.remaining)
	}
	return int(avail)
}

// Mark does nothing; see [BoundedReader.MarkSupported].
func (br *BoundedReader) Mark(readLimit int) {}

func (br *BoundedReader) Reset() error { return ErrMarkNotSupported }

func (br *BoundedReader) MarkSupported() bool { return false }

func (br *BoundedReader) Close() error {
	return br.src.Close()
}

func (br *BoundedReader) unexpectedEOF() error {
	return errors.Wrapf(io.ErrUnexpectedEOF,
		"expected at least %d more bytes", br.remaining)
}

// ensureEOF checks that the source ends where the budget does.
// It must be called whenever remaining changes.
func (br *BoundedReader) ensureEOF() error {
	if br.remaining > 0 {
		return nil
	}

	_, err := br.src.ReadByte()
	switch {
	case err == nil:
		return ErrStreamTooLong
	case err == io.EOF:
		return nil
	default:
		return errors.Wrap(err, "probing end of source")
	}
}
