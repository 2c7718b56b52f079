package iolib

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// ByteSource is a readable byte stream that can also
// read a single byte, skip ahead and report buffered bytes.
type ByteSource interface {
	io.Reader
	io.ByteReader
	io.Closer

	// Skip discards up to n bytes and returns how many were discarded.
	Skip(n int64) (int64, error)
	// Available returns the number of bytes that can be read without blocking.
	Available() int
}

type bufferedSource struct {
	br *bufio.Reader
	c  io.Closer // nil if underlying reader is not closable.
}

var _ ByteSource = (*bufferedSource)(nil)

// AdaptSource turns r into a [ByteSource].
// If r already is one it is returned unchanged,
// otherwise r is buffered and closed along with the returned source.
func AdaptSource(r io.Reader) ByteSource {
	if src, ok := r.(ByteSource); ok {
		return src
	}

	bs := &bufferedSource{br: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		bs.c = c
	}
	return bs
}

func (bs *bufferedSource) Read(p []byte) (n int, err error) {
	return bs.br.Read(p)
}

func (bs *bufferedSource) ReadByte() (byte, error) {
	return bs.br.ReadByte()
}

func (bs *bufferedSource) Skip(n int64) (int64, error) {
	var skipped int64
	for skipped < n {
		// Discard takes int, so large skips are split.
		chunk := n - skipped
		if chunk > int64(bs.br.Size()) {
			chunk = int64(bs.br.Size())
		}

		d, err := bs.br.Discard(int(chunk))
		skipped += int64(d)
		if err != nil {
			if err == io.EOF {
				// Skipping past the end is not an error.
				return skipped, nil
			}
			return skipped, errors.Wrap(err, "discarding bytes")
		}
	}
	return skipped, nil
}

func (bs *bufferedSource) Available() int {
	return bs.br.Buffered()
}

func (bs *bufferedSource) Close() error {
	if bs.c == nil {
		return nil
	}
	return bs.c.Close()
}
