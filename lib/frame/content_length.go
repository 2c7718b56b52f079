package frame

import (
	"io"
	"strconv"
	"strings"

	iolib "redmine-io/lib/io"

	"github.com/pkg/errors"
)

var ErrInvalidContentLength = errors.New("invalid content length")

// NewContentLengthReader bounds body to the length declared by a Content-Length field value.
// Closing the returned reader closes body.
func NewContentLengthReader(body io.ReadCloser, contentLength string) (*iolib.BoundedReader, error) {
	n, err := ParseContentLength(contentLength)
	if err != nil {
		return nil, err
	}

	br, err := iolib.NewBoundedReader(iolib.AdaptSource(body), n)
	if err != nil {
		return nil, errors.Wrap(err, "bounding body")
	}

	return br, nil
}

// ParseContentLength parses a Content-Length field value.
// Only plain decimal digits are accepted, surrounded by optional whitespace.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-8.6
func ParseContentLength(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" || strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, errors.Wrapf(ErrInvalidContentLength, "%q", v)
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidContentLength, "%q: %s", v, err)
	}

	return n, nil
}
