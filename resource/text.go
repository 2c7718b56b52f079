package resource

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/spkg/bom"
	"golang.org/x/text/encoding/unicode"
)

var ErrNotFound = errors.New("resource not found")

// chunkSize is the size of each read while draining a stream.
const chunkSize = 1024

// Loader reads named resources through a [Locator].
type Loader struct {
	locator Locator
	logger  *slog.Logger
}

// NewLoader creates a Loader. logger may be nil.
func NewLoader(locator Locator, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Loader{
		locator: locator,
		logger:  logger.With("component", "resource"),
	}
}

// Open returns the resource's byte stream, which the caller must close.
// It fails with [ErrNotFound] when the locator has no such resource.
func (l *Loader) Open(name string) (io.ReadCloser, error) {
	rc, err := l.locator.Lookup(name)
	if err != nil {
		return nil, errors.Wrapf(err, "looking up resource %q", name)
	}

	if rc == nil {
		l.logger.Debug("resource not found", "name", name)
		return nil, errors.Wrapf(ErrNotFound, "resource %q", name)
	}

	l.logger.Debug("resource opened", "name", name)
	return rc, nil
}

// ReadAllAsText reads the whole resource as UTF-8 text.
func (l *Loader) ReadAllAsText(name string) (string, error) {
	rc, err := l.Open(name)
	if err != nil {
		return "", err
	}

	text, err := drainToText(rc, l.logger)
	if err != nil {
		return "", errors.Wrapf(err, "reading resource %q", name)
	}

	return text, nil
}

// DrainToText reads r until EOF as UTF-8 text and closes it.
// A nil r is treated as empty.
// Invalid UTF-8 is replaced with U+FFFD and a leading byte order mark is dropped.
func DrainToText(r io.ReadCloser) (string, error) {
	return drainToText(r, slog.New(slog.DiscardHandler))
}

func drainToText(rc io.ReadCloser, logger *slog.Logger) (text string, err error) {
	if rc == nil {
		return "", nil
	}

	defer func() {
		cerr := rc.Close()
		if cerr == nil {
			return
		}
		if err == nil {
			err = errors.Wrap(cerr, "closing stream")
			return
		}
		// Keep the read error.
		logger.Warn("failed to close stream", "error", cerr)
	}()

	r := unicode.UTF8.NewDecoder().Reader(bom.NewReader(rc))

	var sb strings.Builder
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		sb.Write(buf[:n])

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "reading stream")
		}
	}

	return sb.String(), nil
}
