// Package resource resolves named resources and reads them as text.
package resource

import (
	"bytes"
	"io"
	"io/fs"
	"maps"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// Locator resolves a resource name into a byte stream.
// A nil stream with a nil error means the resource does not exist.
// The caller owns the returned stream.
type Locator interface {
	Lookup(name string) (io.ReadCloser, error)
}

type LocatorFunc func(name string) (io.ReadCloser, error)

var _ Locator = LocatorFunc(nil)

func (f LocatorFunc) Lookup(name string) (io.ReadCloser, error) { return f(name) }

// FSLocator looks resources up in a file system,
// e.g. an [embed.FS] holding bundled fixtures.
type FSLocator struct{ FS fs.FS }

var _ Locator = FSLocator{}

func (l FSLocator) Lookup(name string) (io.ReadCloser, error) {
	if !fs.ValidPath(name) {
		return nil, nil
	}

	f, err := l.FS.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "opening file")
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "stat file")
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil
	}

	return f, nil
}

// DirLocator roots an [FSLocator] at dir. A leading ~ is expanded to the home directory.
func DirLocator(dir string) (FSLocator, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return FSLocator{}, errors.Wrap(err, "expanding directory")
	}

	return FSLocator{FS: os.DirFS(expanded)}, nil
}

type mapLocator struct {
	set map[string][]byte
}

var _ Locator = (*mapLocator)(nil)

// NewMapLocator serves resources from memory. set is copied.
func NewMapLocator(set map[string][]byte) *mapLocator {
	if set == nil {
		set = make(map[string][]byte)
	}
	return &mapLocator{set: maps.Clone(set)}
}

func (m *mapLocator) Lookup(name string) (io.ReadCloser, error) {
	b, ok := m.set[name]
	if !ok {
		return nil, nil
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *mapLocator) Set(name string, content []byte) { m.set[name] = content }

func (m *mapLocator) Del(name string) { delete(m.set, name) }
