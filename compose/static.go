package compose

import (
	"fmt"
	"image"
	"io/fs"
	"sync"

	"github.com/eringen/splatcard/fetch"
)

// Names of the static images every deployment ships.
const (
	StaticBackground = "background"
	StaticPanel      = "rounded"
	StaticTimeHeader = "time-header"
)

// Static loads bundled images (backgrounds and mode icons) by name.
type Static interface {
	Image(name string) (image.Image, error)
}

// FSStatic reads "<name>.png" from a filesystem and keeps decoded images
// in memory. Callers must not modify returned images.
type FSStatic struct {
	fsys fs.FS

	mu    sync.RWMutex
	cache map[string]image.Image
}

// NewFSStatic returns a Static backed by fsys.
func NewFSStatic(fsys fs.FS) *FSStatic {
	return &FSStatic{fsys: fsys, cache: make(map[string]image.Image)}
}

func (s *FSStatic) Image(name string) (image.Image, error) {
	s.mu.RLock()
	img, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return img, nil
	}

	data, err := fs.ReadFile(s.fsys, name+".png")
	if err != nil {
		return nil, fmt.Errorf("static image %q: %w", name, err)
	}
	img, err = fetch.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("static image %q: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = img
	s.mu.Unlock()
	return img, nil
}
