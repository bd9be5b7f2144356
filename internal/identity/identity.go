// Package identity provides the stable instance identifier that servers
// pass to the helper process.
package identity

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rogpeppe/go-internal/lockedfile"

	"github.com/ooni/minipt/internal/model"
)

// ErrIdentity indicates we could not load or create the instance id.
var ErrIdentity = errors.New("identity: cannot obtain instance id")

// FileProvider is a [model.InstanceIDProvider] that persists a random
// UUID to a file, so that the id survives restarts. Several processes
// may share the same file: we hold a file lock while reading and writing.
//
// The zero value is invalid; use [NewFileProvider].
type FileProvider struct {
	path string

	mu     sync.Mutex
	cached string
}

var _ model.InstanceIDProvider = &FileProvider{}

// NewFileProvider creates a [FileProvider] storing the id at path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Path returns the path of the backing file.
func (p *FileProvider) Path() string {
	return p.path
}

// InstanceID implements model.InstanceIDProvider.
func (p *FileProvider) InstanceID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != "" {
		return p.cached, nil
	}
	id, err := p.loadOrCreate()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrIdentity, err)
	}
	p.cached = id
	return id, nil
}

func (p *FileProvider) loadOrCreate() (string, error) {
	if err := os.MkdirAll(filepath.Dir(p.path), 0700); err != nil {
		return "", err
	}
	f, err := lockedfile.Edit(p.path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	if id := strings.TrimSpace(string(data)); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id, nil
		}
	}

	// the file is either new or contains garbage: replace its content
	id := uuid.NewString()
	if err := f.Truncate(0); err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	if _, err := f.WriteString(id + "\n"); err != nil {
		return "", err
	}
	return id, nil
}
