package transport

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
)

// trustStore lazily reads a root CA certificate from disk. Once read
// successfully, the content never changes. Failures are not cached, so
// the next call reads the file again.
type trustStore struct {
	path  string
	group singleflight.Group

	mu  sync.Mutex
	pem []byte
}

func newTrustStore(path string) *trustStore {
	return &trustStore{path: path}
}

// Load returns a copy of the PEM encoded certificate.
func (ts *trustStore) Load() ([]byte, error) {
	ts.mu.Lock()
	cached := ts.pem
	ts.mu.Unlock()
	if cached != nil {
		return append([]byte(nil), cached...), nil
	}
	v, err, _ := ts.group.Do(ts.path, func() (any, error) {
		data, err := readCertificate(ts.path)
		if err != nil {
			return nil, err
		}
		ts.mu.Lock()
		ts.pem = data
		ts.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTrustMaterial, err)
	}
	return append([]byte(nil), v.([]byte)...), nil
}

// readCertificate reads path and checks it contains a PEM certificate.
func readCertificate(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM data in " + path)
	}
	if _, err := x509.ParseCertificate(block.Bytes); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}
