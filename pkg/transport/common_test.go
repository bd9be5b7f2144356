package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/ooni/minipt/internal/model"
	"github.com/ooni/minipt/internal/optional"
	"github.com/ooni/minipt/pkg/config"
)

// newTestConfig returns a config that never touches the network.
func newTestConfig(t *testing.T, pid optional.Value[int], options ...config.Option) *config.Config {
	opts := []config.Option{
		config.WithConfigRoot(t.TempDir()),
		config.WithLogger(model.NewTestLogger()),
		config.WithHostPID(func() optional.Value[int] { return pid }),
		config.WithInstanceIDProvider(model.StaticInstanceID("instance-1")),
		config.WithLocator(model.CountryLocatorFunc(func(ctx context.Context) (string, error) {
			return "IR", nil
		})),
	}
	return config.NewConfig(append(opts, options...)...)
}

// countFlag returns how many times flag appears in argv.
func countFlag(argv []string, flag string) int {
	var n int
	for _, arg := range argv {
		if arg == flag {
			n++
		}
	}
	return n
}

// flagValue returns the argument following flag.
func flagValue(argv []string, flag string) (string, bool) {
	for idx := 0; idx < len(argv)-1; idx++ {
		if argv[idx] == flag {
			return argv[idx+1], true
		}
	}
	return "", false
}

// newPEMCertificate returns a self-signed PEM certificate.
func newPEMCertificate(t *testing.T) []byte {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "cdn.example.com"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
