package tlsroots

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCertPEM(t *testing.T) {
	pool := NewEmptyPool()
	certPEM, _ := generateCert(t)

	require.NoError(t, pool.AddCertPEM(append(certPEM, certPEM...)))
}

func TestAddCertPEM_NoCerts(t *testing.T) {
	pool := NewEmptyPool()
	keyOnly := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("x")})

	assert.ErrorIs(t, pool.AddCertPEM(keyOnly), ErrNoCertsFound)
	assert.ErrorIs(t, pool.AddCertPEM(nil), ErrNoCertsFound)
}

func TestAddCertPEM_InvalidCert(t *testing.T) {
	pool := NewEmptyPool()
	bad := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte("garbage")})

	assert.Error(t, pool.AddCertPEM(bad))
}

func TestAddCertFile_NotFound(t *testing.T) {
	assert.Error(t, NewEmptyPool().AddCertFile("/nonexistent/ca.pem"))
}

func TestClientConfig(t *testing.T) {
	dir := t.TempDir()
	caFile, certFile, keyFile := writeCertFiles(t, dir)

	cfg, err := ClientConfig(ClientOptions{
		CAFile:          caFile,
		CertFile:        certFile,
		KeyFile:         keyFile,
		ServerName:      "cache.internal",
		SkipSystemRoots: true,
	})
	require.NoError(t, err)

	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.Equal(t, "cache.internal", cfg.ServerName)
	assert.NotNil(t, cfg.RootCAs)
	assert.Len(t, cfg.Certificates, 1)
}

func TestClientConfig_SystemRootsOnly(t *testing.T) {
	cfg, err := ClientConfig(ClientOptions{})
	require.NoError(t, err)
	assert.Empty(t, cfg.Certificates)
}

func TestClientConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	_, certFile, _ := writeCertFiles(t, dir)

	_, err := ClientConfig(ClientOptions{CAFile: "/nonexistent/ca.pem"})
	assert.Error(t, err)

	_, err = ClientConfig(ClientOptions{CertFile: certFile})
	assert.ErrorContains(t, err, "set together")

	_, err = ClientConfig(ClientOptions{CertFile: "/nonexistent/c", KeyFile: "/nonexistent/k"})
	assert.ErrorContains(t, err, "load key pair")
}

// generateCert returns a self-signed CA certificate and its key, PEM encoded.
func generateCert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"Test Org"}, CommonName: "test.local"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
}

func writeCertFiles(t *testing.T, dir string) (caFile, certFile, keyFile string) {
	t.Helper()

	certPEM, keyPEM := generateCert(t)
	caFile = filepath.Join(dir, "ca.pem")
	certFile = filepath.Join(dir, "client.crt")
	keyFile = filepath.Join(dir, "client.key")

	require.NoError(t, os.WriteFile(caFile, certPEM, 0o644))
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return caFile, certFile, keyFile
}
