package githubapp

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const testAppID = 4242

func testKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return key, pemBytes
}

func newTestRegistry(t *testing.T, handler http.Handler) (*Registry, *rsa.PrivateKey) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	key, pemBytes := testKey(t)
	reg, err := NewRegistry(Config{
		AppID:         testAppID,
		PrivateKeyPEM: pemBytes,
		BaseURL:       srv.URL,
		Timeout:       2 * time.Second,
	}, clockwork.NewRealClock(), nil)
	require.NoError(t, err)
	return reg, key
}
