package tlsutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/campaignpulse/errors"
)

// generateTestCertWithCN creates a self-signed certificate usable for both
// server and client auth.
func generateTestCertWithCN(t *testing.T, cn string) (certPEM, keyPEM []byte) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			Organization: []string{"Test Org"},
			CommonName:   cn,
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	return certPEM, keyPEM
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

// serverCAFile writes the httptest server's certificate as a CA bundle.
func serverCAFile(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return writeFile(t, "server-ca.pem", pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: srv.Certificate().Raw,
	}))
}

func TestHTTPClient_TrustsAdditionalCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := HTTPClient(ClientConfig{})
	require.NoError(t, err)
	_, err = client.Get(srv.URL)
	require.Error(t, err, "self-signed server is untrusted by default")

	client, err = HTTPClient(ClientConfig{CAFiles: []string{serverCAFile(t, srv)}})
	require.NoError(t, err)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPClient_PresentsClientCertificate(t *testing.T) {
	clientCertPEM, clientKeyPEM := generateTestCertWithCN(t, "campaignpulse")
	clientCAs := x509.NewCertPool()
	require.True(t, clientCAs.AppendCertsFromPEM(clientCertPEM))

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "no client certificate", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(r.TLS.PeerCertificates[0].Subject.CommonName))
	}))
	srv.TLS = &tls.Config{
		ClientAuth: tls.RequireAndVerifyClientCert,
		ClientCAs:  clientCAs,
	}
	srv.StartTLS()
	defer srv.Close()

	cfg := ClientConfig{
		CAFiles:  []string{serverCAFile(t, srv)},
		CertFile: writeFile(t, "client-cert.pem", clientCertPEM),
		KeyFile:  writeFile(t, "client-key.pem", clientKeyPEM),
	}
	client, err := HTTPClient(cfg)
	require.NoError(t, err)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoadClientConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(t *testing.T) ClientConfig
	}{
		{"missing CA file", func(t *testing.T) ClientConfig {
			return ClientConfig{CAFiles: []string{filepath.Join(t.TempDir(), "absent.pem")}}
		}},
		{"invalid PEM", func(t *testing.T) ClientConfig {
			return ClientConfig{CAFiles: []string{writeFile(t, "bad.pem", []byte("not a certificate"))}}
		}},
		{"cert without key", func(t *testing.T) ClientConfig {
			return ClientConfig{CertFile: "client.pem"}
		}},
		{"unreadable key pair", func(t *testing.T) ClientConfig {
			return ClientConfig{
				CertFile: writeFile(t, "cert.pem", []byte("x")),
				KeyFile:  writeFile(t, "key.pem", []byte("y")),
			}
		}},
		{"bad min version", func(t *testing.T) ClientConfig {
			return ClientConfig{MinVersion: "1.0"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClientConfig(tt.cfg(t))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestLoadClientConfig_Versions(t *testing.T) {
	cfg, err := LoadClientConfig(ClientConfig{})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	assert.NotNil(t, cfg.RootCAs)
	assert.False(t, cfg.InsecureSkipVerify)

	cfg, err = LoadClientConfig(ClientConfig{MinVersion: "1.3", InsecureSkipVerify: true})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
	assert.True(t, cfg.InsecureSkipVerify)
}

func TestClientConfig_IsZero(t *testing.T) {
	assert.True(t, ClientConfig{}.IsZero())
	assert.False(t, ClientConfig{MinVersion: "1.3"}.IsZero())
}
