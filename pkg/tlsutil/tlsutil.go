// Package tlsutil builds TLS client configuration for connections to the
// campaign API.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/c360/campaignpulse/errors"
)

// ClientConfig holds TLS configuration for API clients.
// The system CA bundle is always used; CAFiles are ADDITIONAL trusted CAs.
type ClientConfig struct {
	CAFiles            []string `json:"ca_files,omitempty"             env:"CA_FILES" envSeparator:","`
	CertFile           string   `json:"cert_file,omitempty"            env:"CERT_FILE"` // Client certificate for mTLS
	KeyFile            string   `json:"key_file,omitempty"             env:"KEY_FILE"`  // Client private key for mTLS
	MinVersion         string   `json:"min_version,omitempty"          env:"MIN_VERSION"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify,omitempty" env:"INSECURE_SKIP_VERIFY"` // DEV/TEST ONLY
}

// IsZero reports whether cfg leaves Go's default TLS behaviour untouched.
func (c ClientConfig) IsZero() bool {
	return len(c.CAFiles) == 0 && c.CertFile == "" && c.KeyFile == "" &&
		c.MinVersion == "" && !c.InsecureSkipVerify
}

// Validate checks the configuration for errors without touching the filesystem.
func (c ClientConfig) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "tlsutil", "Validate",
			"cert_file and key_file must be set together")
	}
	switch c.MinVersion {
	case "", "1.2", "1.3":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "tlsutil", "Validate",
			fmt.Sprintf("min_version must be 1.2 or 1.3, got %q", c.MinVersion))
	}
	return nil
}

// LoadClientConfig creates a tls.Config from cfg.
func LoadClientConfig(cfg ClientConfig) (*tls.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion: parseTLSVersion(cfg.MinVersion),
	}

	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}

	for _, caFile := range cfg.CAFiles {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.WrapInvalid(err, "tlsutil", "LoadClientConfig", fmt.Sprintf("read CA file %s", caFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("invalid PEM data"),
				"tlsutil",
				"LoadClientConfig",
				fmt.Sprintf("parse CA certificate from %s", caFile),
			)
		}
	}
	tlsConfig.RootCAs = rootCAs

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapInvalid(err, "tlsutil", "LoadClientConfig", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	// Set only from explicit configuration.
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	return tlsConfig, nil
}

// HTTPClient returns an http.Client using cfg on a copy of the default
// transport. A zero cfg returns a client on the default transport.
func HTTPClient(cfg ClientConfig) (*http.Client, error) {
	if cfg.IsZero() {
		return &http.Client{}, nil
	}

	tlsConfig, err := LoadClientConfig(cfg)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Transport: transport}, nil
}

// parseTLSVersion converts version string to crypto/tls constant
// Returns tls.VersionTLS12 if empty or invalid
func parseTLSVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
