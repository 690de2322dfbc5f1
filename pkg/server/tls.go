package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"time"

	"dayaml-tools/checker/pkg/config"
)

// certExpiryWarning is how close to expiry a certificate is logged as a warning.
const certExpiryWarning = 30 * 24 * time.Hour

// loadTLSConfig builds the listener TLS settings. It returns nil when TLS is
// disabled.
func loadTLSConfig(cfg config.TLSConfig, logger *slog.Logger) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("cert_file and key_file are required when TLS is enabled")
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	if err := checkValidity(leaf, time.Now(), logger); err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tlsVersion(cfg.MinVersion),
	}, nil
}

func checkValidity(cert *x509.Certificate, now time.Time, logger *slog.Logger) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	if left := cert.NotAfter.Sub(now); left < certExpiryWarning {
		logger.Warn("certificate expires soon",
			"days", int(left.Hours()/24),
			"not_after", cert.NotAfter.Format("2006-01-02"),
		)
	}
	return nil
}

// tlsVersion maps "1.2" and "1.3" to their constants. Anything else,
// including "", means TLS 1.3.
func tlsVersion(v string) uint16 {
	if v == "1.2" {
		return tls.VersionTLS12
	}
	return tls.VersionTLS13
}

// listen opens the configured address, wrapping it in TLS when enabled.
func (s *Server) listen() (net.Listener, error) {
	tlsConfig, err := loadTLSConfig(s.config.TLS, s.logger.Slog())
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}
	return ln, nil
}
