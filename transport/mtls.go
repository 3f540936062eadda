package transport

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/goliatone/go-confidential/core"
)

// NewMTLSDoer builds an HTTP client that presents the given certificate
// during the TLS handshake. Callers hand it to a single token-endpoint
// exchange; it is never installed as the application-wide doer.
func NewMTLSDoer(certificate tls.Certificate, timeout time.Duration) core.HTTPDoer {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				Certificates: []tls.Certificate{certificate},
				MinVersion:   tls.VersionTLS12,
			},
		},
	}
}
