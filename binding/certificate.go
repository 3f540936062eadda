package binding

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/goliatone/go-confidential/core"
)

// rsaFallbackSubject is the fixed subject for certificates backed by an
// in-memory RSA key. The server matches on this literal; do not change it.
const rsaFallbackSubject = "devicecert.mtlsauth.local"

const (
	certificateValidityYears = 2
	rsaFallbackKeyBits       = 2048
)

// BoundCertificate is a self-signed binding certificate plus the handle to
// its private-key operations. On the platform path the signer is the
// original key container handle and the certificate is public-only; on the
// RSA path the key was generated in memory and the whole bundle exports.
type BoundCertificate struct {
	Raw         []byte
	Certificate *x509.Certificate
	Signer      crypto.Signer
	SubjectName string
	NotBefore   time.Time
	NotAfter    time.Time
	Exportable  bool

	privateKey *rsa.PrivateKey
}

// Thumbprint is the base64url SHA-256 of the DER-encoded certificate, the
// same value used as the credential payload kid.
func (c *BoundCertificate) Thumbprint() string {
	if c == nil || len(c.Raw) == 0 {
		return ""
	}
	sum := sha256.Sum256(c.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ExportBundle renders the certificate and its private key as a PEM bundle.
// Platform-bound certificates fail here: their key never materializes as
// exportable bytes.
func (c *BoundCertificate) ExportBundle() ([]byte, error) {
	if c == nil || len(c.Raw) == 0 {
		return nil, core.NewCryptographicError(nil, "binding: no certificate to export")
	}
	if !c.Exportable || c.privateKey == nil {
		return nil, core.NewCryptographicError(nil, "binding: certificate private key is platform bound and cannot be exported")
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(c.privateKey)
	if err != nil {
		return nil, core.NewCryptographicError(err, "binding: marshal private key")
	}

	bundle := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})
	bundle = append(bundle, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})...)
	return bundle, nil
}

// TLSCertificate adapts the binding certificate for a mutual-TLS handshake.
// Private-key operations go through the signer, so the platform path works
// without exposing key material.
func (c *BoundCertificate) TLSCertificate() tls.Certificate {
	if c == nil {
		return tls.Certificate{}
	}
	return tls.Certificate{
		Certificate: [][]byte{c.Raw},
		PrivateKey:  c.Signer,
		Leaf:        c.Certificate,
	}
}

func createEllipticCurveCertificate(key core.PlatformKey, notBefore time.Time) (*BoundCertificate, error) {
	if key == nil {
		return nil, core.NewCryptographicError(nil, "binding: platform key handle is required")
	}
	subject := key.UniqueID()
	template, err := certificateTemplate(subject, notBefore, x509.ECDSAWithSHA256)
	if err != nil {
		return nil, err
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, core.NewCryptographicError(err, "binding: create elliptic curve certificate")
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, core.NewCryptographicError(err, "binding: parse elliptic curve certificate")
	}

	// Public-only export: the original key handle is re-associated with the
	// certificate so signing stays usable without exportable key bytes.
	return &BoundCertificate{
		Raw:         der,
		Certificate: parsed,
		Signer:      key,
		SubjectName: subject,
		NotBefore:   template.NotBefore,
		NotAfter:    template.NotAfter,
		Exportable:  false,
	}, nil
}

func createRSACertificate(notBefore time.Time) (*BoundCertificate, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaFallbackKeyBits)
	if err != nil {
		return nil, core.NewCryptographicError(err, "binding: generate rsa key")
	}
	template, err := certificateTemplate(rsaFallbackSubject, notBefore, x509.SHA256WithRSA)
	if err != nil {
		return nil, err
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, core.NewCryptographicError(err, "binding: create rsa certificate")
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, core.NewCryptographicError(err, "binding: parse rsa certificate")
	}

	return &BoundCertificate{
		Raw:         der,
		Certificate: parsed,
		Signer:      key,
		SubjectName: rsaFallbackSubject,
		NotBefore:   template.NotBefore,
		NotAfter:    template.NotAfter,
		Exportable:  true,
		privateKey:  key,
	}, nil
}

func certificateTemplate(subject string, notBefore time.Time, algorithm x509.SignatureAlgorithm) (*x509.Certificate, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}
	notBefore = notBefore.UTC()
	return &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: subject},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(certificateValidityYears, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		SignatureAlgorithm:    algorithm,
		BasicConstraintsValid: true,
	}, nil
}

func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, core.NewCryptographicError(fmt.Errorf("generate certificate serial: %w", err), "binding: generate certificate serial")
	}
	return serial, nil
}
