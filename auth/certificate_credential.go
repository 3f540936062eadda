package auth

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/goliatone/go-confidential/core"
)

const defaultAssertionLifetime = 10 * time.Minute

// CertificateCredential authenticates the client with a short-lived RS256
// assertion signed by the certificate key. It works with the exportable RSA
// binding certificate as well as any caller-provided certificate.
type CertificateCredential struct {
	certificate *x509.Certificate
	key         *rsa.PrivateKey
	lifetime    time.Duration
	now         func() time.Time
}

type CertificateCredentialOption func(*CertificateCredential)

func WithAssertionLifetime(lifetime time.Duration) CertificateCredentialOption {
	return func(c *CertificateCredential) {
		if lifetime > 0 {
			c.lifetime = lifetime
		}
	}
}

func WithCertificateNow(now func() time.Time) CertificateCredentialOption {
	return func(c *CertificateCredential) {
		if now != nil {
			c.now = now
		}
	}
}

func NewCertificateCredential(certificate *x509.Certificate, key crypto.PrivateKey, options ...CertificateCredentialOption) (*CertificateCredential, error) {
	if certificate == nil {
		return nil, core.NewArgumentError("auth: certificate is required")
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok || rsaKey == nil {
		return nil, core.NewConfigurationError("auth: certificate credential requires an exportable rsa private key")
	}

	credential := &CertificateCredential{
		certificate: certificate,
		key:         rsaKey,
		lifetime:    defaultAssertionLifetime,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		if option != nil {
			option(credential)
		}
	}
	return credential, nil
}

func (*CertificateCredential) Kind() string { return KindCertificate }

func (c *CertificateCredential) Apply(_ context.Context, req *TokenRequestData) error {
	if req == nil {
		return core.NewArgumentError("auth: token request data is required")
	}
	clientID := strings.TrimSpace(req.BodyParameters["client_id"])
	if clientID == "" {
		return core.NewConfigurationError("auth: client_id must be set before the certificate credential applies")
	}
	endpoint := strings.TrimSpace(req.Endpoint)
	if endpoint == "" {
		return core.NewConfigurationError("auth: token endpoint must be set before the certificate credential applies")
	}

	assertion, err := c.signAssertion(clientID, endpoint)
	if err != nil {
		return err
	}
	req.BodyParameters["client_assertion_type"] = assertionTypeJWTBearer
	req.BodyParameters["client_assertion"] = assertion
	return nil
}

func (c *CertificateCredential) signAssertion(clientID string, audience string) (string, error) {
	now := c.now().UTC()
	claims := jwt.MapClaims{
		"aud": audience,
		"iss": clientID,
		"sub": clientID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(c.lifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["x5t#S256"] = certificateThumbprint(c.certificate)

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", core.NewCryptographicError(err, "auth: sign client assertion")
	}
	return signed, nil
}

func certificateThumbprint(certificate *x509.Certificate) string {
	sum := sha256.Sum256(certificate.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

var _ core.ClientCredential = (*CertificateCredential)(nil)
