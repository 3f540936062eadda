// Package auth provides client-authentication evidence for confidential
// token requests: shared secrets, certificate-backed client assertions, and
// caller-supplied assertion callbacks.
package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-confidential/core"
)

const (
	KindSecret      = "client_secret"
	KindCertificate = "certificate"
	KindAssertion   = "client_assertion"
)

const assertionTypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

type SecretCredential struct {
	secret string
}

func NewSecretCredential(secret string) (*SecretCredential, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, core.NewArgumentError("auth: client secret is required")
	}
	return &SecretCredential{secret: secret}, nil
}

func (*SecretCredential) Kind() string { return KindSecret }

func (c *SecretCredential) Apply(_ context.Context, req *TokenRequestData) error {
	if req == nil {
		return core.NewArgumentError("auth: token request data is required")
	}
	req.BodyParameters["client_secret"] = c.secret
	return nil
}

// AssertionCallback supplies a ready-made client assertion; the library
// never inspects it.
type AssertionCallback func(ctx context.Context) (string, error)

type AssertionCredential struct {
	callback AssertionCallback
}

func NewAssertionCredential(callback AssertionCallback) (*AssertionCredential, error) {
	if callback == nil {
		return nil, core.NewArgumentError("auth: assertion callback is required")
	}
	return &AssertionCredential{callback: callback}, nil
}

func (*AssertionCredential) Kind() string { return KindAssertion }

func (c *AssertionCredential) Apply(ctx context.Context, req *TokenRequestData) error {
	if req == nil {
		return core.NewArgumentError("auth: token request data is required")
	}
	assertion, err := c.callback(ctx)
	if err != nil {
		return err
	}
	assertion = strings.TrimSpace(assertion)
	if assertion == "" {
		return core.NewConfigurationError("auth: assertion callback returned an empty assertion")
	}
	req.BodyParameters["client_assertion_type"] = assertionTypeJWTBearer
	req.BodyParameters["client_assertion"] = assertion
	return nil
}

// TokenRequestData aliases the core request view so credentials read
// naturally at the call site.
type TokenRequestData = core.TokenRequestData

var (
	_ core.ClientCredential = (*SecretCredential)(nil)
	_ core.ClientCredential = (*AssertionCredential)(nil)
)
