package request

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"math/big"

	"github.com/goliatone/go-confidential/core"
)

// rsaThumbprintJWK and ecThumbprintJWK carry only the RFC 7638 required
// members, in lexicographic order, so the marshaled bytes are the canonical
// thumbprint input.
type rsaThumbprintJWK struct {
	E   string `json:"e"`
	Kty string `json:"kty"`
	N   string `json:"n"`
}

type ecThumbprintJWK struct {
	Crv string `json:"crv"`
	Kty string `json:"kty"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

type rsaPublicJWK struct {
	E   string `json:"e"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

type ecPublicJWK struct {
	Crv string `json:"crv"`
	Kty string `json:"kty"`
	X   string `json:"x"`
	Y   string `json:"y"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// popSchemeParameters renders the proof-of-possession request parameters:
// the pop token type and the base64url public JWK the server binds the
// issued token to.
func popSchemeParameters(key crypto.Signer) (map[string]string, error) {
	if key == nil {
		return nil, core.NewConfigurationError("request: proof-of-possession requires a signing key")
	}

	jwk, err := publicJWK(key.Public())
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"token_type": "pop",
		"req_cnf":    base64.RawURLEncoding.EncodeToString(jwk),
	}, nil
}

func publicJWK(public crypto.PublicKey) ([]byte, error) {
	switch typed := public.(type) {
	case *rsa.PublicKey:
		n := base64.RawURLEncoding.EncodeToString(typed.N.Bytes())
		e := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(typed.E)).Bytes())
		kid, err := jwkThumbprint(rsaThumbprintJWK{E: e, Kty: "RSA", N: n})
		if err != nil {
			return nil, err
		}
		return json.Marshal(rsaPublicJWK{E: e, Kty: "RSA", N: n, Alg: "RS256", Kid: kid})
	case *ecdsa.PublicKey:
		size := (typed.Curve.Params().BitSize + 7) / 8
		x := base64.RawURLEncoding.EncodeToString(typed.X.FillBytes(make([]byte, size)))
		y := base64.RawURLEncoding.EncodeToString(typed.Y.FillBytes(make([]byte, size)))
		crv := typed.Curve.Params().Name
		kid, err := jwkThumbprint(ecThumbprintJWK{Crv: crv, Kty: "EC", X: x, Y: y})
		if err != nil {
			return nil, err
		}
		return json.Marshal(ecPublicJWK{Crv: crv, Kty: "EC", X: x, Y: y, Alg: "ES256", Kid: kid})
	default:
		return nil, core.NewConfigurationError("request: proof-of-possession key type is not supported")
	}
}

// jwkThumbprint is the RFC 7638 SHA-256 thumbprint of the canonical members.
func jwkThumbprint(canonical any) (string, error) {
	encoded, err := json.Marshal(canonical)
	if err != nil {
		return "", core.NewCryptographicError(err, "request: encode jwk thumbprint input")
	}
	sum := sha256.Sum256(encoded)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
