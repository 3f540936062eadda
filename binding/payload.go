package binding

import (
	"encoding/base64"
	"encoding/json"

	"github.com/goliatone/go-confidential/core"
)

// The credential payload is a wire contract validated server-side: field
// names, nesting, and the kty/use/alg literals are fixed on every key path.
const (
	payloadKeyType   = "RSA"
	payloadKeyUse    = "sig"
	payloadAlgorithm = "RS256"
)

type payloadJWK struct {
	KeyType          string   `json:"kty"`
	Use              string   `json:"use"`
	Algorithm        string   `json:"alg"`
	KeyID            string   `json:"kid"`
	CertificateChain []string `json:"x5c"`
}

type payloadConfirmation struct {
	JWK payloadJWK `json:"jwk"`
}

type credentialPayload struct {
	Confirmation payloadConfirmation `json:"cnf"`
	LatchKey     bool                `json:"latch_key"`
}

// CredentialPayload renders the binding certificate into the
// provider-specific credential document. Identical certificates yield
// byte-identical payloads: struct encoding fixes the field order and the
// values are derived from the DER bytes alone.
func CredentialPayload(certificate *BoundCertificate) ([]byte, error) {
	if certificate == nil || len(certificate.Raw) == 0 {
		return nil, core.NewCryptographicError(nil, "binding: certificate is required to build the credential payload")
	}

	document := credentialPayload{
		Confirmation: payloadConfirmation{
			JWK: payloadJWK{
				KeyType:          payloadKeyType,
				Use:              payloadKeyUse,
				Algorithm:        payloadAlgorithm,
				KeyID:            certificate.Thumbprint(),
				CertificateChain: []string{base64.StdEncoding.EncodeToString(certificate.Raw)},
			},
		},
		LatchKey: false,
	}

	payload, err := json.Marshal(document)
	if err != nil {
		return nil, core.NewCryptographicError(err, "binding: encode credential payload")
	}
	return payload, nil
}
