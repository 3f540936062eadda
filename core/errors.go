package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ConfidentialErrorArgument      = "CONFIDENTIAL_ARGUMENT"
	ConfidentialErrorConfiguration = "CONFIDENTIAL_CONFIGURATION"
	ConfidentialErrorCrypto        = "CONFIDENTIAL_CRYPTO"
	ConfidentialErrorProtocol      = "CONFIDENTIAL_PROTOCOL"
	ConfidentialErrorInternal      = "CONFIDENTIAL_INTERNAL_ERROR"
)

// NewArgumentError marks invalid direct arguments. These fail fast, strictly
// before any network activity.
func NewArgumentError(message string) *goerrors.Error {
	return ensureConfidentialErrorEnvelope(
		goerrors.New(message, goerrors.CategoryBadInput).
			WithTextCode(ConfidentialErrorArgument),
	)
}

// NewConfigurationError marks invalid application state, such as a
// confidential client with no authentication evidence configured.
func NewConfigurationError(message string) *goerrors.Error {
	return ensureConfidentialErrorEnvelope(
		goerrors.New(message, goerrors.CategoryValidation).
			WithTextCode(ConfidentialErrorConfiguration),
	)
}

// NewCryptographicError wraps a certificate or key-stack failure. Callers
// log and re-raise; there is no automatic retry.
func NewCryptographicError(source error, message string) *goerrors.Error {
	if source == nil {
		return ensureConfidentialErrorEnvelope(
			goerrors.New(message, goerrors.CategoryInternal).
				WithTextCode(ConfidentialErrorCrypto),
		)
	}
	return ensureConfidentialErrorEnvelope(
		goerrors.Wrap(source, goerrors.CategoryInternal, message).
			WithTextCode(ConfidentialErrorCrypto),
	)
}

// NewProtocolError surfaces a token-endpoint rejection with its wire
// metadata. Not remediated here.
func NewProtocolError(message string, statusCode int, metadata map[string]any) *goerrors.Error {
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithTextCode(ConfidentialErrorProtocol)
	if statusCode > 0 {
		err = err.WithCode(statusCode)
	}
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return ensureConfidentialErrorEnvelope(err)
}

func IsArgumentError(err error) bool { return hasConfidentialTextCode(err, ConfidentialErrorArgument) }

func IsConfigurationError(err error) bool {
	return hasConfidentialTextCode(err, ConfidentialErrorConfiguration)
}

func IsCryptographicError(err error) bool {
	return hasConfidentialTextCode(err, ConfidentialErrorCrypto)
}

func IsProtocolError(err error) bool { return hasConfidentialTextCode(err, ConfidentialErrorProtocol) }

func hasConfidentialTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

func confidentialErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureConfidentialErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "certificate"), strings.Contains(msg, "key material"):
		return newConfidentialError(err.Error(), goerrors.CategoryInternal, ConfidentialErrorCrypto)
	case strings.Contains(msg, "token endpoint"), strings.Contains(msg, "invalid_grant"):
		return newConfidentialError(err.Error(), goerrors.CategoryExternal, ConfidentialErrorProtocol)
	case strings.Contains(msg, "not configured"), strings.Contains(msg, "not supported"):
		return newConfidentialError(err.Error(), goerrors.CategoryValidation, ConfidentialErrorConfiguration)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newConfidentialError(err.Error(), goerrors.CategoryBadInput, ConfidentialErrorArgument)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureConfidentialErrorEnvelope(mapped)
}

func newConfidentialError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureConfidentialErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureConfidentialErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = confidentialHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultConfidentialTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultConfidentialTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return ConfidentialErrorArgument
	case goerrors.CategoryValidation:
		return ConfidentialErrorConfiguration
	case goerrors.CategoryExternal:
		return ConfidentialErrorProtocol
	default:
		return ConfidentialErrorInternal
	}
}

func confidentialHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
