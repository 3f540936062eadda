// Package transport holds the token-endpoint HTTP client and the mutual-TLS
// doer. Retry and backoff policy live with the caller-supplied HTTPDoer;
// every Post is a single attempt.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-confidential/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 1 << 20 // 1 MiB

type TokenEndpointClient struct {
	Client               core.HTTPDoer
	UserAgent            string
	MaxResponseBodyBytes int64
}

func NewTokenEndpointClient(client core.HTTPDoer, userAgent string) *TokenEndpointClient {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return &TokenEndpointClient{
		Client:               client,
		UserAgent:            strings.TrimSpace(userAgent),
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

type PostInput struct {
	Endpoint string
	Form     url.Values
	Headers  map[string]string
	// Client overrides the default doer for this exchange only; the mTLS
	// path uses it so the client certificate never leaks into other calls.
	Client core.HTTPDoer
}

// oauthErrorBody is the error wire shape of the token endpoint.
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCodes       []int  `json:"error_codes"`
	SubError         string `json:"suberror"`
	CorrelationID    string `json:"correlation_id"`
}

func (c *TokenEndpointClient) Post(ctx context.Context, in PostInput) (*core.TokenResponse, error) {
	if c == nil {
		return nil, transportError(
			"transport: token endpoint client is not configured",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := strings.TrimSpace(in.Endpoint)
	if endpoint == "" {
		return nil, transportError(
			"transport: token endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}

	doer := in.Client
	if doer == nil {
		doer = c.Client
	}
	if doer == nil {
		doer = &http.Client{Timeout: defaultClientTimeout}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(in.Form.Encode()))
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create token request",
			http.StatusBadRequest,
			map[string]any{"endpoint": endpoint},
		)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}
	for key, value := range in.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	httpRes, err := doer.Do(httpReq)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute token request",
			http.StatusBadGateway,
			map[string]any{"endpoint": endpoint},
		)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := c.MaxResponseBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultResponseBodyLimit
	}
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read token response body",
			http.StatusBadGateway,
			map[string]any{"endpoint": endpoint, "status_code": httpRes.StatusCode},
		)
	}
	if int64(len(body)) > maxBodyBytes {
		return nil, transportError(
			fmt.Sprintf("transport: token response body exceeds limit of %d bytes", maxBodyBytes),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"endpoint": endpoint, "status_code": httpRes.StatusCode},
		)
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode >= 300 {
		return nil, decodeOAuthError(httpRes.StatusCode, body)
	}

	response := &core.TokenResponse{}
	if err := json.Unmarshal(body, response); err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode token response",
			http.StatusBadGateway,
			map[string]any{"endpoint": endpoint, "status_code": httpRes.StatusCode},
		)
	}
	if strings.TrimSpace(response.AccessToken) == "" {
		return nil, transportError(
			"transport: token response is missing access_token",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"endpoint": endpoint, "status_code": httpRes.StatusCode},
		)
	}
	return response, nil
}

func decodeOAuthError(statusCode int, body []byte) error {
	wire := oauthErrorBody{}
	if err := json.Unmarshal(body, &wire); err != nil || strings.TrimSpace(wire.Error) == "" {
		return core.NewProtocolError(
			fmt.Sprintf("transport: token endpoint returned status %d", statusCode),
			statusCode,
			map[string]any{"body": strings.TrimSpace(string(body))},
		)
	}

	message := "transport: token endpoint rejected the request: " + wire.Error
	if strings.TrimSpace(wire.ErrorDescription) != "" {
		message += ": " + wire.ErrorDescription
	}
	metadata := map[string]any{
		"error": wire.Error,
	}
	if strings.TrimSpace(wire.ErrorDescription) != "" {
		metadata["error_description"] = wire.ErrorDescription
	}
	if len(wire.ErrorCodes) > 0 {
		metadata["error_codes"] = append([]int(nil), wire.ErrorCodes...)
	}
	if strings.TrimSpace(wire.SubError) != "" {
		metadata["suberror"] = wire.SubError
	}
	if strings.TrimSpace(wire.CorrelationID) != "" {
		metadata["correlation_id"] = wire.CorrelationID
	}
	return core.NewProtocolError(message, statusCode, metadata)
}
