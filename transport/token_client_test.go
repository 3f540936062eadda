package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-confidential/core"
)

type fakeDoer struct {
	requests []*http.Request
	bodies   []string
	response *http.Response
	err      error
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.requests = append(d.requests, req)
	if req.Body != nil {
		body, _ := io.ReadAll(req.Body)
		d.bodies = append(d.bodies, string(body))
	} else {
		d.bodies = append(d.bodies, "")
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.response, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestPost_Success(t *testing.T) {
	doer := &fakeDoer{response: jsonResponse(http.StatusOK,
		`{"access_token":"token-1","token_type":"Bearer","expires_in":3600,"scope":"user.read"}`)}
	client := NewTokenEndpointClient(doer, "go-confidential/1.0")

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", "client-1")

	response, err := client.Post(context.Background(), PostInput{
		Endpoint: "https://login.example.com/tenant-1/oauth2/v2.0/token",
		Form:     form,
		Headers:  map[string]string{"client-request-id": "corr-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.AccessToken != "token-1" || response.ExpiresIn != 3600 {
		t.Fatalf("unexpected response: %+v", response)
	}

	if len(doer.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(doer.requests))
	}
	req := doer.requests[0]
	if req.Method != http.MethodPost {
		t.Fatalf("unexpected method: %q", req.Method)
	}
	if got := req.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type: %q", got)
	}
	if got := req.Header.Get("User-Agent"); got != "go-confidential/1.0" {
		t.Fatalf("unexpected user agent: %q", got)
	}
	if got := req.Header.Get("client-request-id"); got != "corr-1" {
		t.Fatalf("unexpected correlation header: %q", got)
	}
	sent, err := url.ParseQuery(doer.bodies[0])
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if sent.Get("grant_type") != "client_credentials" || sent.Get("client_id") != "client-1" {
		t.Fatalf("unexpected form: %v", sent)
	}
}

func TestPost_OAuthErrorBody(t *testing.T) {
	doer := &fakeDoer{response: jsonResponse(http.StatusBadRequest,
		`{"error":"invalid_grant","error_description":"expired code","error_codes":[70008],"suberror":"token_expired","correlation_id":"corr-9"}`)}
	client := NewTokenEndpointClient(doer, "")

	_, err := client.Post(context.Background(), PostInput{
		Endpoint: "https://login.example.com/token",
		Form:     url.Values{},
	})
	if err == nil {
		t.Fatalf("expected protocol error")
	}
	if !core.IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected a rich error, got %T", err)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected wire status preserved, got %d", rich.Code)
	}
	if rich.Metadata["error"] != "invalid_grant" {
		t.Fatalf("expected oauth error metadata: %v", rich.Metadata)
	}
	if rich.Metadata["error_description"] != "expired code" {
		t.Fatalf("expected description metadata: %v", rich.Metadata)
	}
	if rich.Metadata["suberror"] != "token_expired" {
		t.Fatalf("expected suberror metadata: %v", rich.Metadata)
	}
	if rich.Metadata["correlation_id"] != "corr-9" {
		t.Fatalf("expected correlation metadata: %v", rich.Metadata)
	}
}

func TestPost_NonJSONErrorBody(t *testing.T) {
	doer := &fakeDoer{response: jsonResponse(http.StatusBadGateway, "upstream unavailable")}
	client := NewTokenEndpointClient(doer, "")

	_, err := client.Post(context.Background(), PostInput{
		Endpoint: "https://login.example.com/token",
		Form:     url.Values{},
	})
	if !core.IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected a rich error")
	}
	if rich.Metadata["body"] != "upstream unavailable" {
		t.Fatalf("expected raw body metadata: %v", rich.Metadata)
	}
}

func TestPost_MissingAccessToken(t *testing.T) {
	doer := &fakeDoer{response: jsonResponse(http.StatusOK, `{"token_type":"Bearer"}`)}
	client := NewTokenEndpointClient(doer, "")

	_, err := client.Post(context.Background(), PostInput{
		Endpoint: "https://login.example.com/token",
		Form:     url.Values{},
	})
	if err == nil {
		t.Fatalf("expected error for missing access_token")
	}
	if !core.IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestPost_DoerError(t *testing.T) {
	doerErr := errors.New("connection refused")
	doer := &fakeDoer{err: doerErr}
	client := NewTokenEndpointClient(doer, "")

	_, err := client.Post(context.Background(), PostInput{
		Endpoint: "https://login.example.com/token",
		Form:     url.Values{},
	})
	if !errors.Is(err, doerErr) {
		t.Fatalf("expected doer error to surface, got %v", err)
	}
	if !core.IsProtocolError(err) {
		t.Fatalf("expected protocol error, got %v", err)
	}
}

func TestPost_EmptyEndpoint(t *testing.T) {
	client := NewTokenEndpointClient(&fakeDoer{}, "")
	_, err := client.Post(context.Background(), PostInput{Form: url.Values{}})
	if err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
	if !core.IsArgumentError(err) {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestPost_PerExchangeClientOverride(t *testing.T) {
	defaultDoer := &fakeDoer{response: jsonResponse(http.StatusOK, `{"access_token":"default"}`)}
	overrideDoer := &fakeDoer{response: jsonResponse(http.StatusOK, `{"access_token":"override"}`)}
	client := NewTokenEndpointClient(defaultDoer, "")

	response, err := client.Post(context.Background(), PostInput{
		Endpoint: "https://login.example.com/token",
		Form:     url.Values{},
		Client:   overrideDoer,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.AccessToken != "override" {
		t.Fatalf("expected override doer to serve the exchange")
	}
	if len(defaultDoer.requests) != 0 {
		t.Fatalf("default doer must not see the exchange")
	}
}

func TestPost_BodyLimit(t *testing.T) {
	huge := strings.Repeat("a", 64)
	doer := &fakeDoer{response: jsonResponse(http.StatusOK, `{"access_token":"`+huge+`"}`)}
	client := NewTokenEndpointClient(doer, "")
	client.MaxResponseBodyBytes = 16

	_, err := client.Post(context.Background(), PostInput{
		Endpoint: "https://login.example.com/token",
		Form:     url.Values{},
	})
	if err == nil {
		t.Fatalf("expected error for oversized body")
	}
}

func TestNewMTLSDoer_PresentsCertificate(t *testing.T) {
	doer := NewMTLSDoer(tls.Certificate{}, 0)
	httpClient, ok := doer.(*http.Client)
	if !ok {
		t.Fatalf("expected an *http.Client, got %T", doer)
	}
	transport, ok := httpClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected an *http.Transport, got %T", httpClient.Transport)
	}
	if transport.TLSClientConfig == nil || len(transport.TLSClientConfig.Certificates) != 1 {
		t.Fatalf("expected one client certificate in the tls config")
	}
	if transport.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Fatalf("expected tls 1.2 minimum")
	}
	if httpClient.Timeout != defaultClientTimeout {
		t.Fatalf("expected default timeout, got %v", httpClient.Timeout)
	}
}
