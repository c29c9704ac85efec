package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxAuthResponseSize caps how much of an auth endpoint response is read.
const maxAuthResponseSize = 1 << 20

// AuthResponse is what an Authorizer hands back for a channel subscribe.
type AuthResponse struct {
	// Auth is the signature token placed in the subscribe frame.
	Auth string `json:"auth"`

	// ChannelData carries the member identity for presence channels.
	ChannelData string `json:"channel_data,omitempty"`

	// SharedSecret is returned for encrypted channels. The client passes
	// it through; payload decryption is a message-layer concern.
	SharedSecret string `json:"shared_secret,omitempty"`
}

// Authorizer resolves auth signatures for private and presence channels.
// It is never called for public channels. A fresh call is made for every
// subscribe attempt, including resubscribes after reconnect.
type Authorizer interface {
	Authorize(ctx context.Context, socketID, channel string) (*AuthResponse, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, socketID, channel string) (*AuthResponse, error)

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, socketID, channel string) (*AuthResponse, error) {
	return f(ctx, socketID, channel)
}

// EndpointAuthorizer authorizes channels by POSTing socket_id and
// channel_name as a form to an HTTP endpoint, the exchange server SDKs
// implement.
type EndpointAuthorizer struct {
	// Endpoint is the URL POSTed to.
	Endpoint string

	// Headers are added to every request.
	Headers http.Header

	// Client is the HTTP client used.
	// Default: http.DefaultClient.
	Client *http.Client
}

// NewEndpointAuthorizer creates an EndpointAuthorizer.
func NewEndpointAuthorizer(endpoint string, headers http.Header) *EndpointAuthorizer {
	return &EndpointAuthorizer{Endpoint: endpoint, Headers: headers}
}

// Authorize requests a signature for channel on behalf of socketID.
// Transport failures, non-2xx statuses, and malformed bodies all surface
// as *AuthError.
func (a *EndpointAuthorizer) Authorize(ctx context.Context, socketID, channel string) (*AuthResponse, error) {
	body, status, err := postAuthForm(ctx, a.Client, a.Endpoint, a.Headers, url.Values{
		"socket_id":    {socketID},
		"channel_name": {channel},
	})
	if err != nil {
		return nil, &AuthError{Channel: channel, Status: status, Err: err}
	}

	var ar AuthResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, &AuthError{Channel: channel, Status: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	if ar.Auth == "" {
		return nil, &AuthError{Channel: channel, Status: status, Err: errors.New("response has no auth token")}
	}
	return &ar, nil
}

// UserAuthResponse is what a UserAuthorizer hands back for SignIn.
type UserAuthResponse struct {
	Auth     string `json:"auth"`
	UserData string `json:"user_data"`
}

// UserAuthorizer resolves the user authentication signature for SignIn.
type UserAuthorizer interface {
	AuthorizeUser(ctx context.Context, socketID string) (*UserAuthResponse, error)
}

// EndpointUserAuthorizer authenticates users by POSTing socket_id as a
// form to an HTTP endpoint.
type EndpointUserAuthorizer struct {
	Endpoint string
	Headers  http.Header

	// Client is the HTTP client used.
	// Default: http.DefaultClient.
	Client *http.Client
}

// NewEndpointUserAuthorizer creates an EndpointUserAuthorizer.
func NewEndpointUserAuthorizer(endpoint string, headers http.Header) *EndpointUserAuthorizer {
	return &EndpointUserAuthorizer{Endpoint: endpoint, Headers: headers}
}

// AuthorizeUser requests a signin signature on behalf of socketID.
func (a *EndpointUserAuthorizer) AuthorizeUser(ctx context.Context, socketID string) (*UserAuthResponse, error) {
	body, status, err := postAuthForm(ctx, a.Client, a.Endpoint, a.Headers, url.Values{
		"socket_id": {socketID},
	})
	if err != nil {
		return nil, &AuthError{Status: status, Err: err}
	}

	var ur UserAuthResponse
	if err := json.Unmarshal(body, &ur); err != nil {
		return nil, &AuthError{Status: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	if ur.Auth == "" || ur.UserData == "" {
		return nil, &AuthError{Status: status, Err: errors.New("response missing auth or user_data")}
	}
	return &ur, nil
}

// postAuthForm runs one form POST and returns the body. The status is
// returned alongside errors so callers can attach it to AuthError.
func postAuthForm(ctx context.Context, httpc *http.Client, endpoint string, headers http.Header, form url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseSize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("endpoint returned %s", resp.Status)
	}
	return body, resp.StatusCode, nil
}
