package authtest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/pushkit-dev/pushkit/internal/signature"
	"github.com/pushkit-dev/pushkit/pkg/client"
)

func postForm(t *testing.T, endpoint string, form url.Values) (int, map[string]string) {
	t.Helper()
	resp, err := http.PostForm(endpoint, form)
	if err != nil {
		t.Fatalf("POST %s: %v", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var fields map[string]string
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("decode body %q: %v", body, err)
	}
	return resp.StatusCode, fields
}

func TestChannelAuthPrivate(t *testing.T) {
	srv := NewServer("app-key", "app-secret")
	defer srv.Close()

	status, fields := postForm(t, srv.ChannelURL(), url.Values{
		"socket_id":    {"12.34"},
		"channel_name": {"private-orders"},
	})

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !signature.Valid("app-key", "app-secret", "12.34:private-orders", fields["auth"]) {
		t.Errorf("auth token %q does not verify", fields["auth"])
	}
	if _, ok := fields["channel_data"]; ok {
		t.Error("private channel response should not carry channel_data")
	}
}

func TestChannelAuthPresence(t *testing.T) {
	srv := NewServer("app-key", "app-secret")
	defer srv.Close()

	status, fields := postForm(t, srv.ChannelURL(), url.Values{
		"socket_id":    {"12.34"},
		"channel_name": {"presence-room"},
	})

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	channelData := fields["channel_data"]
	var m struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal([]byte(channelData), &m); err != nil {
		t.Fatalf("decode channel_data %q: %v", channelData, err)
	}
	if m.UserID != "12.34" {
		t.Errorf("default member id = %q, want the socket id", m.UserID)
	}

	payload := "12.34:presence-room:" + channelData
	if !signature.Valid("app-key", "app-secret", payload, fields["auth"]) {
		t.Errorf("auth token %q does not cover the channel data", fields["auth"])
	}
}

func TestChannelAuthCustomMember(t *testing.T) {
	srv := NewServer("app-key", "app-secret", WithMember(
		func(r *http.Request, socketID, channel string) (string, any) {
			return "42", map[string]string{"name": "ann"}
		},
	))
	defer srv.Close()

	_, fields := postForm(t, srv.ChannelURL(), url.Values{
		"socket_id":    {"1.1"},
		"channel_name": {"presence-room"},
	})

	var m struct {
		UserID   string            `json:"user_id"`
		UserInfo map[string]string `json:"user_info"`
	}
	if err := json.Unmarshal([]byte(fields["channel_data"]), &m); err != nil {
		t.Fatalf("decode channel_data: %v", err)
	}
	if m.UserID != "42" {
		t.Errorf("member id = %q, want %q", m.UserID, "42")
	}
	if m.UserInfo["name"] != "ann" {
		t.Errorf("member info = %v", m.UserInfo)
	}
}

func TestChannelAuthDenied(t *testing.T) {
	srv := NewServer("app-key", "app-secret", WithAuthorize(
		func(r *http.Request, socketID, channel string) error {
			if strings.HasPrefix(channel, "private-admin") {
				return errors.New("not an admin")
			}
			return nil
		},
	))
	defer srv.Close()

	status, fields := postForm(t, srv.ChannelURL(), url.Values{
		"socket_id":    {"1.1"},
		"channel_name": {"private-admin-ops"},
	})
	if status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", status)
	}
	if fields["error"] != "not an admin" {
		t.Errorf("error = %q", fields["error"])
	}

	status, _ = postForm(t, srv.ChannelURL(), url.Values{
		"socket_id":    {"1.1"},
		"channel_name": {"private-orders"},
	})
	if status != http.StatusOK {
		t.Errorf("allowed channel status = %d, want 200", status)
	}
}

func TestChannelAuthMissingFields(t *testing.T) {
	srv := NewServer("app-key", "app-secret")
	defer srv.Close()

	tests := []struct {
		name string
		form url.Values
	}{
		{"no socket id", url.Values{"channel_name": {"private-x"}}},
		{"no channel", url.Values{"socket_id": {"1.1"}}},
		{"empty form", url.Values{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := postForm(t, srv.ChannelURL(), tt.form)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestUserAuth(t *testing.T) {
	srv := NewServer("app-key", "app-secret")
	defer srv.Close()

	status, fields := postForm(t, srv.UserURL(), url.Values{
		"socket_id": {"7.7"},
	})

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	userData := fields["user_data"]
	var u struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(userData), &u); err != nil {
		t.Fatalf("decode user_data %q: %v", userData, err)
	}
	if u.ID != "7.7" {
		t.Errorf("default user id = %q, want the socket id", u.ID)
	}
	if !signature.Valid("app-key", "app-secret", "7.7::user::"+userData, fields["auth"]) {
		t.Errorf("auth token %q does not verify", fields["auth"])
	}
}

func TestCustomPaths(t *testing.T) {
	srv := NewServer("app-key", "app-secret",
		WithChannelAuthPath("/auth/channel"),
		WithUserAuthPath("/auth/user"),
	)
	defer srv.Close()

	if !strings.HasSuffix(srv.ChannelURL(), "/auth/channel") {
		t.Errorf("ChannelURL() = %q", srv.ChannelURL())
	}
	if !strings.HasSuffix(srv.UserURL(), "/auth/user") {
		t.Errorf("UserURL() = %q", srv.UserURL())
	}

	status, _ := postForm(t, srv.ChannelURL(), url.Values{
		"socket_id":    {"1.1"},
		"channel_name": {"private-x"},
	})
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}

// The handler should satisfy a real client-side authorizer end to end.
func TestWorksWithEndpointAuthorizer(t *testing.T) {
	srv := NewServer("app-key", "app-secret")
	defer srv.Close()

	auth := client.NewEndpointAuthorizer(srv.ChannelURL(), nil)
	resp, err := auth.Authorize(context.Background(), "9.9", "presence-room")
	if err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}
	if resp.Auth == "" || resp.ChannelData == "" {
		t.Errorf("Authorize() = %+v, want auth and channel_data", resp)
	}

	userAuth := client.NewEndpointUserAuthorizer(srv.UserURL(), nil)
	uresp, err := userAuth.AuthorizeUser(context.Background(), "9.9")
	if err != nil {
		t.Fatalf("AuthorizeUser() error = %v", err)
	}
	if uresp.Auth == "" || uresp.UserData == "" {
		t.Errorf("AuthorizeUser() = %+v, want auth and user_data", uresp)
	}
}
