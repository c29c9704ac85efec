package pushkit

import (
	"errors"
	"testing"
)

func TestNewValidatesKey(t *testing.T) {
	if _, err := New("", nil); !errors.Is(err, ErrMissingKey) {
		t.Errorf("New(\"\") error = %v, want ErrMissingKey", err)
	}

	c, err := New("app-key", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := c.State(); got != StateDisconnected {
		t.Errorf("State() = %v, want StateDisconnected", got)
	}
}

func TestOptionsReExports(t *testing.T) {
	opts := DefaultOptions().WithCluster("eu")
	want := "wss://ws-eu.pusher.com:443/app/app-key?client=pushkit&version=0.3.0&protocol=7"

	opts.Key = "app-key"
	if got := opts.URL(); got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestChannelKinds(t *testing.T) {
	tests := []struct {
		kind ChannelKind
		want string
	}{
		{KindPublic, "public"},
		{KindPrivate, "private"},
		{KindPresence, "presence"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("kind.String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDefaultClientAccessor(t *testing.T) {
	t.Cleanup(func() { SetDefault(nil) })

	if Default() != nil {
		t.Fatal("Default() should start nil")
	}

	c, err := New("app-key", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	SetDefault(c)
	if Default() != c {
		t.Error("Default() should return the installed client")
	}

	SetDefault(nil)
	if Default() != nil {
		t.Error("Default() should be clearable")
	}
}
