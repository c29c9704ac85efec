package protocol

import "testing"

func TestPolicyFor(t *testing.T) {
	tests := []struct {
		name string
		code int
		want ReconnectPolicy
	}{
		{name: "app_not_found", code: 4001, want: ReconnectNever},
		{name: "unauthorized", code: 4009, want: ReconnectNever},
		{name: "over_capacity", code: 4100, want: ReconnectBackoff},
		{name: "generic_reconnect", code: 4200, want: ReconnectImmediately},
		{name: "pong_not_received", code: 4201, want: ReconnectImmediately},
		{name: "unregistered_fatal_range", code: 4050, want: ReconnectNever},
		{name: "unregistered_backoff_range", code: 4150, want: ReconnectBackoff},
		{name: "unregistered_immediate_range", code: 4250, want: ReconnectImmediately},
		{name: "abnormal_ws_close", code: 1006, want: ReconnectBackoff},
		{name: "normal_ws_close", code: 1000, want: ReconnectBackoff},
		{name: "zero", code: 0, want: ReconnectBackoff},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := PolicyFor(tc.code); got != tc.want {
				t.Errorf("PolicyFor(%d) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestLookupCode(t *testing.T) {
	info, ok := LookupCode(4003)
	if !ok {
		t.Fatal("LookupCode(4003) not found")
	}
	if info.Message != "application disabled" {
		t.Errorf("Message = %q, want %q", info.Message, "application disabled")
	}
	if info.Policy != ReconnectNever {
		t.Errorf("Policy = %v, want ReconnectNever", info.Policy)
	}

	if _, ok := LookupCode(9999); ok {
		t.Error("LookupCode(9999) found, want miss")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(4001) {
		t.Error("IsFatal(4001) = false, want true")
	}
	if IsFatal(4201) {
		t.Error("IsFatal(4201) = true, want false")
	}
	if IsFatal(1006) {
		t.Error("IsFatal(1006) = true, want false")
	}
}
