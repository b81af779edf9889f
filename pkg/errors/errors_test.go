package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSessionError_Error(t *testing.T) {
	err := New(KindNoConnectivity, "all candidate pairs failed")
	expected := "NO_CONNECTIVITY: all candidate pairs failed"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestSessionError_WithCause(t *testing.T) {
	originalErr := errors.New("connection refused")
	err := Wrap(originalErr, KindTransportLost, "socket closed mid-stream")

	if err.Cause != originalErr {
		t.Errorf("Cause = %v, want %v", err.Cause, originalErr)
	}

	if !errors.Is(err, originalErr) {
		t.Errorf("errors.Is should see through the wrap")
	}

	errorMsg := err.Error()
	if !contains(errorMsg, "connection refused") {
		t.Errorf("Error() should contain cause, got: %v", errorMsg)
	}
}

func TestSessionError_WithContext(t *testing.T) {
	err := New(KindInvalidParameters, "bad fps")
	err.WithContext("fps", -1).WithContext("role", "host")

	if err.Context["fps"] != -1 {
		t.Errorf("Context[fps] = %v, want -1", err.Context["fps"])
	}
	if err.Context["role"] != "host" {
		t.Errorf("Context[role] = %v, want 'host'", err.Context["role"])
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NewTimeout("negotiation deadline elapsed")); got != KindTimeout {
		t.Errorf("KindOf = %v, want %v", got, KindTimeout)
	}

	wrapped := fmt.Errorf("outer: %w", NewCaptureUnavailable("no screen 7"))
	if got := KindOf(wrapped); got != KindCaptureUnavailable {
		t.Errorf("KindOf through wrap = %v, want %v", got, KindCaptureUnavailable)
	}

	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindInternal)
	}
}

func TestIsKind(t *testing.T) {
	err := NewDecoderInitFailed("player exited")
	if !IsKind(err, KindDecoderInitFailed) {
		t.Errorf("IsKind should match the constructed kind")
	}
	if IsKind(err, KindEncoderInitFailed) {
		t.Errorf("IsKind should not match a different kind")
	}
}

func TestGetSessionError_Nil(t *testing.T) {
	if GetSessionError(nil) != nil {
		t.Errorf("GetSessionError(nil) should be nil")
	}
	if GetSessionError(errors.New("plain")) != nil {
		t.Errorf("GetSessionError(plain) should be nil")
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
