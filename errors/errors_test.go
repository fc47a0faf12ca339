package errors

import (
	"strings"
	"testing"
)

func TestNewIncludesCallerLocation(t *testing.T) {
	err := New("something %s", "broke")
	if !strings.Contains(err.Error(), "errors_test.go:") {
		t.Errorf("error %q has no caller location", err)
	}
	if !strings.Contains(err.Error(), "something broke") {
		t.Errorf("error %q lost its message", err)
	}
}

func TestWrapfPreservesSentinel(t *testing.T) {
	sentinel := New("not open")
	wrapped := Wrapf(Wrapf(sentinel, "send ping"), "keepalive tick")
	if !Is(wrapped, sentinel) {
		t.Error("sentinel lost through two Wrapf layers")
	}
	if !strings.Contains(wrapped.Error(), "keepalive tick") ||
		!strings.Contains(wrapped.Error(), "send ping") {
		t.Errorf("context lost: %q", wrapped)
	}
}

func TestWrapfNil(t *testing.T) {
	if err := Wrapf(nil, "context"); err != nil {
		t.Errorf("Wrapf(nil) = %v, want nil", err)
	}
}
