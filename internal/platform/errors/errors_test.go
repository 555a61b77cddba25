package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapNilReturnsNil(t *testing.T) {
	if err := Wrap(KindStorage, "op", "msg", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestWrapPreservesExistingTypedError(t *testing.T) {
	inner := New(KindAuth, "token.verify", "bad signature")
	wrapped := Wrap(KindStorage, "user.find", "lookup failed", inner)
	if wrapped != inner {
		t.Fatalf("expected inner error to pass through, got %v", wrapped)
	}
}

func TestErrorStringIncludesKindAndOp(t *testing.T) {
	err := Wrap(KindRealtime, "hub.join", "join failed", errors.New("boom"))
	want := "[realtime:hub.join] join failed: boom"
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestIsKindWalksChain(t *testing.T) {
	inner := New(KindStorage, "device.save", "insert failed")
	outer := fmt.Errorf("request failed: %w", inner)

	if !IsKind(outer, KindStorage) {
		t.Fatalf("expected chain to match storage kind")
	}
	if IsKind(outer, KindAuth) {
		t.Fatalf("did not expect auth kind to match")
	}
	if IsKind(nil, KindStorage) {
		t.Fatalf("nil error must not match any kind")
	}
}
