package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrGameFull,
		ErrGameOver,
		ErrNotYourTurn,
		ErrBadRequest,
		ErrNoPermission,
		ErrNoResource,
		ErrInvalidTarget,
		ErrConflict,
		ErrBlocked,
		ErrStale,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestRejectError_As(t *testing.T) {
	err := fmt.Errorf("move u1: %w", Reject(ErrBlocked, "tile (%d,%d) not pathable", 2, 3))
	var rej *RejectError
	if !errors.As(err, &rej) {
		t.Fatalf("errors.As failed for %v", err)
	}
	if rej.Code != ErrBlocked {
		t.Fatalf("code=%q", rej.Code)
	}
	if got := rej.Error(); got != "E_BLOCKED: tile (2,3) not pathable" {
		t.Fatalf("Error()=%q", got)
	}
	if got := (&RejectError{Code: ErrStale}).Error(); got != ErrStale {
		t.Fatalf("Error()=%q", got)
	}
}

func TestNewRequestID_Unique(t *testing.T) {
	a, b := NewRequestID(ActionMove), NewRequestID(ActionMove)
	if a == b {
		t.Fatalf("duplicate ids: %q", a)
	}
	if len(a) < len("A_MOVE_") || a[:len("A_MOVE_")] != "A_MOVE_" {
		t.Fatalf("unexpected id %q", a)
	}
}
