package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestKindDiscrimination(t *testing.T) {
	err := New(KindValidation, "bad field %q", "crop")

	if GetKind(err) != KindValidation {
		t.Fatalf("expected %s, got %s", KindValidation, GetKind(err))
	}

	if !Is(err, KindValidation) {
		t.Fatal("Is should match the kind")
	}

	if Is(err, KindOverloaded) {
		t.Fatal("Is must not match a different kind")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := Wrap(KindCodec, cause, "decode failed")

	if !stderrors.Is(err, cause) {
		t.Fatal("the cause must survive unwrapping")
	}

	if GetKind(err) != KindCodec {
		t.Fatalf("expected %s, got %s", KindCodec, GetKind(err))
	}
}

func TestGetKindOnForeignError(t *testing.T) {
	if kind := GetKind(fmt.Errorf("plain")); kind != "" {
		t.Fatalf("expected no kind, got %s", kind)
	}

	if kind := GetKind(nil); kind != "" {
		t.Fatalf("expected no kind for nil, got %s", kind)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(KindTimedOut, "job timed out")
	outer := fmt.Errorf("request failed: %w", inner)

	if GetKind(outer) != KindTimedOut {
		t.Fatal("the kind must survive fmt wrapping")
	}
}
