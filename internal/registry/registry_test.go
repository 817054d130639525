package registry

import (
	"errors"
	"testing"

	"github.com/example/harmonics-go/internal/harmonicserr"
	"github.com/example/harmonics-go/internal/tensor"
)

func identity(t tensor.Tensor) (tensor.Tensor, error) { return t, nil }

func TestRegisterAndLookupActivation(t *testing.T) {
	r := New()
	if err := r.RegisterActivation("relu", identity, true); err != nil {
		t.Fatalf("register: %v", err)
	}

	fn, err := r.Activation("relu")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if fn == nil {
		t.Fatalf("got nil function")
	}
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	r := New()
	if err := r.RegisterActivation("relu", identity, false); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := r.RegisterActivation("relu", identity, false)
	if !errors.Is(err, harmonicserr.ErrParse) {
		t.Fatalf("expected ErrParse on duplicate, got %v", err)
	}
}

func TestOverrideAllowed(t *testing.T) {
	r := New()
	if err := r.RegisterActivation("relu", identity, true); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.RegisterActivation("relu", identity, true); err != nil {
		t.Fatalf("override should succeed: %v", err)
	}
}

func TestUnknownLookupErrors(t *testing.T) {
	r := New()
	if _, err := r.Activation("missing"); !errors.Is(err, harmonicserr.ErrParse) {
		t.Fatalf("expected ErrParse on unknown lookup, got %v", err)
	}
	if _, err := r.Loss("missing"); !errors.Is(err, harmonicserr.ErrParse) {
		t.Fatalf("expected ErrParse on unknown loss, got %v", err)
	}
	if _, err := r.Layer("missing"); !errors.Is(err, harmonicserr.ErrParse) {
		t.Fatalf("expected ErrParse on unknown layer, got %v", err)
	}
}
