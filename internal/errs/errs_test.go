package errs

import (
	"errors"
	"testing"
)

func TestNewCarriesCode(t *testing.T) {
	err := New(CodeNotFound, "missing entry")
	if CodeOf(err) != CodeNotFound {
		t.Errorf("expected code %q, got %q", CodeNotFound, CodeOf(err))
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to be true")
	}
}

func TestErrorfFormatsMessage(t *testing.T) {
	err := Errorf(CodeInvalidInput, "bad value %d", 42)
	if err.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
	if CodeOf(err) != CodeInvalidInput {
		t.Errorf("expected code %q, got %q", CodeInvalidInput, CodeOf(err))
	}
}

func TestWrapPreservesChainAndNilPassthrough(t *testing.T) {
	if Wrap(nil, CodeIOFailure, "should stay nil") != nil {
		t.Error("expected Wrap(nil, ...) to return nil")
	}

	base := errors.New("disk full")
	wrapped := Wrap(base, CodeIOFailure, "writing shard")
	if CodeOf(wrapped) != CodeIOFailure {
		t.Errorf("expected code %q, got %q", CodeIOFailure, CodeOf(wrapped))
	}
	if !errors.Is(wrapped, base) {
		t.Error("expected errors.Is to find the wrapped base error")
	}
}

func TestWrapfPreservesChain(t *testing.T) {
	base := errors.New("conflict")
	wrapped := Wrapf(base, CodeConflict, "entry %s changed underfoot", "e1")
	if !IsConflict(wrapped) {
		t.Error("expected IsConflict to be true")
	}
}

func TestCodeOfOnPlainErrorIsEmpty(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != "" {
		t.Errorf("expected empty code on a plain error, got %q", got)
	}
}

func TestCodeOfOnNilIsEmpty(t *testing.T) {
	if got := CodeOf(nil); got != "" {
		t.Errorf("expected empty code on nil, got %q", got)
	}
}

func TestIsLockTimeoutAndStoreCorrupt(t *testing.T) {
	if !IsLockTimeout(New(CodeLockTimeout, "locked")) {
		t.Error("expected IsLockTimeout to be true")
	}
	if !IsStoreCorrupt(New(CodeStoreCorrupt, "bad shard")) {
		t.Error("expected IsStoreCorrupt to be true")
	}
}
