package vfs

import (
	"errors"
	"testing"
)

func TestRegistry_RegisterAndFind(t *testing.T) {
	reg := NewRegistry()
	mem := NewMemProvider(512)

	if err := reg.Register(mem); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	p, ok := reg.Find("mem")
	if !ok {
		t.Fatal("Expected to find registered provider")
	}
	if p != Provider(mem) {
		t.Error("Find returned a different provider")
	}

	// First registration becomes the default.
	if reg.Default() != Provider(mem) {
		t.Error("Expected first registered provider to be default")
	}
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewMemProvider(512)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := reg.Register(NewMemProvider(512)); !errors.Is(err, ErrProviderExists) {
		t.Errorf("Expected ErrProviderExists, got %v", err)
	}
}

func TestRegistry_SetDefaultUnknown(t *testing.T) {
	reg := NewRegistry()
	if err := reg.SetDefault("nope"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegisterOverlay(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewMemProvider(512)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := RegisterOverlay(reg, "mem", DefaultOptions()); err != nil {
		t.Fatalf("RegisterOverlay failed: %v", err)
	}

	p, ok := reg.Find(OverlayName)
	if !ok {
		t.Fatal("Expected overlay provider registered under its well-known name")
	}
	if reg.Default() != p {
		t.Error("Expected overlay to become the default provider")
	}
}

func TestRegisterOverlay_Idempotent(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewMemProvider(512)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := RegisterOverlay(reg, "mem", DefaultOptions()); err != nil {
		t.Fatalf("First RegisterOverlay failed: %v", err)
	}
	first, _ := reg.Find(OverlayName)

	if err := RegisterOverlay(reg, "mem", DefaultOptions()); err != nil {
		t.Fatalf("Repeated RegisterOverlay must be a no-op, got %v", err)
	}
	second, _ := reg.Find(OverlayName)

	if first != second {
		t.Error("Repeated registration must keep the original overlay provider")
	}
	if reg.Default() != first {
		t.Error("Repeated registration must re-assert the overlay as default")
	}
}

func TestRegisterOverlay_UnderlyingNotFound(t *testing.T) {
	reg := NewRegistry()
	err := RegisterOverlay(reg, "absent", DefaultOptions())
	if !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Expected ErrProviderNotFound, got %v", err)
	}
}

func TestOverlayProvider_FactoryPassthrough(t *testing.T) {
	mem := NewMemProvider(512)
	overlay := NewOverlayProvider(mem, DefaultOptions())

	f := mustOpen(t, overlay, "fwd.db", OpenReadWrite|OpenCreate)
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	exists, err := overlay.Access("fwd.db", AccessExists)
	if err != nil || !exists {
		t.Errorf("Expected Access forwarded to wrapped provider, got %v %v", exists, err)
	}

	full, err := overlay.FullPathname("./fwd.db")
	if err != nil || full != "fwd.db" {
		t.Errorf("Expected cleaned pathname, got %q %v", full, err)
	}

	buf := make([]byte, 8)
	if n, err := overlay.Randomness(buf); err != nil || n != len(buf) {
		t.Errorf("Expected randomness forwarded, got n=%d err=%v", n, err)
	}

	if err := overlay.Delete("fwd.db", false); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, _ = overlay.Access("fwd.db", AccessExists)
	if exists {
		t.Error("Expected file gone after forwarded delete")
	}

	if overlay.Base() != Provider(mem) {
		t.Error("Expected Base to return the wrapped provider")
	}
}
