package vfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dd0wney/cluso-dbvfs/pkg/header"
)

func TestOSProvider_OpenNonexistentFails(t *testing.T) {
	p := NewOSProvider()
	path := filepath.Join(t.TempDir(), "missing.db")

	if _, err := p.Open(path, OpenReadWrite); err == nil {
		t.Fatal("Expected open without create to fail for a missing file")
	}
}

func TestOSFile_ShortRead(t *testing.T) {
	p := NewOSProvider()
	path := filepath.Join(t.TempDir(), "short.db")
	if err := os.WriteFile(path, []byte("abc"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := p.Open(path, OpenReadWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 8)
	if err := f.ReadAt(buf, 0); !errors.Is(err, ErrShortRead) {
		t.Fatalf("Expected ErrShortRead, got %v", err)
	}
	if !bytes.Equal(buf[:3], []byte("abc")) {
		t.Error("Expected available prefix copied in on short read")
	}
	for i := 3; i < len(buf); i++ {
		if buf[i] != 0 {
			t.Error("Expected remainder zeroed on short read")
		}
	}
}

func TestOSFile_LockLevels(t *testing.T) {
	p := NewOSProvider()
	path := filepath.Join(t.TempDir(), "locks.db")

	f, err := p.Open(path, OpenReadWrite|OpenCreate)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	reserved, err := f.CheckReservedLock()
	if err != nil {
		t.Fatalf("CheckReservedLock failed: %v", err)
	}
	if reserved {
		t.Error("Expected no reserved lock on a fresh handle")
	}

	if err := f.Lock(LockExclusive); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	reserved, _ = f.CheckReservedLock()
	if !reserved {
		t.Error("Expected exclusive lock to imply reserved")
	}

	if err := f.Unlock(LockNone); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	reserved, _ = f.CheckReservedLock()
	if reserved {
		t.Error("Expected lock released")
	}
}

func TestOSProvider_AccessAndDelete(t *testing.T) {
	p := NewOSProvider()
	path := filepath.Join(t.TempDir(), "probe.db")

	exists, err := p.Access(path, AccessExists)
	if err != nil {
		t.Fatalf("Access failed: %v", err)
	}
	if exists {
		t.Error("Expected missing file to report not existing")
	}

	f, err := p.Open(path, OpenReadWrite|OpenCreate)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	f.Close()

	exists, _ = p.Access(path, AccessExists)
	if !exists {
		t.Error("Expected created file to exist")
	}

	if err := p.Delete(path, true); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, _ = p.Access(path, AccessExists)
	if exists {
		t.Error("Expected file gone after delete")
	}
}

func TestOSProvider_FullPathname(t *testing.T) {
	p := NewOSProvider()
	full, err := p.FullPathname("relative.db")
	if err != nil {
		t.Fatalf("FullPathname failed: %v", err)
	}
	if !filepath.IsAbs(full) {
		t.Errorf("Expected absolute path, got %q", full)
	}
}

// TestOverlayOverOS_EndToEnd exercises the full stack against a real
// filesystem: create, write, close, reopen, read back, and verify the
// physical layout on disk.
func TestOverlayOverOS_EndToEnd(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(NewOSProvider()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := RegisterOverlay(reg, "os", DefaultOptions()); err != nil {
		t.Fatalf("RegisterOverlay failed: %v", err)
	}
	overlay := reg.Default()

	path := filepath.Join(t.TempDir(), "app.db")
	payload := bytes.Repeat([]byte{0x5C}, 100)

	f, err := overlay.Open(path, OpenReadWrite|OpenCreate)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := f.WriteAt(payload, 0); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Physical layout: header region, then the payload.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != int64(100+DefaultSectorSize) {
		t.Fatalf("Expected physical size %d, got %d", 100+DefaultSectorSize, info.Size())
	}

	physical, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	h, ok, err := header.Decode(physical[:DefaultSectorSize])
	if err != nil || !ok {
		t.Fatalf("On-disk prefix does not decode as a header: ok=%v err=%v", ok, err)
	}
	if h.ReserveSize != DefaultSectorSize {
		t.Errorf("Expected reserve size %d, got %d", DefaultSectorSize, h.ReserveSize)
	}
	if !bytes.Equal(physical[DefaultSectorSize:], payload) {
		t.Error("Payload must sit immediately after the header region")
	}

	// Reopen through the overlay and read the logical view.
	f, err = overlay.Open(path, OpenReadWrite)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 100 {
		t.Errorf("Expected logical size 100, got %d", size)
	}

	got := make([]byte, 100)
	if err := f.ReadAt(got, 0); err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("Round-tripped payload mismatch")
	}
}

func TestOverlayOverOS_ShmUnsupported(t *testing.T) {
	overlay := NewOverlayProvider(NewOSProvider(), DefaultOptions())
	path := filepath.Join(t.TempDir(), "noshm.db")

	f, err := overlay.Open(path, OpenReadWrite|OpenCreate)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	of := f.(*OverlayFile)
	if _, err := of.ShmMap(0, 4096, true); !errors.Is(err, ErrShmUnsupported) {
		t.Errorf("Expected ErrShmUnsupported over os files, got %v", err)
	}
	if err := of.ShmLock(0, 1, 0); !errors.Is(err, ErrShmUnsupported) {
		t.Errorf("Expected ErrShmUnsupported, got %v", err)
	}
}
