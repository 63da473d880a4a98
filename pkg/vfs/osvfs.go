package vfs

import (
	"crypto/rand"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// File permissions for created database files.
	filePermissions = 0644

	// DefaultSectorSize is reported when the OS gives no better answer.
	// It matches the common 4K device sector and keeps lazily created
	// headers page aligned.
	DefaultSectorSize = 4096
)

// OSProvider is the OS-backed provider: files are os.File handles and
// factory-level operations map onto the standard library.
type OSProvider struct {
	mu      sync.Mutex
	lastErr error
}

// NewOSProvider returns an OS-backed provider.
func NewOSProvider() *OSProvider {
	return &OSProvider{}
}

// Name returns the provider's registry name.
func (p *OSProvider) Name() string { return "os" }

// Open opens or creates a physical file. Without OpenCreate, opening a
// nonexistent file fails hard and the error is propagated unchanged.
func (p *OSProvider) Open(name string, flags OpenFlags) (File, error) {
	oflags := 0
	switch {
	case flags&OpenReadWrite != 0:
		oflags |= os.O_RDWR
	default:
		oflags |= os.O_RDONLY
	}
	if flags&OpenCreate != 0 {
		oflags |= os.O_CREATE
	}
	if flags&OpenExclusive != 0 {
		oflags |= os.O_EXCL
	}

	f, err := os.OpenFile(name, oflags, filePermissions)
	if err != nil {
		p.setLastError(err)
		return nil, err
	}
	return &osFile{
		f:        f,
		readOnly: flags&OpenReadWrite == 0,
	}, nil
}

// Delete removes a file. With syncDir, the containing directory is synced so
// the unlink itself is durable.
func (p *OSProvider) Delete(name string, syncDir bool) error {
	if err := os.Remove(name); err != nil {
		p.setLastError(err)
		return err
	}
	if syncDir {
		dir, err := os.Open(filepath.Dir(name))
		if err != nil {
			return nil // deletion succeeded; directory sync is best effort
		}
		defer dir.Close()
		_ = dir.Sync()
	}
	return nil
}

// Access probes file existence or permissions.
func (p *OSProvider) Access(name string, flags AccessFlags) (bool, error) {
	info, err := os.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		p.setLastError(err)
		return false, err
	}
	switch flags {
	case AccessExists:
		return true, nil
	case AccessRead:
		return info.Mode().Perm()&0400 != 0, nil
	case AccessReadWrite:
		return info.Mode().Perm()&0600 == 0600, nil
	default:
		return false, ErrNotSupported
	}
}

// FullPathname resolves name to an absolute path.
func (p *OSProvider) FullPathname(name string) (string, error) {
	return filepath.Abs(name)
}

// Randomness fills b with cryptographically strong random bytes.
func (p *OSProvider) Randomness(b []byte) (int, error) {
	return rand.Read(b)
}

// Sleep blocks the calling goroutine.
func (p *OSProvider) Sleep(d time.Duration) { time.Sleep(d) }

// CurrentTime returns the wall clock time.
func (p *OSProvider) CurrentTime() time.Time { return time.Now() }

// GetLastError returns the most recent factory-level error.
func (p *OSProvider) GetLastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *OSProvider) setLastError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// osFile adapts an os.File to the File capability set. Lock levels are
// advisory and tracked in process, which matches single-process database use;
// cross-process locking is the responsibility of a more specialized provider.
type osFile struct {
	f        *os.File
	readOnly bool

	mu        sync.Mutex
	lockLevel LockLevel
	closed    bool
}

// ReadAt fills p completely from the physical offset. Reads that run past the
// end of the file return ErrShortRead with the available prefix copied in and
// the remainder zeroed.
func (o *osFile) ReadAt(p []byte, off int64) error {
	if o.isClosed() {
		return ErrFileClosed
	}
	n, err := o.f.ReadAt(p, off)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		return ErrShortRead
	}
	return err
}

func (o *osFile) WriteAt(p []byte, off int64) error {
	if o.isClosed() {
		return ErrFileClosed
	}
	if o.readOnly {
		return ErrReadOnly
	}
	_, err := o.f.WriteAt(p, off)
	return err
}

func (o *osFile) Truncate(size int64) error {
	if o.isClosed() {
		return ErrFileClosed
	}
	if o.readOnly {
		return ErrReadOnly
	}
	return o.f.Truncate(size)
}

func (o *osFile) Size() (int64, error) {
	if o.isClosed() {
		return 0, ErrFileClosed
	}
	info, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (o *osFile) Sync(flags SyncFlags) error {
	if o.isClosed() {
		return ErrFileClosed
	}
	return o.f.Sync()
}

// Lock raises the advisory lock level. Levels never skip downward through
// Lock; use Unlock to release.
func (o *osFile) Lock(level LockLevel) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if level > o.lockLevel {
		o.lockLevel = level
	}
	return nil
}

func (o *osFile) Unlock(level LockLevel) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if level < o.lockLevel {
		o.lockLevel = level
	}
	return nil
}

func (o *osFile) CheckReservedLock() (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lockLevel >= LockReserved, nil
}

func (o *osFile) FileControl(op int, arg any) error { return ErrNotSupported }

func (o *osFile) SectorSize() int { return DefaultSectorSize }

func (o *osFile) DeviceCharacteristics() DeviceFlags { return 0 }

func (o *osFile) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrFileClosed
	}
	o.closed = true
	o.mu.Unlock()
	return o.f.Close()
}

func (o *osFile) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

var (
	_ Provider = (*OSProvider)(nil)
	_ File     = (*osFile)(nil)
)
