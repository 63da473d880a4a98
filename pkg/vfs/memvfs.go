package vfs

import (
	"crypto/rand"
	"errors"
	"io/fs"
	"path"
	"sync"
	"time"
)

// MemProvider is an in-memory provider used in tests and embedded setups. It
// supports deterministic sector sizes, a coarse shared-memory region, and
// fault injection hooks so header edge cases can be exercised without a real
// filesystem.
type MemProvider struct {
	mu         sync.Mutex
	files      map[string][]byte
	sectorSize int

	// Fault injection hooks. When non-nil and returning a non-nil error, the
	// corresponding file operation fails with that error instead of running.
	ReadErr  func(name string, off int64, n int) error
	WriteErr func(name string, off int64, n int) error
	SizeErr  func(name string) error
}

// NewMemProvider returns an in-memory provider with the given sector size.
func NewMemProvider(sectorSize int) *MemProvider {
	return &MemProvider{
		files:      make(map[string][]byte),
		sectorSize: sectorSize,
	}
}

// Name returns the provider's registry name.
func (p *MemProvider) Name() string { return "mem" }

// Open opens or creates an in-memory file. The byte slice is shared between
// handles opened on the same name, mirroring a filesystem.
func (p *MemProvider) Open(name string, flags OpenFlags) (File, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.files[name]; !ok {
		if flags&OpenCreate == 0 {
			return nil, &Error{Op: "Open", Name: name, Cause: ErrFileNotFound}
		}
		p.files[name] = nil
	}
	return &memFile{
		provider: p,
		name:     name,
		readOnly: flags&OpenReadWrite == 0,
	}, nil
}

// Seed preloads a file's physical content, bypassing the overlay. Tests use
// it to fabricate existing, foreign, or corrupt files.
func (p *MemProvider) Seed(name string, content []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files[name] = append([]byte(nil), content...)
}

// Raw returns a copy of a file's physical content.
func (p *MemProvider) Raw(name string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, ok := p.files[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Delete removes a file.
func (p *MemProvider) Delete(name string, syncDir bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.files[name]; !ok {
		return &Error{Op: "Delete", Name: name, Cause: ErrFileNotFound}
	}
	delete(p.files, name)
	return nil
}

// Access reports whether a file exists; in-memory files are always readable
// and writable.
func (p *MemProvider) Access(name string, flags AccessFlags) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.files[name]
	return ok, nil
}

// FullPathname cleans the name; there is no directory hierarchy to resolve.
func (p *MemProvider) FullPathname(name string) (string, error) {
	return path.Clean(name), nil
}

// Randomness fills b with random bytes.
func (p *MemProvider) Randomness(b []byte) (int, error) {
	return rand.Read(b)
}

// Sleep is a no-op so tests never stall.
func (p *MemProvider) Sleep(d time.Duration) {}

// CurrentTime returns the wall clock time.
func (p *MemProvider) CurrentTime() time.Time { return time.Now() }

// GetLastError always returns nil; memory operations carry their own errors.
func (p *MemProvider) GetLastError() error { return nil }

// memFile is a handle onto a MemProvider file.
type memFile struct {
	provider *MemProvider
	name     string
	readOnly bool

	mu        sync.Mutex
	lockLevel LockLevel
	closed    bool
	shm       []byte
}

func (m *memFile) ReadAt(p []byte, off int64) error {
	if m.isClosed() {
		return ErrFileClosed
	}
	mp := m.provider
	if mp.ReadErr != nil {
		if err := mp.ReadErr(m.name, off, len(p)); err != nil {
			return err
		}
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	data, ok := mp.files[m.name]
	if !ok {
		return &Error{Op: "ReadAt", Name: m.name, Cause: fs.ErrNotExist}
	}
	if off >= int64(len(data)) {
		for i := range p {
			p[i] = 0
		}
		return ErrShortRead
	}
	n := copy(p, data[off:])
	if n < len(p) {
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		return ErrShortRead
	}
	return nil
}

func (m *memFile) WriteAt(p []byte, off int64) error {
	if m.isClosed() {
		return ErrFileClosed
	}
	if m.readOnly {
		return ErrReadOnly
	}
	mp := m.provider
	if mp.WriteErr != nil {
		if err := mp.WriteErr(m.name, off, len(p)); err != nil {
			return err
		}
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	data := mp.files[m.name]
	end := off + int64(len(p))
	if end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[off:end], p)
	mp.files[m.name] = data
	return nil
}

func (m *memFile) Truncate(size int64) error {
	if m.isClosed() {
		return ErrFileClosed
	}
	if m.readOnly {
		return ErrReadOnly
	}
	mp := m.provider
	mp.mu.Lock()
	defer mp.mu.Unlock()
	data := mp.files[m.name]
	if size <= int64(len(data)) {
		mp.files[m.name] = data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, data)
	mp.files[m.name] = grown
	return nil
}

func (m *memFile) Size() (int64, error) {
	if m.isClosed() {
		return 0, ErrFileClosed
	}
	mp := m.provider
	if mp.SizeErr != nil {
		if err := mp.SizeErr(m.name); err != nil {
			return 0, err
		}
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return int64(len(mp.files[m.name])), nil
}

func (m *memFile) Sync(flags SyncFlags) error {
	if m.isClosed() {
		return ErrFileClosed
	}
	return nil
}

func (m *memFile) Lock(level LockLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if level > m.lockLevel {
		m.lockLevel = level
	}
	return nil
}

func (m *memFile) Unlock(level LockLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if level < m.lockLevel {
		m.lockLevel = level
	}
	return nil
}

func (m *memFile) CheckReservedLock() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lockLevel >= LockReserved, nil
}

func (m *memFile) FileControl(op int, arg any) error { return ErrNotSupported }

func (m *memFile) SectorSize() int { return m.provider.sectorSize }

func (m *memFile) DeviceCharacteristics() DeviceFlags { return IOCapAtomic }

func (m *memFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrFileClosed
	}
	m.closed = true
	return nil
}

func (m *memFile) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Shared-memory support: a single growable region, enough to exercise the
// overlay's capability probe and passthrough wiring.

func (m *memFile) ShmMap(region, regionSize int, extend bool) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	need := (region + 1) * regionSize
	if len(m.shm) < need {
		if !extend {
			return nil, errors.New("shm region not mapped")
		}
		grown := make([]byte, need)
		copy(grown, m.shm)
		m.shm = grown
	}
	return m.shm[region*regionSize : need], nil
}

func (m *memFile) ShmLock(offset, n int, flags int) error { return nil }

func (m *memFile) ShmBarrier() {}

func (m *memFile) ShmUnmap(deleteFlag bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if deleteFlag {
		m.shm = nil
	}
	return nil
}

var (
	_ Provider         = (*MemProvider)(nil)
	_ File             = (*memFile)(nil)
	_ SharedMemoryFile = (*memFile)(nil)
)
