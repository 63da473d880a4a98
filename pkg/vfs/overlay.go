package vfs

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-dbvfs/pkg/header"
	"github.com/dd0wney/cluso-dbvfs/pkg/logging"
)

// Operating modes of an overlay file handle.
const (
	// ModeHeader: a valid header was found, or one is pending creation; all
	// logical offsets are shifted by the reserve size.
	ModeHeader = "header"

	// ModePassthrough: no header is in play; logical and physical offsets
	// coincide.
	ModePassthrough = "passthrough"
)

// Degrade reasons reported when header handling falls back to passthrough or
// loses the header metadata. Degradation is never surfaced as an error on the
// I/O path; it is logged, counted, and queryable via DegradeReason.
const (
	DegradeReread       = "reread_failed"
	DegradeDecode       = "decode_failed"
	DegradeUnrecognized = "unrecognized"
	DegradeHeaderWrite  = "header_write_failed"
)

// OverlayFile wraps one physical file handle and translates logical offsets to
// physical offsets past the reserved header region. Each handle owns its
// physical file exclusively; header state is never shared across handles.
type OverlayFile struct {
	real File
	shm  SharedMemoryFile // non-nil only when the underlying file supports it
	name string
	id   string

	reserveSize uint32
	hdr         header.Header
	useHeader   bool
	needsWrite  bool
	didRead     bool
	degraded    string

	// Serializes the lazy header write against concurrent writers on this
	// handle. Concurrent handles on the same physical file are not
	// coordinated; the header bytes are deterministic for a given
	// configuration, so a double write is byte-idempotent.
	mu sync.Mutex

	logger  *logging.Logger
	metrics recorder
}

// recorder is the slice of the metrics registry the overlay needs. Nil-safe
// implementations are provided by pkg/metrics.
type recorder interface {
	RecordOpen(mode string)
	RecordHeaderDetection(outcome string)
	RecordLazyHeaderWrite(status string)
	RecordHeaderDegraded(reason string)
}

// newOverlayFile wraps real and runs header detection. It never fails because
// of header trouble: unrecognized or corrupt headers degrade to passthrough.
func newOverlayFile(real File, name string, defaults header.Header, logger *logging.Logger, rec recorder) *OverlayFile {
	f := &OverlayFile{
		real:    real,
		name:    name,
		id:      uuid.NewString(),
		metrics: rec,
	}
	f.logger = logger.With(logging.Component("overlay"), logging.HandleID(f.id), logging.Path(name))

	if shm, ok := real.(SharedMemoryFile); ok {
		f.shm = shm
	}

	f.detectHeader(defaults)
	return f
}

// detectHeader decides, once per open, whether the physical file carries a
// header and how large it is. Detection order follows the on-disk format:
//
//  1. Read the 36-byte prefix. Magic match: re-read the full reserve region
//     and decode all fields. Magic mismatch: foreign file, passthrough.
//  2. Prefix unreadable and the file is empty: a header is pending creation,
//     sized to the device sector so it stays sector aligned. The write is
//     deferred to the first data write.
//  3. Anything else (unreadable, short but nonempty, size query failed):
//     passthrough. Header corruption must never block access to the data.
func (f *OverlayFile) detectHeader(defaults header.Header) {
	f.useHeader, f.needsWrite, f.didRead = false, false, false

	prefix := make([]byte, header.MinReserveSize)
	if err := f.real.ReadAt(prefix, 0); err == nil {
		reserve, ok, perr := header.PeekReserveSize(prefix)
		if perr == nil && ok {
			f.readFullHeader(reserve)
			return
		}
		// Foreign file: plain database created without the overlay.
		f.reserveSize = 0
		f.logger.Debug("no header magic, operating in passthrough mode")
		f.recordDetection(ModePassthrough)
		return
	}

	size, serr := f.real.Size()
	if serr == nil && size == 0 {
		// Brand-new empty file: reserve a sector-aligned header region and
		// defer the physical write until the engine lays down its first page.
		reserve := uint32(f.real.SectorSize())
		if reserve < header.MinReserveSize {
			reserve = header.DefaultPageSize
		}
		f.hdr = defaults
		f.hdr.ReserveSize = reserve
		f.reserveSize = reserve
		f.useHeader = true
		f.needsWrite = true
		f.logger.Debug("empty file, header creation pending",
			logging.Uint32("reserve_size", reserve))
		f.recordDetection("pending")
		return
	}

	f.degrade(DegradeUnrecognized, nil)
}

// readFullHeader re-reads the complete reserve region and caches the decoded
// fields. Failure here is a degraded condition, not an error: the header is
// nonessential metadata and falling back must never corrupt data.
func (f *OverlayFile) readFullHeader(reserve uint32) {
	if reserve < header.MinReserveSize {
		f.degrade(DegradeDecode, header.ErrReserveTooSmall)
		return
	}
	full := make([]byte, reserve)
	if err := f.real.ReadAt(full, 0); err != nil {
		f.degrade(DegradeReread, err)
		return
	}
	h, ok, err := header.Decode(full)
	if err != nil || !ok {
		f.degrade(DegradeDecode, err)
		return
	}

	f.hdr = h
	f.reserveSize = reserve
	f.useHeader = true
	f.didRead = true
	f.logger.Debug("header detected", logging.String("header", h.String()))
	f.recordDetection(ModeHeader)
}

// degrade records a non-fatal fallback to passthrough mode.
func (f *OverlayFile) degrade(reason string, err error) {
	f.reserveSize = 0
	f.useHeader = false
	f.degraded = reason
	f.logger.Warn("header handling degraded to passthrough",
		logging.Reason(reason), logging.Error(err))
	if f.metrics != nil {
		f.metrics.RecordHeaderDegraded(reason)
	}
	f.recordDetection("degraded")
}

func (f *OverlayFile) recordDetection(outcome string) {
	if f.metrics != nil {
		f.metrics.RecordHeaderDetection(outcome)
	}
}

// shift returns the physical offset displacement for logical operations.
func (f *OverlayFile) shift() int64 {
	if f.useHeader {
		return int64(f.reserveSize)
	}
	return 0
}

// ReadAt reads len(p) bytes at the logical offset. Errors propagate unchanged
// from the underlying file.
func (f *OverlayFile) ReadAt(p []byte, off int64) error {
	return f.real.ReadAt(p, off+f.shift())
}

// WriteAt writes p at the logical offset. The first write to logical offset 0
// on a handle with a pending header materializes the header first; header
// write failure is reported through logs and metrics but never aborts the data
// write, and the materialization is attempted at most once per handle.
func (f *OverlayFile) WriteAt(p []byte, off int64) error {
	if f.useHeader && f.reserveSize >= header.MinReserveSize && off == 0 {
		f.mu.Lock()
		if f.needsWrite {
			f.needsWrite = false
			f.materializeHeader()
		}
		f.mu.Unlock()
	}
	return f.real.WriteAt(p, off+f.shift())
}

// materializeHeader performs the one-time lazy header write at physical
// offset 0. The encoded bytes are fully determined by the cached header
// fields, so a concurrent handle racing on the same empty file writes
// identical bytes.
func (f *OverlayFile) materializeHeader() {
	buf, err := f.hdr.Encode()
	if err == nil {
		err = f.real.WriteAt(buf, 0)
	}
	if err != nil {
		f.degraded = DegradeHeaderWrite
		f.logger.Warn("header write failed, continuing with data write",
			logging.Reason(DegradeHeaderWrite), logging.Error(err))
		if f.metrics != nil {
			f.metrics.RecordLazyHeaderWrite("error")
			f.metrics.RecordHeaderDegraded(DegradeHeaderWrite)
		}
		return
	}
	f.logger.Debug("header materialized", logging.String("header", f.hdr.String()))
	if f.metrics != nil {
		f.metrics.RecordLazyHeaderWrite("ok")
	}
}

// Truncate truncates the file to the logical size. The reserve offset is
// always added, so truncation never removes the header region.
func (f *OverlayFile) Truncate(size int64) error {
	return f.real.Truncate(size + f.shift())
}

// Size returns the logical file size: the physical size minus the reserve
// region, floored at zero.
func (f *OverlayFile) Size() (int64, error) {
	physical, err := f.real.Size()
	if err != nil {
		return 0, err
	}
	if f.useHeader {
		if physical < int64(f.reserveSize) {
			return 0, nil
		}
		return physical - int64(f.reserveSize), nil
	}
	return physical, nil
}

// Passthrough operations: forwarded verbatim to the underlying file.

func (f *OverlayFile) Sync(flags SyncFlags) error        { return f.real.Sync(flags) }
func (f *OverlayFile) Lock(level LockLevel) error        { return f.real.Lock(level) }
func (f *OverlayFile) Unlock(level LockLevel) error      { return f.real.Unlock(level) }
func (f *OverlayFile) CheckReservedLock() (bool, error)  { return f.real.CheckReservedLock() }
func (f *OverlayFile) FileControl(op int, arg any) error { return f.real.FileControl(op, arg) }
func (f *OverlayFile) SectorSize() int                   { return f.real.SectorSize() }
func (f *OverlayFile) DeviceCharacteristics() DeviceFlags {
	return f.real.DeviceCharacteristics()
}

// Close releases the owned physical handle.
func (f *OverlayFile) Close() error { return f.real.Close() }

// Shared-memory operations: forwarded only when the underlying file supports
// them (probed once, at open time).

func (f *OverlayFile) ShmMap(region, regionSize int, extend bool) ([]byte, error) {
	if f.shm == nil {
		return nil, ErrShmUnsupported
	}
	return f.shm.ShmMap(region, regionSize, extend)
}

func (f *OverlayFile) ShmLock(offset, n int, flags int) error {
	if f.shm == nil {
		return ErrShmUnsupported
	}
	return f.shm.ShmLock(offset, n, flags)
}

func (f *OverlayFile) ShmBarrier() {
	if f.shm != nil {
		f.shm.ShmBarrier()
	}
}

func (f *OverlayFile) ShmUnmap(deleteFlag bool) error {
	if f.shm == nil {
		return ErrShmUnsupported
	}
	return f.shm.ShmUnmap(deleteFlag)
}

// Name returns the logical file name, for diagnostics only.
func (f *OverlayFile) Name() string { return f.name }

// HandleID returns the correlation ID attached to this handle's log entries.
func (f *OverlayFile) HandleID() string { return f.id }

// Mode reports whether the handle is header-aware or passing offsets through
// unchanged.
func (f *OverlayFile) Mode() string {
	if f.useHeader {
		return ModeHeader
	}
	return ModePassthrough
}

// Header returns the cached header fields. ok is false until a header has
// been read from disk or staged for lazy creation.
func (f *OverlayFile) Header() (header.Header, bool) {
	if !f.useHeader {
		return header.Header{}, false
	}
	return f.hdr, true
}

// ReserveSize returns the size of the reserved header region; 0 in
// passthrough mode.
func (f *OverlayFile) ReserveSize() uint32 { return f.reserveSize }

// DegradeReason returns the most recent degraded-header reason, or "" if
// header handling has not degraded on this handle.
func (f *OverlayFile) DegradeReason() string { return f.degraded }

var (
	_ File             = (*OverlayFile)(nil)
	_ SharedMemoryFile = (*OverlayFile)(nil)
)
