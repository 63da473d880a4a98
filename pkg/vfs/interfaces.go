// Package vfs implements a transparent file-I/O overlay that reserves a
// fixed-format metadata header at the front of a database file and exposes a
// logical view of the file that excludes the header.
//
// Callers read, write, truncate and size the file at logical offsets starting
// at 0; the overlay shifts every operation by the header's reserve size before
// delegating to the underlying provider. The database engine never sees the
// header and the header layer never interprets the engine's bytes.
package vfs

import "time"

// LockLevel is an advisory file lock level, ordered from weakest to strongest.
type LockLevel int

const (
	LockNone LockLevel = iota
	LockShared
	LockReserved
	LockPending
	LockExclusive
)

// OpenFlags control how a provider opens a file.
type OpenFlags int

const (
	OpenReadOnly OpenFlags = 1 << iota
	OpenReadWrite
	OpenCreate
	OpenExclusive
)

// AccessFlags select what an Access probe checks for.
type AccessFlags int

const (
	AccessExists AccessFlags = iota
	AccessReadWrite
	AccessRead
)

// SyncFlags control the durability of a Sync call.
type SyncFlags int

const (
	SyncNormal SyncFlags = 1 << iota
	SyncFull
	SyncDataOnly
)

// DeviceFlags describe characteristics of the underlying storage device.
type DeviceFlags int

const (
	IOCapAtomic DeviceFlags = 1 << iota
	IOCapSafeAppend
	IOCapSequential
	IOCapPowersafeOverwrite
)

// File is the capability set the overlay requires from an open physical file.
// ReadAt must fill p completely or return an error; a read past the end of the
// file returns ErrShortRead with the available prefix copied in.
type File interface {
	ReadAt(p []byte, off int64) error
	WriteAt(p []byte, off int64) error
	Truncate(size int64) error
	Size() (int64, error)
	Sync(flags SyncFlags) error
	Lock(level LockLevel) error
	Unlock(level LockLevel) error
	CheckReservedLock() (bool, error)
	FileControl(op int, arg any) error
	SectorSize() int
	DeviceCharacteristics() DeviceFlags
	Close() error
}

// SharedMemoryFile is an optional extension of File for providers that support
// the shared-memory operation family. The overlay probes for it once, at open
// time, and forwards the operations only when the underlying file supports
// them.
type SharedMemoryFile interface {
	ShmMap(region, regionSize int, extend bool) ([]byte, error)
	ShmLock(offset, n int, flags int) error
	ShmBarrier()
	ShmUnmap(deleteFlag bool) error
}

// Provider is the factory-level capability set: it opens files and answers
// filesystem-scope questions. The overlay provider wraps one of these and
// overrides only Open.
type Provider interface {
	// Name identifies the provider within a Registry.
	Name() string

	Open(name string, flags OpenFlags) (File, error)
	Delete(name string, syncDir bool) error
	Access(name string, flags AccessFlags) (bool, error)
	FullPathname(name string) (string, error)
	Randomness(p []byte) (int, error)
	Sleep(d time.Duration)
	CurrentTime() time.Time
	GetLastError() error
}
