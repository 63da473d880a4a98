// Package header encodes and decodes the fixed-layout metadata header that the
// overlay VFS reserves at the front of a database file.
//
// Header layout (all integers 4-byte big-endian):
//
//	Offset    Size      Description
//	0         32        File magic
//	32        4         reserve_size: total header region size (power of 2, sector aligned)
//	36        4         version: header format version
//	40        4         page_size: database page size
//	44        4         kdf_iterations: KDF iteration count
//	48        4         fast_kdf_iterations: fast KDF iteration count
//	52        4         flags: feature flags (e.g. FlagHMAC)
//
// The codec performs no I/O; it only transforms between Header values and the
// on-disk byte layout.
package header

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MagicSize is the length of the file magic in bytes.
	MagicSize = 32

	// MinReserveSize is the minimum header region size: the magic plus the
	// reserve_size field. A prefix of this length is enough to detect a header.
	MinReserveSize = MagicSize + 4

	// EncodedSize is the offset past the last encoded field. Reserve regions
	// larger than this are zero padded.
	EncodedSize = 56
)

// Magic identifies a header-bearing file. The value is arbitrary but fixed;
// reader and writer must agree on it byte for byte.
var Magic = [MagicSize]byte{
	0xB0, 0x08, 0xA6, 0x79, 0x75, 0x7E, 0x3E, 0x9E,
	0xF3, 0x00, 0x58, 0xDD, 0xB8, 0x9D, 0xE2, 0x3B,
	0x7D, 0x92, 0xDA, 0xAF, 0xE0, 0x11, 0x0A, 0x5F,
	0x05, 0x76, 0x4A, 0xF6, 0xED, 0x9D, 0xE4, 0x84,
}

// Flag bits for the header flags field.
const (
	// FlagHMAC indicates per-page HMACs are enabled.
	FlagHMAC uint32 = 1 << 0

	// FlagLEPageNumber indicates little-endian page numbers in the page HMAC.
	FlagLEPageNumber uint32 = 1 << 1

	// FlagBEPageNumber indicates big-endian page numbers in the page HMAC.
	FlagBEPageNumber uint32 = 1 << 2
)

// Default field values for newly created headers.
const (
	DefaultVersion           = 4
	DefaultPageSize          = 4096
	DefaultKDFIterations     = 256000
	DefaultFastKDFIterations = 2
)

var (
	ErrShortBuffer     = errors.New("buffer too small for header")
	ErrReserveTooSmall = errors.New("reserve size below minimum")
)

// Header holds the decoded metadata fields carried in the reserved region.
type Header struct {
	ReserveSize       uint32 `json:"reserve_size"`
	Version           uint32 `json:"version"`
	PageSize          uint32 `json:"page_size"`
	KDFIterations     uint32 `json:"kdf_iterations"`
	FastKDFIterations uint32 `json:"fast_kdf_iterations"`
	Flags             uint32 `json:"flags"`
}

// fieldSpec describes one integer field's position in the encoded header.
// A single table drives both encode and decode so the offsets live in one place.
type fieldSpec struct {
	name   string
	offset int
	get    func(*Header) uint32
	set    func(*Header, uint32)
}

var fields = []fieldSpec{
	{"reserve_size", 32, func(h *Header) uint32 { return h.ReserveSize }, func(h *Header, v uint32) { h.ReserveSize = v }},
	{"version", 36, func(h *Header) uint32 { return h.Version }, func(h *Header, v uint32) { h.Version = v }},
	{"page_size", 40, func(h *Header) uint32 { return h.PageSize }, func(h *Header, v uint32) { h.PageSize = v }},
	{"kdf_iterations", 44, func(h *Header) uint32 { return h.KDFIterations }, func(h *Header, v uint32) { h.KDFIterations = v }},
	{"fast_kdf_iterations", 48, func(h *Header) uint32 { return h.FastKDFIterations }, func(h *Header, v uint32) { h.FastKDFIterations = v }},
	{"flags", 52, func(h *Header) uint32 { return h.Flags }, func(h *Header, v uint32) { h.Flags = v }},
}

// New returns a header populated with the default field values and the given
// reserve size.
func New(reserveSize uint32) Header {
	return Header{
		ReserveSize:       reserveSize,
		Version:           DefaultVersion,
		PageSize:          DefaultPageSize,
		KDFIterations:     DefaultKDFIterations,
		FastKDFIterations: DefaultFastKDFIterations,
		Flags:             FlagHMAC,
	}
}

// PeekReserveSize inspects the first MinReserveSize bytes of a file. It returns
// the encoded reserve size and true when the magic matches. A magic mismatch is
// not an error: it means the file carries no header. A prefix shorter than
// MinReserveSize is a caller bug and returns ErrShortBuffer.
func PeekReserveSize(prefix []byte) (uint32, bool, error) {
	if len(prefix) < MinReserveSize {
		return 0, false, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(prefix), MinReserveSize)
	}
	for i := 0; i < MagicSize; i++ {
		if prefix[i] != Magic[i] {
			return 0, false, nil
		}
	}
	return binary.BigEndian.Uint32(prefix[MagicSize:MinReserveSize]), true, nil
}

// Decode parses a header from buf, which must hold the full reserve region
// (at least the encoded reserve_size bytes, and never less than EncodedSize).
// It returns ok=false without error when the magic does not match.
func Decode(buf []byte) (Header, bool, error) {
	var h Header
	reserve, ok, err := PeekReserveSize(buf)
	if err != nil || !ok {
		return h, ok, err
	}
	if reserve < MinReserveSize {
		return h, false, fmt.Errorf("%w: encoded reserve size %d", ErrReserveTooSmall, reserve)
	}
	if len(buf) < EncodedSize || uint32(len(buf)) < reserve {
		return h, false, fmt.Errorf("%w: have %d bytes, reserve size %d", ErrShortBuffer, len(buf), reserve)
	}
	for _, f := range fields {
		f.set(&h, binary.BigEndian.Uint32(buf[f.offset:f.offset+4]))
	}
	return h, true, nil
}

// Encode serializes the header into exactly h.ReserveSize bytes: magic, the six
// integer fields at their fixed offsets, then zero padding.
func (h Header) Encode() ([]byte, error) {
	if h.ReserveSize < EncodedSize {
		return nil, fmt.Errorf("%w: %d (minimum %d to hold all fields)", ErrReserveTooSmall, h.ReserveSize, EncodedSize)
	}
	buf := make([]byte, h.ReserveSize)
	copy(buf, Magic[:])
	for _, f := range fields {
		binary.BigEndian.PutUint32(buf[f.offset:f.offset+4], f.get(&h))
	}
	return buf, nil
}

// HasFlag reports whether the given flag bit is set.
func (h Header) HasFlag(flag uint32) bool {
	return h.Flags&flag != 0
}

// String returns a compact human-readable form for diagnostics.
func (h Header) String() string {
	return fmt.Sprintf("header{reserve=%d version=%d page=%d kdf=%d fast_kdf=%d flags=%#x}",
		h.ReserveSize, h.Version, h.PageSize, h.KDFIterations, h.FastKDFIterations, h.Flags)
}
