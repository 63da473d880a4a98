package vfs

import (
	"time"

	"github.com/dd0wney/cluso-dbvfs/pkg/header"
	"github.com/dd0wney/cluso-dbvfs/pkg/logging"
	"github.com/dd0wney/cluso-dbvfs/pkg/metrics"
)

// OverlayName is the well-known registry name of the overlay provider.
const OverlayName = "overlay"

// Options configures an overlay provider.
type Options struct {
	// Defaults is the template for lazily created headers. ReserveSize is
	// ignored; it is always taken from the device sector size at open time.
	Defaults header.Header

	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// DefaultOptions returns options with the standard header field defaults and a
// no-op logger.
func DefaultOptions() Options {
	return Options{
		Defaults: header.New(0),
		Logger:   logging.NewNop(),
	}
}

// OverlayProvider wraps an underlying provider and produces overlay file
// handles from Open. Every other factory-level capability is forwarded
// unchanged to the wrapped provider.
type OverlayProvider struct {
	base Provider
	opts Options
}

// NewOverlayProvider constructs an overlay provider around base.
func NewOverlayProvider(base Provider, opts Options) *OverlayProvider {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Defaults == (header.Header{}) {
		opts.Defaults = header.New(0)
	}
	return &OverlayProvider{base: base, opts: opts}
}

// Name returns the overlay's well-known provider name.
func (p *OverlayProvider) Name() string { return OverlayName }

// Open opens the physical file through the wrapped provider, then wraps it in
// an overlay handle and runs header detection. Errors from the underlying open
// propagate unchanged; header detection itself never fails the open.
func (p *OverlayProvider) Open(name string, flags OpenFlags) (File, error) {
	real, err := p.base.Open(name, flags)
	if err != nil {
		return nil, err
	}
	f := newOverlayFile(real, name, p.opts.Defaults, p.opts.Logger, rec(p.opts.Metrics))
	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordOpen(f.Mode())
	}
	return f, nil
}

// rec avoids storing a typed-nil *metrics.Registry inside the recorder
// interface, which would defeat the overlay's nil checks.
func rec(m *metrics.Registry) recorder {
	if m == nil {
		return nil
	}
	return m
}

// Factory-level passthrough to the wrapped provider.

func (p *OverlayProvider) Delete(name string, syncDir bool) error { return p.base.Delete(name, syncDir) }
func (p *OverlayProvider) Access(name string, flags AccessFlags) (bool, error) {
	return p.base.Access(name, flags)
}
func (p *OverlayProvider) FullPathname(name string) (string, error) {
	return p.base.FullPathname(name)
}
func (p *OverlayProvider) Randomness(b []byte) (int, error) { return p.base.Randomness(b) }
func (p *OverlayProvider) Sleep(d time.Duration)            { p.base.Sleep(d) }
func (p *OverlayProvider) CurrentTime() time.Time           { return p.base.CurrentTime() }
func (p *OverlayProvider) GetLastError() error              { return p.base.GetLastError() }

// Base returns the wrapped provider.
func (p *OverlayProvider) Base() Provider { return p.base }

var _ Provider = (*OverlayProvider)(nil)
