package capture

import "sync"

// Bridge is the in-process Collaborator used by the web interface: the
// browser does the actual decoding and posts each hit to the API, which
// feeds it through Emit so scan events follow the same session lifecycle
// as a native capture device.
type Bridge struct {
	mu           sync.Mutex
	sources      []Source
	running      bool
	onIdentifier func(text, format string)
	onNoise      func(message string)
}

// NewBridge creates a bridge advertising the given sources. With none
// given it advertises a single rear-labeled source so the selection
// policy resolves deterministically.
func NewBridge(sources ...Source) *Bridge {
	if len(sources) == 0 {
		sources = []Source{{ID: "bridge", Label: "operator scan bridge (rear)"}}
	}
	return &Bridge{sources: sources}
}

func (b *Bridge) EnumerateSources() ([]Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Source(nil), b.sources...), nil
}

func (b *Bridge) Start(sourceID string, cfg Config, onIdentifier func(text, format string), onNoise func(message string)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = true
	b.onIdentifier = onIdentifier
	b.onNoise = onNoise
	return nil
}

func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	b.onIdentifier = nil
	b.onNoise = nil
	return nil
}

// Emit delivers a decoded identifier. Dropped when the bridge is not
// running. The callback is invoked without the bridge lock held so a
// handler may stop the session from inside it.
func (b *Bridge) Emit(text, format string) {
	b.mu.Lock()
	fn := b.onIdentifier
	running := b.running
	b.mu.Unlock()
	if !running || fn == nil {
		return
	}
	fn(text, format)
}

// Noise delivers a decode-noise message, same delivery rules as Emit.
func (b *Bridge) Noise(message string) {
	b.mu.Lock()
	fn := b.onNoise
	running := b.running
	b.mu.Unlock()
	if !running || fn == nil {
		return
	}
	fn(message)
}
