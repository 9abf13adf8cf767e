// Package capture wraps an external identifier-acquisition mechanism
// (typically a camera-based barcode decoder) in an explicit session with
// an Idle/Active/Failed lifecycle. The decoding collaborator stays behind
// the Collaborator interface so the session is testable with a fake.
package capture

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// State is the session lifecycle state. Failed carries the last
// acquisition failure and, like Idle, accepts a new Start.
type State string

const (
	Idle   State = "idle"
	Active State = "active"
	Failed State = "failed"
)

// Source identifies one enumerable capture device.
type Source struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Range is a min/ideal/max resolution hint for one dimension. Zero
// values mean no preference.
type Range struct {
	Min   int `yaml:"min" json:"min,omitempty"`
	Ideal int `yaml:"ideal" json:"ideal,omitempty"`
	Max   int `yaml:"max" json:"max,omitempty"`
}

// Config carries advisory capture options. The collaborator may ignore
// anything it does not support.
type Config struct {
	FPS              int   `yaml:"fps" json:"fps,omitempty"`
	ScanRegionWidth  int   `yaml:"scan_region_width" json:"scan_region_width,omitempty"`
	ScanRegionHeight int   `yaml:"scan_region_height" json:"scan_region_height,omitempty"`
	Width            Range `yaml:"width" json:"width,omitempty"`
	Height           Range `yaml:"height" json:"height,omitempty"`
	// PreferEnvironmentFacing asks for an outward-facing device when the
	// collaborator resolves sources itself.
	PreferEnvironmentFacing bool `yaml:"prefer_environment_facing" json:"prefer_environment_facing,omitempty"`
}

// DefaultConfig mirrors the tuning that proved workable on handheld
// scanners: modest frame rate, wide scan box, full-HD ideal resolution.
func DefaultConfig() Config {
	return Config{
		FPS:                     10,
		ScanRegionWidth:         250,
		ScanRegionHeight:        150,
		Width:                   Range{Min: 640, Ideal: 1920, Max: 1920},
		Height:                  Range{Min: 480, Ideal: 1080, Max: 1080},
		PreferEnvironmentFacing: true,
	}
}

// Collaborator is the external capture mechanism. Start delivers decoded
// identifiers through onIdentifier and per-frame decode noise through
// onNoise until Stop is called.
type Collaborator interface {
	EnumerateSources() ([]Source, error)
	Start(sourceID string, cfg Config, onIdentifier func(text, format string), onNoise func(message string)) error
	Stop() error
}

// IdentifierHandler receives every successfully decoded candidate while
// the session is active.
type IdentifierHandler func(text, format string)

// SelectSource applies the deterministic source-preference policy: the
// first source labeled as rear-facing, else the last-enumerated source.
// Total and stable for any non-empty list; false only when the list is
// empty.
func SelectSource(sources []Source) (Source, bool) {
	if len(sources) == 0 {
		return Source{}, false
	}
	for _, s := range sources {
		label := strings.ToLower(s.Label)
		if strings.Contains(label, "back") || strings.Contains(label, "rear") || strings.Contains(label, "trasera") {
			return s, true
		}
	}
	return sources[len(sources)-1], true
}

// Session owns the capture lifecycle. It is safe for concurrent use;
// identifier events racing a Stop are dropped rather than forwarded.
type Session struct {
	collab Collaborator
	cfg    Config

	mu         sync.Mutex
	state      State
	starting   bool
	source     Source
	lastErr    *AcquisitionError
	noiseCount uint64

	onIdentifier IdentifierHandler
}

func NewSession(collab Collaborator, cfg Config) *Session {
	return &Session{collab: collab, cfg: cfg, state: Idle}
}

// OnIdentifier installs the handler invoked for each decoded candidate.
// Set once by the composition layer before the first Start.
func (s *Session) OnIdentifier(fn IdentifierHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onIdentifier = fn
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveSource reports the source the session is currently capturing
// from. Zero value while not active.
func (s *Session) ActiveSource() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// LastFailure returns the most recent acquisition failure, if any.
func (s *Session) LastFailure() *AcquisitionError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// NoiseCount reports how many decode-noise events were suppressed. Purely
// diagnostic.
func (s *Session) NoiseCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noiseCount
}

// normalize folds an arbitrary collaborator error into an
// AcquisitionError.
func normalize(err error) *AcquisitionError {
	var acq *AcquisitionError
	if errors.As(err, &acq) {
		return acq
	}
	return &AcquisitionError{Kind: KindUnknown, Reason: err.Error()}
}

// Start enumerates sources, picks one per the preference policy, and
// starts the collaborator. Starting an already active session is a
// no-op. Failures leave the session out of Active and are returned as
// *AcquisitionError.
func (s *Session) Start() error {
	s.mu.Lock()
	// The starting flag extends the idempotent guard across the
	// collaborator calls, which run without the lock held; a racing
	// Start is a no-op rather than a second acquisition.
	if s.state == Active || s.starting {
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	sources, err := s.collab.EnumerateSources()
	if err != nil {
		return s.fail(normalize(err))
	}
	source, ok := SelectSource(sources)
	if !ok {
		return s.fail(&AcquisitionError{Kind: KindNoSource, Reason: "no capture sources available"})
	}

	if err := s.collab.Start(source.ID, s.cfg, s.handleIdentifier, s.handleNoise); err != nil {
		return s.fail(normalize(err))
	}

	s.mu.Lock()
	s.state = Active
	s.source = source
	s.lastErr = nil
	s.mu.Unlock()
	slog.Info("Capture session started", "source", source.Label)
	return nil
}

func (s *Session) fail(acq *AcquisitionError) error {
	s.mu.Lock()
	s.state = Failed
	s.source = Source{}
	s.lastErr = acq
	s.mu.Unlock()
	slog.Error("Capture acquisition failed", "kind", string(acq.Kind), "reason", acq.Reason)
	return acq
}

// Stop releases the collaborator and forces the session to Idle. A
// failed teardown is logged as a diagnostic only; the session still ends
// up Idle so the controller can never observe a stuck Active state.
func (s *Session) Stop() {
	s.mu.Lock()
	wasActive := s.state == Active
	s.state = Idle
	s.source = Source{}
	s.mu.Unlock()
	if !wasActive {
		return
	}
	if err := s.collab.Stop(); err != nil {
		slog.Warn("Capture teardown failed, session forced idle", "err", err)
		return
	}
	slog.Info("Capture session stopped")
}

// AcquisitionLost reports that the active source disappeared mid-session
// (device unplugged, stream ended). The session transitions to Failed.
func (s *Session) AcquisitionLost(reason string) {
	s.mu.Lock()
	if s.state != Active {
		s.mu.Unlock()
		return
	}
	s.state = Failed
	s.source = Source{}
	s.lastErr = &AcquisitionError{Kind: KindUnknown, Reason: reason}
	s.mu.Unlock()
	slog.Error("Capture acquisition lost", "reason", reason)
}

// handleIdentifier forwards a decoded candidate upward. Events arriving
// after the session left Active are dropped.
func (s *Session) handleIdentifier(text, format string) {
	s.mu.Lock()
	fn := s.onIdentifier
	active := s.state == Active
	s.mu.Unlock()
	if !active || fn == nil {
		return
	}
	fn(text, format)
}

// handleNoise swallows per-frame decode errors. They arrive at high
// frequency during normal scanning and are not failures.
func (s *Session) handleNoise(string) {
	s.mu.Lock()
	s.noiseCount++
	s.mu.Unlock()
}
