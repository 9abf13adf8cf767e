// Package notify implements the single-slot operator notification
// channel: at most one message at a time, severity-tagged, auto-expiring.
package notify

import (
	"sync"
	"time"
)

// Severity tags a notice for rendering.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Notice is one displayed message.
type Notice struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	PostedAt time.Time `json:"posted_at"`
}

// DefaultTTL matches the reference behavior: a notice disappears after
// five seconds unless replaced first.
const DefaultTTL = 5 * time.Second

// Notifier holds the slot. Posting replaces any current notice.
type Notifier struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	current  Notice
	deadline time.Time
}

func New(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{ttl: ttl, now: time.Now}
}

// Post replaces the current notice with a new one.
func (n *Notifier) Post(sev Severity, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	n.current = Notice{Severity: sev, Message: message, PostedAt: now}
	n.deadline = now.Add(n.ttl)
}

// Current returns the active notice, or false once it has expired or
// been cleared.
func (n *Notifier) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.deadline.IsZero() || !n.now().Before(n.deadline) {
		return Notice{}, false
	}
	return n.current, true
}

// Clear drops the current notice immediately.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deadline = time.Time{}
}
