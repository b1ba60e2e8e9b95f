// Package alert turns the per-frame distress signal into debounced alert
// activation, alarm playback, and screenshot capture.
package alert

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Default timings.
const (
	DefaultDebounce    = 5 * time.Second
	DefaultSettleDelay = 10 * time.Second
)

// Status labels a screenshot.
type Status string

const (
	// StatusCorrect marks a capture of a confirmed distress posture.
	StatusCorrect Status = "correct"
	// StatusIncorrect marks a capture taken when the posture went away.
	StatusIncorrect Status = "incorrect"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusCorrect || s == StatusIncorrect
}

// Audio is the alarm sound output.
type Audio interface {
	// Busy reports whether the alarm is currently playing.
	Busy() bool
	// Play starts the alarm without blocking.
	Play() error
	// Stop silences the alarm.
	Stop() error
}

// Capturer saves the current frame as a screenshot and returns the path
// under which clients can fetch it.
type Capturer interface {
	Capture(status Status) (string, error)
}

// Snapshot is a copy of the alert state.
type Snapshot struct {
	Active             bool      `json:"alertActive"`
	GestureDetected    bool      `json:"gestureDetected"`
	LastScreenshotPath string    `json:"lastScreenshot,omitempty"`
	LastTrigger        time.Time `json:"lastTrigger"`
}

// Outcome describes what a single Update did.
type Outcome struct {
	// Accepted is false when the update fell inside the debounce window.
	Accepted bool
	// Activated is true on an INACTIVE -> ACTIVE transition.
	Activated bool
	// Deactivated is true when a negative update cleared the detection flag.
	Deactivated bool
	// AudioStarted is true when Play was issued.
	AudioStarted bool
	// Capture is the screenshot status this update scheduled (correct) or
	// took (incorrect), or empty.
	Capture Status
	// Cancelled counts correct captures dropped because the posture cleared
	// before they settled.
	Cancelled int
}

// Config holds the machine's collaborators and timings.
type Config struct {
	Debounce    time.Duration
	SettleDelay time.Duration
	Audio       Audio
	Capturer    Capturer
	Clock       clockwork.Clock
}

// Machine is the alert state machine. It is safe for concurrent use: the
// frame pipeline calls Update while HTTP handlers call Snapshot and
// Acknowledge.
//
// Audio calls are serialized by audioMu and never made while mu is held.
// Lock order is audioMu then mu.
type Machine struct {
	debounce time.Duration
	settle   time.Duration
	audio    Audio
	capturer Capturer
	clock    clockwork.Clock

	audioMu sync.Mutex

	mu              sync.Mutex
	active          bool
	gestureDetected bool
	lastTrigger     time.Time
	lastScreenshot  string
	pending         map[*pendingCapture]struct{}
	closed          bool
	listeners       map[int]func(Snapshot)
	nextListener    int

	captures sync.WaitGroup
}

type pendingCapture struct {
	timer clockwork.Timer
}

// NewMachine creates an INACTIVE machine. Zero timings take the defaults and
// a nil clock uses the wall clock.
func NewMachine(cfg Config) *Machine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Machine{
		debounce:  cfg.Debounce,
		settle:    cfg.SettleDelay,
		audio:     cfg.Audio,
		capturer:  cfg.Capturer,
		clock:     cfg.Clock,
		pending:   make(map[*pendingCapture]struct{}),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Update feeds one frame's distress signal into the machine.
//
// An update is only evaluated once more than the debounce window has passed
// since the last trigger. A positive update activates the alert, records
// the trigger time, starts the alarm if it is idle, and on a rising edge of
// the detection flag schedules a correct capture after the settle delay. A
// negative update that clears the detection flag deactivates the alert,
// records the trigger time, drops any correct capture still settling, and
// captures an incorrect screenshot at once.
func (m *Machine) Update(detected bool) Outcome {
	now := m.clock.Now()

	m.mu.Lock()
	if m.closed || now.Sub(m.lastTrigger) <= m.debounce {
		m.mu.Unlock()
		return Outcome{}
	}

	out := Outcome{Accepted: true}

	if detected {
		out.Activated = !m.active
		rising := !m.gestureDetected

		m.active = true
		m.gestureDetected = true
		m.lastTrigger = now

		if rising {
			m.scheduleCaptureLocked(StatusCorrect)
			out.Capture = StatusCorrect
		}
		m.mu.Unlock()

		out.AudioStarted = m.startAlarm()

		if out.Activated {
			log.Warn().Time("at", now).Msg("Distress signal detected")
		}
		if out.Activated || rising {
			m.notify()
		}
		return out
	}

	if !m.gestureDetected {
		m.mu.Unlock()
		return out
	}

	m.active = false
	m.gestureDetected = false
	m.lastTrigger = now
	out.Deactivated = true
	out.Capture = StatusIncorrect
	out.Cancelled = m.cancelPendingLocked()
	m.mu.Unlock()

	if out.Cancelled > 0 {
		log.Info().Int("cancelled", out.Cancelled).Msg("Distress signal cleared before the correct capture settled")
	}
	log.Info().Time("at", now).Msg("Distress signal cleared")
	m.capture(StatusIncorrect)
	m.notify()
	return out
}

// Acknowledge clears an active alert and stops the alarm, regardless of the
// debounce window. The detection flag and trigger time are left untouched.
func (m *Machine) Acknowledge() Snapshot {
	m.mu.Lock()
	wasActive := m.active
	m.active = false
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.stopAlarm("Failed to stop alarm")

	log.Info().Bool("was_active", wasActive).Msg("Alert acknowledged")
	m.notify()
	return snap
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change and must not block.
// The returned function removes the subscription.
func (m *Machine) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// PendingCaptures returns the number of scheduled correct captures.
func (m *Machine) PendingCaptures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Close cancels pending captures, waits for in-flight ones, and stops the
// alarm. Updates after Close are ignored.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cancelPendingLocked()
	m.mu.Unlock()

	m.captures.Wait()
	m.stopAlarm("Failed to stop alarm on close")
}

// startAlarm plays the alarm if the alert is still active and the alarm is
// idle. It reports whether Play was issued successfully.
func (m *Machine) startAlarm() bool {
	if m.audio == nil {
		return false
	}

	m.audioMu.Lock()
	defer m.audioMu.Unlock()

	m.mu.Lock()
	active := m.active && !m.closed
	m.mu.Unlock()

	if !active || m.audio.Busy() {
		return false
	}
	if err := m.audio.Play(); err != nil {
		log.Error().Err(err).Msg("Failed to start alarm")
		return false
	}
	return true
}

func (m *Machine) stopAlarm(msg string) {
	if m.audio == nil {
		return
	}

	m.audioMu.Lock()
	defer m.audioMu.Unlock()

	if err := m.audio.Stop(); err != nil {
		log.Error().Err(err).Msg(msg)
	}
}

// cancelPendingLocked stops every settling capture and returns how many it
// stopped before they fired.
func (m *Machine) cancelPendingLocked() int {
	n := 0
	for p := range m.pending {
		if p.timer != nil && p.timer.Stop() {
			m.captures.Done()
			n++
		}
		delete(m.pending, p)
	}
	return n
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		Active:             m.active,
		GestureDetected:    m.gestureDetected,
		LastScreenshotPath: m.lastScreenshot,
		LastTrigger:        m.lastTrigger,
	}
}

func (m *Machine) scheduleCaptureLocked(status Status) {
	p := &pendingCapture{}
	m.pending[p] = struct{}{}
	m.captures.Add(1)

	p.timer = m.clock.AfterFunc(m.settle, func() {
		defer m.captures.Done()

		m.mu.Lock()
		_, ok := m.pending[p]
		delete(m.pending, p)
		m.mu.Unlock()

		if !ok {
			return
		}
		m.capture(status)
		m.notify()
	})
}

func (m *Machine) capture(status Status) {
	if m.capturer == nil {
		return
	}

	path, err := m.capturer.Capture(status)
	if err != nil {
		log.Error().Err(err).Str("status", string(status)).Msg("Failed to capture screenshot")
		return
	}

	m.mu.Lock()
	m.lastScreenshot = path
	m.mu.Unlock()

	log.Info().Str("status", string(status)).Str("path", path).Msg("Screenshot captured")
}

func (m *Machine) notify() {
	m.mu.Lock()
	snap := m.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
