package tray

import (
	"sync"
	"testing"
	"time"

	"github.com/ayusman/distressd/internal/alert"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	ch    chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan struct{}, 10)}
}

func (r *recordingNotifier) notify(title, text string) error {
	r.mu.Lock()
	r.calls = append(r.calls, title)
	r.mu.Unlock()
	r.ch <- struct{}{}
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestTray_SetAlert(t *testing.T) {
	tr := New()
	rec := newRecordingNotifier()
	tr.SetNotifier(rec.notify)

	if tr.IsActive() {
		t.Fatal("new tray should not be active")
	}

	tr.SetAlert(alert.Snapshot{Active: true})
	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification on activation")
	}
	if !tr.IsActive() {
		t.Error("tray should be active")
	}

	// Repeated active snapshots do not notify again.
	tr.SetAlert(alert.Snapshot{Active: true, GestureDetected: true})
	tr.SetAlert(alert.Snapshot{Active: false})
	if tr.IsActive() {
		t.Error("tray should be inactive after acknowledgement")
	}

	tr.SetAlert(alert.Snapshot{Active: true})
	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification on re-activation")
	}
	if got := rec.count(); got != 2 {
		t.Errorf("notifications = %d, want 2", got)
	}
}

func TestTray_NilNotifier(t *testing.T) {
	tr := New()
	tr.SetNotifier(nil)
	tr.SetAlert(alert.Snapshot{Active: true})
	if !tr.IsActive() {
		t.Error("tray should be active")
	}
}

func TestTray_Callbacks(t *testing.T) {
	tr := New()

	var acked, opened int
	tr.OnAcknowledge(func() { acked++ })
	tr.OnDashboard(func() { opened++ })

	tr.handle(func() func() { return tr.onAcknowledge })
	tr.handle(func() func() { return tr.onDashboard })
	tr.handle(func() func() { return tr.onQuit })

	if acked != 1 || opened != 1 {
		t.Errorf("acked = %d, opened = %d; want 1, 1", acked, opened)
	}
}
