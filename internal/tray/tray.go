// Package tray provides a system tray indicator for the distress signal
// monitor.
package tray

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"
	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/distressd/internal/alert"
)

const (
	titleOK    = "distressd"
	titleAlert = "distressd: ALERT"
)

// Notifier shows a desktop notification.
type Notifier func(title, text string) error

// ZenityNotify shows a warning notification through zenity.
func ZenityNotify(title, text string) error {
	return zenity.Notify(text, zenity.Title(title), zenity.WarningIcon)
}

// Tray represents the system tray application.
type Tray struct {
	onAcknowledge func()
	onDashboard   func()
	onQuit        func()
	notify        Notifier
	active        bool
	mu            sync.RWMutex

	menuStatus *systray.MenuItem
	menuAck    *systray.MenuItem
}

// New creates a Tray that notifies with ZenityNotify.
func New() *Tray {
	return &Tray{notify: ZenityNotify}
}

// SetNotifier replaces the desktop notifier. A nil notifier disables
// notifications.
func (t *Tray) SetNotifier(fn Notifier) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notify = fn
}

// OnAcknowledge sets the callback for the acknowledge menu item.
func (t *Tray) OnAcknowledge(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onAcknowledge = fn
}

// OnDashboard sets the callback for the open dashboard menu item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback for the quit menu item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(titleOK)
	systray.SetTooltip("Distress signal monitor")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("Status: OK", "Current alert state")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuAck = systray.AddMenuItem("Acknowledge alert", "Stop the alarm and clear the alert")
	active := t.active
	t.mu.Unlock()
	t.render(active)

	menuDashboard := systray.AddMenuItem("Open dashboard", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit distressd")

	go func() {
		for {
			select {
			case <-t.menuAck.ClickedCh:
				t.handle(func() func() { return t.onAcknowledge })
			case <-menuDashboard.ClickedCh:
				t.handle(func() func() { return t.onDashboard })
			case <-menuQuit.ClickedCh:
				t.handle(func() func() { return t.onQuit })
				systray.Quit()
				return
			}
		}
	}()
}

// handle runs the callback selected under the read lock, outside the lock.
func (t *Tray) handle(pick func() func()) {
	t.mu.RLock()
	callback := pick()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetAlert reflects snap in the tray. A transition to active shows a
// desktop notification.
func (t *Tray) SetAlert(snap alert.Snapshot) {
	t.mu.Lock()
	raised := snap.Active && !t.active
	t.active = snap.Active
	notify := t.notify
	t.mu.Unlock()

	t.render(snap.Active)

	if raised && notify != nil {
		// SetAlert runs on the machine's notify path and must not block.
		go func() {
			if err := notify("Distress signal detected", "Open the dashboard or acknowledge the alert from the tray."); err != nil {
				log.Warn().Err(err).Msg("Failed to show desktop notification")
			}
		}()
	}
}

// IsActive reports whether the tray is showing an active alert.
func (t *Tray) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

func (t *Tray) render(active bool) {
	t.mu.RLock()
	status, ack := t.menuStatus, t.menuAck
	t.mu.RUnlock()

	if status == nil {
		return
	}

	if active {
		systray.SetTitle(titleAlert)
		status.SetTitle("Status: ALERT")
		ack.Enable()
	} else {
		systray.SetTitle(titleOK)
		status.SetTitle("Status: OK")
		ack.Disable()
	}
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	go cmd.Wait()
	return nil
}
