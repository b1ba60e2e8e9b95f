// Package alarm plays the audible distress alarm through an external
// command such as aplay, afplay, or ffplay.
package alarm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNoCommand is returned when a player is created without a command.
var ErrNoCommand = errors.New("alarm command is empty")

// Player starts and stops the alarm sound.
type Player interface {
	Busy() bool
	Play() error
	Stop() error
}

// CommandPlayer plays the alarm by running an external command. Only one
// instance of the command runs at a time.
type CommandPlayer struct {
	argv []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	done   chan struct{}
	stderr bytes.Buffer
}

// NewCommandPlayer creates a player for argv, e.g. ["aplay", "alarm.wav"].
func NewCommandPlayer(argv []string) (*CommandPlayer, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, ErrNoCommand
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("alarm command %q: %w", argv[0], err)
	}
	return &CommandPlayer{argv: append([]string(nil), argv...)}, nil
}

// Busy reports whether the alarm command is still running.
func (p *CommandPlayer) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// Play starts the alarm command without waiting for it to finish. Calling
// Play while the alarm is already playing does nothing.
func (p *CommandPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return nil
	}

	cmd := exec.Command(p.argv[0], p.argv[1:]...)
	p.stderr.Reset()
	cmd.Stderr = &p.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start alarm: %w", err)
	}

	done := make(chan struct{})
	p.cmd = cmd
	p.done = done

	go p.wait(cmd, done)
	return nil
}

// Stop kills a running alarm command and waits for it to exit.
func (p *CommandPlayer) Stop() error {
	p.mu.Lock()
	cmd, done := p.cmd, p.done
	p.mu.Unlock()

	if cmd == nil {
		return nil
	}

	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop alarm: %w", err)
	}
	<-done
	return nil
}

func (p *CommandPlayer) wait(cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()

	p.mu.Lock()
	if p.cmd == cmd {
		p.cmd = nil
		p.done = nil
	}
	stderr := p.stderr.String()
	p.mu.Unlock()

	if err != nil && cmd.ProcessState != nil && !cmd.ProcessState.Success() && stderr != "" {
		log.Debug().Err(err).Str("stderr", stderr).Msg("Alarm command exited")
	}
	close(done)
}

// NopPlayer is used when no alarm command is configured. It tracks the
// playing flag so the alert logic behaves the same without sound.
type NopPlayer struct {
	mu      sync.Mutex
	playing bool
}

// Busy reports whether Play was called without a following Stop.
func (n *NopPlayer) Busy() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing
}

// Play marks the alarm as playing.
func (n *NopPlayer) Play() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = true
	return nil
}

// Stop clears the playing flag.
func (n *NopPlayer) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = false
	return nil
}

// New returns a CommandPlayer for argv, or a NopPlayer when argv is empty
// or the command cannot be found.
func New(argv []string) Player {
	if len(argv) == 0 {
		log.Info().Msg("No alarm command configured, alarm is silent")
		return &NopPlayer{}
	}
	p, err := NewCommandPlayer(argv)
	if err != nil {
		log.Warn().Err(err).Msg("Alarm command unavailable, alarm is silent")
		return &NopPlayer{}
	}
	return p
}
