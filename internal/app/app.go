// Package app runs the frame pipeline that ties the camera, hand detector,
// distress classifier and alert state machine together.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/distressd/internal/alert"
	"github.com/ayusman/distressd/internal/capture"
	"github.com/ayusman/distressd/internal/detector"
	"github.com/ayusman/distressd/internal/gesture"
	"github.com/ayusman/distressd/internal/screenshot"
)

// ReopenInterval is how long the pipeline waits between attempts to open
// an unavailable camera.
const ReopenInterval = 5 * time.Second

var (
	// ErrEncode is returned when a processed frame cannot be encoded as JPEG.
	ErrEncode = errors.New("failed to encode frame")
	// ErrNoFrame is returned when a screenshot is requested before any frame
	// has been processed.
	ErrNoFrame = errors.New("no frame available")
)

// Config holds the pipeline's collaborators and timings.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Recorder *screenshot.Recorder
	Audio    alert.Audio
	Clock    clockwork.Clock

	Debounce    time.Duration
	SettleDelay time.Duration
	FPS         int
}

// App owns the frame pipeline and the alert state machine it drives.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	machine  *alert.Machine
	frames   *FrameHub
	latest   *latestFrame

	// frameLog samples per-frame errors so a broken camera does not flood
	// the log.
	frameLog zerolog.Logger

	mu         sync.Mutex
	stopCh     chan struct{}
	done       chan struct{}
	lastReopen time.Time
}

// New creates an App. A nil detector falls back to a MockDetector that
// never sees a hand.
func New(config Config) *App {
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}
	if config.Detector == nil {
		config.Detector = detector.NewMockDetector()
	}

	a := &App{
		config:   config,
		camera:   config.Camera,
		detector: config.Detector,
		frames:   NewFrameHub(),
		latest:   &latestFrame{},
		frameLog: log.Sample(&zerolog.BurstSampler{Burst: 3, Period: 10 * time.Second}),
	}

	a.machine = alert.NewMachine(alert.Config{
		Debounce:    config.Debounce,
		SettleDelay: config.SettleDelay,
		Audio:       config.Audio,
		Capturer:    &frameCapturer{latest: a.latest, recorder: config.Recorder},
		Clock:       config.Clock,
	})

	return a
}

// Start opens the camera and starts the pipeline loop. A camera that
// cannot be opened is logged and retried from the loop; the rest of the
// service keeps running. Cancelling ctx stops the loop like Stop.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if a.camera == nil {
		return errors.New("no camera configured")
	}

	a.openCamera()

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.run(ctx, a.stopCh, a.done)

	log.Info().Int("fps", a.config.FPS).Msg("Frame pipeline started")
	return nil
}

// Stop halts the pipeline, cancels pending screenshots, and releases the
// camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}

	a.machine.Close()

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing camera")
		}
	}
	if err := a.detector.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing detector")
	}
	a.latest.Close()

	log.Info().Msg("Frame pipeline stopped")
}

// Machine returns the alert state machine.
func (a *App) Machine() *alert.Machine {
	return a.machine
}

// Frames returns the hub carrying encoded output frames.
func (a *App) Frames() *FrameHub {
	return a.frames
}

// CameraOpen reports whether the camera is currently delivering frames.
func (a *App) CameraOpen() bool {
	return a.camera != nil && a.camera.IsOpen()
}

func (a *App) run(ctx context.Context, stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.step()
		}
	}
}

// step runs one pipeline iteration: read, process, publish.
func (a *App) step() {
	if !a.camera.IsOpen() {
		if time.Since(a.lastReopen) < ReopenInterval {
			return
		}
		if !a.openCamera() {
			return
		}
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.frameLog.Warn().Err(err).Msg("Error reading frame")
		return
	}

	data, err := a.processFrame(frame)
	if err != nil {
		a.frameLog.Error().Err(err).Msg("Error processing frame")
		return
	}
	a.frames.Publish(data)
}

func (a *App) openCamera() bool {
	a.lastReopen = time.Now()
	if err := a.camera.Open(); err != nil {
		log.Error().Err(err).Msg("Camera unavailable, video feed is offline")
		return false
	}
	a.camera.SetFPS(a.config.FPS)
	log.Info().Msg("Camera opened")
	return true
}

// processFrame takes ownership of raw. It mirrors the frame, detects and
// draws the hand, feeds the distress signal into the machine, overlays the
// alert while active, and returns the frame as JPEG.
func (a *App) processFrame(raw *gocv.Mat) ([]byte, error) {
	frame := gocv.NewMat()
	defer frame.Close()

	gocv.Flip(*raw, &frame, 1)
	raw.Close()

	hand, err := detector.DetectOne(a.detector, &frame)
	if err != nil {
		a.frameLog.Warn().Err(err).Msg("Hand detection failed")
		hand = nil
	}
	if hand != nil {
		drawLandmarks(&frame, hand)
	}

	// Screenshots use the annotated frame without the alert overlay.
	a.latest.Set(&frame)

	distress, err := gesture.Classify(hand)
	if err != nil {
		a.frameLog.Debug().Err(err).Msg("Hand not classified")
	}
	a.machine.Update(distress)

	if a.machine.Snapshot().Active {
		drawAlert(&frame)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// latestFrame holds a private copy of the most recent annotated frame.
type latestFrame struct {
	mu  sync.Mutex
	mat *gocv.Mat
}

func (l *latestFrame) Set(frame *gocv.Mat) {
	clone := frame.Clone()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mat != nil {
		l.mat.Close()
	}
	l.mat = &clone
}

// Clone returns a copy the caller must close.
func (l *latestFrame) Clone() (*gocv.Mat, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mat == nil {
		return nil, false
	}
	clone := l.mat.Clone()
	return &clone, true
}

func (l *latestFrame) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mat != nil {
		l.mat.Close()
		l.mat = nil
	}
}

// frameCapturer saves the latest frame through the screenshot recorder.
type frameCapturer struct {
	latest   *latestFrame
	recorder *screenshot.Recorder
}

func (c *frameCapturer) Capture(status alert.Status) (string, error) {
	if c.recorder == nil {
		return "", errors.New("no screenshot recorder configured")
	}

	frame, ok := c.latest.Clone()
	if !ok {
		return "", ErrNoFrame
	}
	defer frame.Close()

	sc, err := c.recorder.Save(frame, string(status))
	if err != nil {
		return "", err
	}
	return screenshot.URL(sc.Filename), nil
}
