// Package config provides configuration defaults, TOML parsing, and XDG path helpers.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default settings.
const (
	DefaultAddr          = ":5000"
	DefaultCameraWidth   = 1280
	DefaultCameraHeight  = 720
	DefaultFPS           = 15
	DefaultMaxHands      = 1
	DefaultMinConfidence = 0.8
	DefaultDebounce      = 5 * time.Second
	DefaultSettleDelay   = 10 * time.Second
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Server   ServerConfig
	Camera   CameraConfig
	Detector DetectorConfig
	Alert    AlertConfig
	Alarm    AlarmConfig
	Storage  StorageConfig
	Tray     TrayConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string
	StaticDir string
}

// CameraConfig configures the capture device.
type CameraConfig struct {
	Device int
	Width  int
	Height int
	FPS    int
}

// DetectorConfig configures the landmark provider.
type DetectorConfig struct {
	MaxHands      int
	MinConfidence float64
	// Script overrides the hand_landmarks.py lookup.
	Script string
}

// AlertConfig holds the alert state machine timings.
type AlertConfig struct {
	Debounce    time.Duration
	SettleDelay time.Duration
}

// AlarmConfig configures the audio alarm. Command is an argv; an empty
// command disables audio.
type AlarmConfig struct {
	Command []string
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	DataDir       string
	ScreenshotDir string
	DBPath        string
}

// TrayConfig toggles the system tray indicator.
type TrayConfig struct {
	Enabled bool
}

// Default returns a Config populated with defaults rooted at the XDG data home.
func Default() Config {
	dataDir := DefaultDataDir()
	return Config{
		Server: ServerConfig{Addr: DefaultAddr},
		Camera: CameraConfig{
			Device: 0,
			Width:  DefaultCameraWidth,
			Height: DefaultCameraHeight,
			FPS:    DefaultFPS,
		},
		Detector: DetectorConfig{
			MaxHands:      DefaultMaxHands,
			MinConfidence: DefaultMinConfidence,
		},
		Alert: AlertConfig{
			Debounce:    DefaultDebounce,
			SettleDelay: DefaultSettleDelay,
		},
		Storage: StorageConfig{
			DataDir:       dataDir,
			ScreenshotDir: ScreenshotDir(dataDir),
			DBPath:        DBPath(dataDir),
		},
	}
}

// Duration is a time.Duration that decodes from TOML strings such as "5s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// FileConfig represents the TOML configuration file. Every field is optional.
type FileConfig struct {
	Server   fileServer   `toml:"server"`
	Camera   fileCamera   `toml:"camera"`
	Detector fileDetector `toml:"detector"`
	Alert    fileAlert    `toml:"alert"`
	Alarm    fileAlarm    `toml:"alarm"`
	Storage  fileStorage  `toml:"storage"`
	Tray     fileTray     `toml:"tray"`
}

type fileServer struct {
	Addr      *string `toml:"addr"`
	StaticDir *string `toml:"static_dir"`
}

type fileCamera struct {
	Device *int `toml:"device"`
	Width  *int `toml:"width"`
	Height *int `toml:"height"`
	FPS    *int `toml:"fps"`
}

type fileDetector struct {
	MaxHands      *int     `toml:"max_hands"`
	MinConfidence *float64 `toml:"min_confidence"`
	Script        *string  `toml:"script"`
}

type fileAlert struct {
	Debounce    *Duration `toml:"debounce"`
	SettleDelay *Duration `toml:"settle_delay"`
}

type fileAlarm struct {
	Command []string `toml:"command"`
}

type fileStorage struct {
	DataDir       *string `toml:"data_dir"`
	ScreenshotDir *string `toml:"screenshot_dir"`
	DBPath        *string `toml:"db_path"`
}

type fileTray struct {
	Enabled *bool `toml:"enabled"`
}

// LoadFile reads a TOML config from the given path. A missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var fc FileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return fc, nil
}

// Apply overlays the values present in the file onto cfg.
// Screenshot and database paths follow data_dir unless set explicitly.
func (fc FileConfig) Apply(cfg *Config) {
	if fc.Server.Addr != nil {
		cfg.Server.Addr = *fc.Server.Addr
	}
	if fc.Server.StaticDir != nil {
		cfg.Server.StaticDir = *fc.Server.StaticDir
	}

	if fc.Camera.Device != nil {
		cfg.Camera.Device = *fc.Camera.Device
	}
	if fc.Camera.Width != nil {
		cfg.Camera.Width = *fc.Camera.Width
	}
	if fc.Camera.Height != nil {
		cfg.Camera.Height = *fc.Camera.Height
	}
	if fc.Camera.FPS != nil {
		cfg.Camera.FPS = *fc.Camera.FPS
	}

	if fc.Detector.MaxHands != nil {
		cfg.Detector.MaxHands = *fc.Detector.MaxHands
	}
	if fc.Detector.MinConfidence != nil {
		cfg.Detector.MinConfidence = *fc.Detector.MinConfidence
	}
	if fc.Detector.Script != nil {
		cfg.Detector.Script = *fc.Detector.Script
	}

	if fc.Alert.Debounce != nil {
		cfg.Alert.Debounce = fc.Alert.Debounce.Duration
	}
	if fc.Alert.SettleDelay != nil {
		cfg.Alert.SettleDelay = fc.Alert.SettleDelay.Duration
	}

	if len(fc.Alarm.Command) > 0 {
		cfg.Alarm.Command = append([]string(nil), fc.Alarm.Command...)
	}

	if fc.Storage.DataDir != nil {
		cfg.SetDataDir(*fc.Storage.DataDir)
	}
	if fc.Storage.ScreenshotDir != nil {
		cfg.Storage.ScreenshotDir = *fc.Storage.ScreenshotDir
	}
	if fc.Storage.DBPath != nil {
		cfg.Storage.DBPath = *fc.Storage.DBPath
	}

	if fc.Tray.Enabled != nil {
		cfg.Tray.Enabled = *fc.Tray.Enabled
	}
}

// SetDataDir moves the data directory and the paths derived from it.
func (c *Config) SetDataDir(dir string) {
	c.Storage.DataDir = dir
	c.Storage.ScreenshotDir = ScreenshotDir(dir)
	c.Storage.DBPath = DBPath(dir)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, fmt.Errorf("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height))
	}
	if c.Camera.FPS <= 0 {
		errs = append(errs, fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS))
	}
	if c.Detector.MaxHands <= 0 {
		errs = append(errs, fmt.Errorf("detector.max_hands must be positive, got %d", c.Detector.MaxHands))
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("detector.min_confidence must be within [0, 1], got %g", c.Detector.MinConfidence))
	}
	if c.Alert.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("alert.debounce must be positive, got %s", c.Alert.Debounce))
	}
	if c.Alert.SettleDelay < 0 {
		errs = append(errs, fmt.Errorf("alert.settle_delay must not be negative, got %s", c.Alert.SettleDelay))
	}
	if c.Storage.ScreenshotDir == "" || c.Storage.DBPath == "" {
		errs = append(errs, errors.New("storage paths must not be empty"))
	}
	return errors.Join(errs...)
}
