package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "distressd"

// xdgDir returns the XDG variable key when it holds an absolute path.
// Relative values are ignored as the XDG base directory rules require.
func xdgDir(key string) (string, bool) {
	v := os.Getenv(key)
	if v == "" || !filepath.IsAbs(v) {
		return "", false
	}
	return v, true
}

// XDGConfigHome returns $XDG_CONFIG_HOME, or ~/.config on Unix desktops,
// or the platform config directory (~/Library/Application Support,
// %AppData%) elsewhere.
func XDGConfigHome() string {
	if v, ok := xdgDir("XDG_CONFIG_HOME"); ok {
		return v
	}
	if nativeLayout() {
		if dir, err := os.UserConfigDir(); err == nil && dir != "" {
			return dir
		}
		return "."
	}
	return underHome(".config")
}

// XDGDataHome returns $XDG_DATA_HOME, or ~/.local/share on Unix desktops.
// Platforms without a separate data home keep screenshots and the log
// database next to the config.
func XDGDataHome() string {
	if v, ok := xdgDir("XDG_DATA_HOME"); ok {
		return v
	}
	if nativeLayout() {
		return XDGConfigHome()
	}
	return underHome(".local", "share")
}

func nativeLayout() bool {
	switch runtime.GOOS {
	case "darwin", "ios", "windows", "plan9":
		return true
	}
	return false
}

func underHome(elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, elem...)...)
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}

// DefaultDataDir returns the directory holding the log database and screenshots.
func DefaultDataDir() string {
	return filepath.Join(XDGDataHome(), appName)
}

// ScreenshotDir returns the screenshot directory under dataDir.
func ScreenshotDir(dataDir string) string {
	return filepath.Join(dataDir, "screenshots")
}

// DBPath returns the SQLite log path under dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "distress_signals.db")
}
