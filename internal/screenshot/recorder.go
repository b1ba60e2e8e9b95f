// Package screenshot writes distress screenshots to disk and records them in
// the screenshot log.
package screenshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/ayusman/distressd/internal/store"
)

// URLPrefix is the HTTP path under which screenshots are served.
const URLPrefix = "/screenshots/"

// ErrInvalidFilename is returned for names that are not plain screenshot
// file names.
var ErrInvalidFilename = errors.New("invalid screenshot filename")

// Recorder saves frames as JPEG files and appends a log record for each.
type Recorder struct {
	dir  string
	repo *store.ScreenshotRepository

	mu  sync.Mutex
	now func() time.Time
}

// NewRecorder creates dir if needed and returns a Recorder writing into it.
func NewRecorder(dir string, repo *store.ScreenshotRepository) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	return &Recorder{
		dir:  dir,
		repo: repo,
		now:  time.Now,
	}, nil
}

// SetNow replaces the time source used for filenames and log timestamps.
func (r *Recorder) SetNow(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Dir returns the screenshot directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// Save encodes frame as JPEG and writes it as {status}_{timestamp}.jpg. If
// that name is taken a short random suffix is added, so every call creates
// a new file. The log record is appended only after the file is written.
func (r *Recorder) Save(frame *gocv.Mat, status string) (*store.Screenshot, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("no frame to save")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode screenshot: %w", err)
	}
	defer buf.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	timestamp := r.now().Format(store.TimestampLayout)
	filename, err := r.writeUnique(status+"_"+timestamp, buf.GetBytes())
	if err != nil {
		return nil, err
	}

	sc := &store.Screenshot{
		Filename:  filename,
		Status:    status,
		Timestamp: timestamp,
	}
	if err := r.repo.Create(sc); err != nil {
		if rmErr := os.Remove(filepath.Join(r.dir, filename)); rmErr != nil {
			log.Warn().Err(rmErr).Str("filename", filename).Msg("Failed to remove unrecorded screenshot")
		}
		return nil, fmt.Errorf("failed to record screenshot: %w", err)
	}

	return sc, nil
}

// writeUnique creates base+".jpg", or base+"_<suffix>.jpg" when the plain
// name already exists, and writes data into it.
func (r *Recorder) writeUnique(base string, data []byte) (string, error) {
	filename := base + ".jpg"
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(filepath.Join(r.dir, filename), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			if _, err := f.Write(data); err != nil {
				f.Close()
				os.Remove(f.Name())
				return "", fmt.Errorf("failed to write screenshot: %w", err)
			}
			if err := f.Close(); err != nil {
				os.Remove(f.Name())
				return "", fmt.Errorf("failed to write screenshot: %w", err)
			}
			return filename, nil
		}
		if !errors.Is(err, os.ErrExist) || attempt >= 3 {
			return "", fmt.Errorf("failed to create screenshot file: %w", err)
		}
		filename = base + "_" + uuid.NewString()[:8] + ".jpg"
	}
}

// Path returns the file path for a validated screenshot name.
func (r *Recorder) Path(filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, filename), nil
}

// URL returns the HTTP path for filename.
func URL(filename string) string {
	return URLPrefix + filename
}

// ValidateFilename rejects names that could escape the screenshot directory.
func ValidateFilename(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return ErrInvalidFilename
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidFilename, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q is hidden", ErrInvalidFilename, name)
	case !strings.EqualFold(filepath.Ext(name), ".jpg"):
		return fmt.Errorf("%w: %q is not a .jpg", ErrInvalidFilename, name)
	}
	return nil
}
