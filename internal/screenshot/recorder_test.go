package screenshot

import (
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/distressd/internal/capture"
	"github.com/ayusman/distressd/internal/store"
)

var fixedTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

func newTestRecorder(t *testing.T) (*Recorder, *store.Store) {
	t.Helper()
	dir := t.TempDir()

	s, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r, err := NewRecorder(filepath.Join(dir, "screenshots"), s.Screenshots())
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	r.SetNow(func() time.Time { return fixedTime })
	return r, s
}

func testFrame(t *testing.T) *gocv.Mat {
	t.Helper()
	frame := capture.SolidFrame(64, 48, color.RGBA{R: 200, G: 10, B: 10})
	t.Cleanup(func() { frame.Close() })
	return frame
}

func TestRecorder_Save(t *testing.T) {
	r, s := newTestRecorder(t)

	sc, err := r.Save(testFrame(t), "correct")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if sc.Filename != "correct_2026-03-14 09-26-53.jpg" {
		t.Errorf("Filename = %q", sc.Filename)
	}
	if sc.Timestamp != "2026-03-14 09-26-53" {
		t.Errorf("Timestamp = %q", sc.Timestamp)
	}
	if sc.Status != "correct" || sc.ID == 0 {
		t.Errorf("record = %+v", sc)
	}

	data, err := os.ReadFile(filepath.Join(r.Dir(), sc.Filename))
	if err != nil {
		t.Fatalf("screenshot file not written: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("screenshot file is not a JPEG")
	}

	rows, err := s.Screenshots().List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Filename != sc.Filename {
		t.Errorf("log = %v, want one record for %q", rows, sc.Filename)
	}
}

func TestRecorder_Save_Collision(t *testing.T) {
	r, s := newTestRecorder(t)
	frame := testFrame(t)

	first, err := r.Save(frame, "incorrect")
	if err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	second, err := r.Save(frame, "incorrect")
	if err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	if first.Filename == second.Filename {
		t.Fatalf("both saves used %q", first.Filename)
	}
	pattern := regexp.MustCompile(`^incorrect_2026-03-14 09-26-53_[0-9a-f]{8}\.jpg$`)
	if !pattern.MatchString(second.Filename) {
		t.Errorf("second filename = %q, want suffixed name", second.Filename)
	}

	entries, err := os.ReadDir(r.Dir())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("files on disk = %d, want 2", len(entries))
	}

	n, _ := s.Screenshots().Count("incorrect")
	if n != 2 {
		t.Errorf("records = %d, want 2", n)
	}
}

func TestRecorder_Save_EmptyFrame(t *testing.T) {
	r, s := newTestRecorder(t)

	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := r.Save(&empty, "correct"); err == nil {
		t.Error("Save() with an empty frame should fail")
	}
	if _, err := r.Save(nil, "correct"); err == nil {
		t.Error("Save() with a nil frame should fail")
	}

	n, _ := s.Screenshots().Count("")
	if n != 0 {
		t.Errorf("records = %d, want 0 after failed saves", n)
	}
}

func TestRecorder_Save_RecordFailureRemovesFile(t *testing.T) {
	r, s := newTestRecorder(t)
	s.Close()

	if _, err := r.Save(testFrame(t), "correct"); err == nil {
		t.Fatal("Save() should fail when the log is unavailable")
	}

	entries, _ := os.ReadDir(r.Dir())
	if len(entries) != 0 {
		t.Errorf("files on disk = %d, want 0 for an unrecorded screenshot", len(entries))
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"correct_2026-03-14 09-26-53.jpg", false},
		{"incorrect_2026-03-14 09-26-53_1a2b3c4d.jpg", false},
		{"UPPER.JPG", false},
		{"", true},
		{".", true},
		{"..", true},
		{"../distress_signals.db", true},
		{"sub/file.jpg", true},
		{`sub\file.jpg`, true},
		{".hidden.jpg", true},
		{"notes.txt", true},
		{"file.jpg\x00.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFilename) {
				t.Errorf("error = %v, want ErrInvalidFilename", err)
			}
		})
	}
}

func TestRecorder_Path(t *testing.T) {
	r, _ := newTestRecorder(t)

	p, err := r.Path("a.jpg")
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if !strings.HasPrefix(p, r.Dir()) {
		t.Errorf("Path() = %q, want inside %q", p, r.Dir())
	}

	if _, err := r.Path("../a.jpg"); !errors.Is(err, ErrInvalidFilename) {
		t.Errorf("Path(../a.jpg) error = %v, want ErrInvalidFilename", err)
	}
}

func TestURL(t *testing.T) {
	if got := URL("correct_x.jpg"); got != "/screenshots/correct_x.jpg" {
		t.Errorf("URL() = %q", got)
	}
}
