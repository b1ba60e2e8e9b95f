package screenshot

import (
	"archive/zip"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/distressd/internal/store"
)

// WriteArchive streams a zip of the given screenshots to w. Records whose
// file is missing are skipped. It returns the number of files written.
func (r *Recorder) WriteArchive(w io.Writer, records []*store.Screenshot) (int, error) {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	written := 0
	for _, rec := range records {
		path, err := r.Path(rec.Filename)
		if err != nil {
			log.Warn().Err(err).Str("filename", rec.Filename).Msg("Skipping screenshot with invalid name")
			continue
		}

		ok, err := addFile(zw, path, rec)
		if err != nil {
			zw.Close()
			return written, err
		}
		if ok {
			written++
		}
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish archive: %w", err)
	}
	return written, nil
}

func addFile(zw *zip.Writer, path string, rec *store.Screenshot) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("filename", rec.Filename).Msg("Screenshot file missing, skipping")
			return false, nil
		}
		return false, fmt.Errorf("failed to open %s: %w", rec.Filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", rec.Filename, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return false, err
	}
	header.Name = rec.Status + "/" + rec.Filename
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return false, fmt.Errorf("failed to add %s: %w", rec.Filename, err)
	}
	if _, err := io.Copy(dst, f); err != nil {
		return false, fmt.Errorf("failed to copy %s: %w", rec.Filename, err)
	}
	return true, nil
}
