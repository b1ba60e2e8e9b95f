package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// TimestampLayout is the format of Screenshot.Timestamp. It is also the
// timestamp part of screenshot filenames.
const TimestampLayout = "2006-01-02 15-04-05"

// Screenshot is one row of the screenshot log.
type Screenshot struct {
	ID        int64
	Filename  string
	Status    string
	Timestamp string
}

// ScreenshotRepository provides access to the screenshot log.
type ScreenshotRepository struct {
	db *sql.DB
}

// Screenshots returns the screenshot repository for this store.
func (s *Store) Screenshots() *ScreenshotRepository {
	return &ScreenshotRepository{db: s.db}
}

// Create appends a record to the log and sets sc.ID.
func (r *ScreenshotRepository) Create(sc *Screenshot) error {
	result, err := r.db.Exec(
		`INSERT INTO screenshots (filename, status, timestamp) VALUES (?, ?, ?)`,
		sc.Filename, sc.Status, sc.Timestamp,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	sc.ID = id
	return nil
}

// List returns the log newest first. A non-empty status limits the result
// to records with that status.
func (r *ScreenshotRepository) List(status string) ([]*Screenshot, error) {
	query := `SELECT id, filename, status, timestamp FROM screenshots`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	screenshots := []*Screenshot{}
	for rows.Next() {
		sc := &Screenshot{}
		if err := rows.Scan(&sc.ID, &sc.Filename, &sc.Status, &sc.Timestamp); err != nil {
			return nil, err
		}
		screenshots = append(screenshots, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return screenshots, nil
}

// GetByFilename returns the newest record for filename.
func (r *ScreenshotRepository) GetByFilename(filename string) (*Screenshot, error) {
	sc := &Screenshot{}
	err := r.db.QueryRow(
		`SELECT id, filename, status, timestamp FROM screenshots
		 WHERE filename = ? ORDER BY id DESC LIMIT 1`,
		filename,
	).Scan(&sc.ID, &sc.Filename, &sc.Status, &sc.Timestamp)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sc, nil
}

// Count returns the number of records, optionally filtered by status.
func (r *ScreenshotRepository) Count(status string) (int, error) {
	query := `SELECT COUNT(*) FROM screenshots`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}

	var n int
	if err := r.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
