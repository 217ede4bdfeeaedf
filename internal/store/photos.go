package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/trailpack/internal/model"
)

// photoRefPrefix marks a photoRef that points into the photos table.
const photoRefPrefix = "photo:"

// PhotoRef returns the photoRef value for a stored photo id.
func PhotoRef(id string) string {
	return photoRefPrefix + id
}

// PhotoIDFromRef extracts the photo id from a photoRef. ok is false for
// refs that do not point into the photos table (for example data URLs).
func PhotoIDFromRef(ref string) (id string, ok bool) {
	if !strings.HasPrefix(ref, photoRefPrefix) {
		return "", false
	}
	id = strings.TrimPrefix(ref, photoRefPrefix)
	return id, id != ""
}

// CreatePhoto stores processed image data.
func CreatePhoto(ctx context.Context, db *sql.DB, p model.Photo) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO photos (id, data, mime, width, height) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Data, p.MIME, p.Width, p.Height,
	)
	if err != nil {
		return fmt.Errorf("creating photo: %w", err)
	}
	return nil
}

// GetPhoto returns a stored photo, or nil if it does not exist.
func GetPhoto(ctx context.Context, db *sql.DB, id string) (*model.Photo, error) {
	p := &model.Photo{}
	err := db.QueryRowContext(ctx,
		`SELECT id, data, mime, width, height, created_at FROM photos WHERE id = ?`, id,
	).Scan(&p.ID, &p.Data, &p.MIME, &p.Width, &p.Height, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting photo: %w", err)
	}
	return p, nil
}

// DeletePhoto removes a stored photo.
func DeletePhoto(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return nil
}

// DeleteUnreferencedPhotos removes every stored photo whose id is not in
// keep and returns how many were deleted.
func DeleteUnreferencedPhotos(ctx context.Context, db *sql.DB, keep map[string]bool) (int, error) {
	rows, err := db.QueryContext(ctx, `SELECT id FROM photos`)
	if err != nil {
		return 0, fmt.Errorf("listing photos: %w", err)
	}
	var orphans []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning photo id: %w", err)
		}
		if !keep[id] {
			orphans = append(orphans, id)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("listing photos: %w", err)
	}
	rows.Close()

	for _, id := range orphans {
		if err := DeletePhoto(ctx, db, id); err != nil {
			return 0, err
		}
	}
	return len(orphans), nil
}

// ReferencedPhotos collects the photo ids referenced by doc.
func ReferencedPhotos(doc model.Document) map[string]bool {
	keep := make(map[string]bool)
	add := func(ref string) {
		if id, ok := PhotoIDFromRef(ref); ok {
			keep[id] = true
		}
	}
	for _, it := range doc.Inventory {
		add(it.PhotoRef)
	}
	for _, w := range doc.Walks {
		add(w.PhotoRef)
	}
	return keep
}
