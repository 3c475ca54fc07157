package managers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"satellite-catalog/pkg/metrics"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/jonboulle/clockwork"
)

type ImageManager struct {
	base
}

func NewImageManager(tx Transactor, clock clockwork.Clock, log *slog.Logger) *ImageManager {
	return &ImageManager{base: newBase(tx, clock, log)}
}

// RegisterImage inserts img unless an image with the same id already exists.
// It reports whether a new row was created.
func (m *ImageManager) RegisterImage(img *ontology.Image) (bool, error) {
	switch {
	case img == nil:
		return false, missing("image")
	case img.ID == "":
		return false, missing("id")
	case img.Constellation == "":
		return false, missing("constellation")
	case img.FilePath == "":
		return false, missing("file_path")
	}

	var created bool
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`INSERT INTO images (id, constellation, acquisition_time, file_path, latitude, longitude, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			img.ID, img.Constellation, nullTime(img.AcquisitionTime), img.FilePath,
			img.Latitude, img.Longitude, FormatTime(m.now()),
		)
		if err != nil {
			return fmt.Errorf("failed to register image: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to register image: %w", err)
		}
		created = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if created {
		metrics.RecordsWritten.WithLabelValues(shared.EntityImage).Inc()
		m.log.Debug("registered image", "image_id", img.ID, "constellation", img.Constellation)
	} else {
		m.log.Debug("image already registered", "image_id", img.ID)
	}
	return created, nil
}

func (m *ImageManager) GetImage(id string) (*ontology.Image, error) {
	var img *ontology.Image
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		row := tx.QueryRow(
			`SELECT id, constellation, acquisition_time, file_path, latitude, longitude, created_at
			 FROM images WHERE id = ?`, id,
		)
		var err error
		img, err = scanImage(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// DeleteImage removes an image together with its detections. AIS records and
// objects owned by the image cascade.
func (m *ImageManager) DeleteImage(id string) error {
	return m.tx.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM detections WHERE image_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete detections: %w", err)
		}
		res, err := tx.Exec(`DELETE FROM images WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("image %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

func scanImage(scanner rowScanner) (*ontology.Image, error) {
	var img ontology.Image
	var acquisition sql.NullString
	var lat, lon sql.NullFloat64
	var createdAt string

	err := scanner.Scan(&img.ID, &img.Constellation, &acquisition, &img.FilePath, &lat, &lon, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("image: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}

	if img.AcquisitionTime, err = parseNullTime(acquisition); err != nil {
		return nil, err
	}
	if img.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	img.Latitude = floatPtr(lat)
	img.Longitude = floatPtr(lon)
	return &img, nil
}
