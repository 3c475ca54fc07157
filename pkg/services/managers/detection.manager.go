package managers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"satellite-catalog/pkg/metrics"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type DetectionManager struct {
	base
}

func NewDetectionManager(tx Transactor, clock clockwork.Clock, log *slog.Logger) *DetectionManager {
	return &DetectionManager{base: newBase(tx, clock, log)}
}

// RecordDetection stores d under a freshly generated id and returns that id.
// The referenced image must already be registered.
func (m *DetectionManager) RecordDetection(d *ontology.Detection) (string, error) {
	switch {
	case d == nil:
		return "", missing("detection")
	case d.Constellation == "":
		return "", missing("constellation")
	case d.ImageID == "":
		return "", missing("image_id")
	case d.DetectionFile == "":
		return "", missing("detection_file")
	}

	id := uuid.New().String()
	ts := d.Timestamp
	if ts.IsZero() {
		ts = m.now()
	}

	err := m.tx.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO detections (id, constellation, image_id, detection_file, timestamp,
			        num_ship_detections, num_dark_ship_detections, avg_confidence, latitude, longitude)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, d.Constellation, d.ImageID, d.DetectionFile, FormatTime(ts),
			d.NumShipDetections, d.NumDarkShipDetections, d.AvgConfidence, d.Latitude, d.Longitude,
		)
		if err != nil {
			return fmt.Errorf("failed to record detection: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	metrics.RecordsWritten.WithLabelValues(shared.EntityDetection).Inc()
	m.log.Debug("recorded detection", "detection_id", id, "image_id", d.ImageID)
	return id, nil
}

// DetectionsForImage returns every detection recorded against imageID, oldest first.
func (m *DetectionManager) DetectionsForImage(imageID string) ([]ontology.Detection, error) {
	var out []ontology.Detection
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query(
			`SELECT id, constellation, image_id, detection_file, timestamp,
			        num_ship_detections, num_dark_ship_detections, avg_confidence, latitude, longitude
			 FROM detections WHERE image_id = ? ORDER BY timestamp, id`, imageID,
		)
		if err != nil {
			return fmt.Errorf("failed to query detections: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDetection(rows)
			if err != nil {
				return err
			}
			out = append(out, *d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanDetection(scanner rowScanner) (*ontology.Detection, error) {
	var d ontology.Detection
	var constellation sql.NullString
	var ts string
	var ships, dark, conf, lat, lon sql.NullFloat64

	err := scanner.Scan(&d.ID, &constellation, &d.ImageID, &d.DetectionFile, &ts,
		&ships, &dark, &conf, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("detection: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan detection: %w", err)
	}

	if d.Timestamp, err = parseTime(ts); err != nil {
		return nil, err
	}
	d.Constellation = constellation.String
	d.NumShipDetections = floatPtr(ships)
	d.NumDarkShipDetections = floatPtr(dark)
	d.AvgConfidence = floatPtr(conf)
	d.Latitude = floatPtr(lat)
	d.Longitude = floatPtr(lon)
	return &d, nil
}
