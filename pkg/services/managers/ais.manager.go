package managers

import (
	"database/sql"
	"fmt"
	"log/slog"

	"satellite-catalog/pkg/metrics"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type AISManager struct {
	base
}

func NewAISManager(tx Transactor, clock clockwork.Clock, log *slog.Logger) *AISManager {
	return &AISManager{base: newBase(tx, clock, log)}
}

// InsertAISRecords attaches records to imageID, giving each a new id. Any
// ImageID or ID already set on a record is ignored. An empty slice is a no-op.
func (m *AISManager) InsertAISRecords(imageID string, records []ontology.AISRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if imageID == "" {
		return 0, missing("image_id")
	}

	err := m.tx.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO ais (id, image_id, mmsi, imo, name, type, length, timestamp,
			        latitude, longitude, speed, heading, status, source)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return fmt.Errorf("failed to prepare ais insert: %w", err)
		}
		defer stmt.Close()

		for i, r := range records {
			_, err := stmt.Exec(
				uuid.New().String(), imageID, r.MMSI, r.IMO, r.Name, r.Type, r.Length,
				nullTime(r.Timestamp), r.Latitude, r.Longitude, r.Speed, r.Heading, r.Status, r.Source,
			)
			if err != nil {
				return fmt.Errorf("failed to insert ais record %d for image %s: %w", i, imageID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordsWritten.WithLabelValues(shared.EntityAIS).Add(float64(len(records)))
	m.log.Debug("inserted ais records", "image_id", imageID, "count", len(records))
	return len(records), nil
}

// CountForImage returns how many AIS records belong to imageID.
func (m *AISManager) CountForImage(imageID string) (int, error) {
	var n int
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		if err := tx.QueryRow(`SELECT COUNT(*) FROM ais WHERE image_id = ?`, imageID).Scan(&n); err != nil {
			return fmt.Errorf("failed to count ais records: %w", err)
		}
		return nil
	})
	return n, err
}
