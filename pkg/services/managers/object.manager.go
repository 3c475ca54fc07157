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

type ObjectManager struct {
	base
}

func NewObjectManager(tx Transactor, clock clockwork.Clock, log *slog.Logger) *ObjectManager {
	return &ObjectManager{base: newBase(tx, clock, log)}
}

// RecordObjects stores detected objects for imageID. Objects without an id
// get a new one. An empty slice is a no-op.
func (m *ObjectManager) RecordObjects(imageID string, objects []ontology.Object) (int, error) {
	if len(objects) == 0 {
		return 0, nil
	}
	if imageID == "" {
		return 0, missing("image_id")
	}

	err := m.tx.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO objects (id, image_id, obj_class, latitude, longitude, distance_to_shore,
			        class_index, probability, probabilities, length_min, length_max, breadth_min,
			        breadth_max, orientation_min, orientation_max, speed_min, speed_max,
			        bbox_width, bbox_height, bbox_x, bbox_y, encoded_image)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return fmt.Errorf("failed to prepare object insert: %w", err)
		}
		defer stmt.Close()

		for i, o := range objects {
			id := o.ID
			if id == "" {
				id = uuid.New().String()
			}
			probs, err := encodeJSON(o.Probabilities, o.Probabilities == nil)
			if err != nil {
				return err
			}
			_, err = stmt.Exec(
				id, imageID, o.Class, o.Latitude, o.Longitude, o.DistanceToShore,
				o.ClassIndex, o.Probability, probs, o.LengthMin, o.LengthMax, o.BreadthMin,
				o.BreadthMax, o.OrientationMin, o.OrientationMax, o.SpeedMin, o.SpeedMax,
				o.BBoxWidth, o.BBoxHeight, o.BBoxX, o.BBoxY, o.EncodedImage,
			)
			if err != nil {
				return fmt.Errorf("failed to insert object %d for image %s: %w", i, imageID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.RecordsWritten.WithLabelValues(shared.EntityObject).Add(float64(len(objects)))
	m.log.Debug("recorded objects", "image_id", imageID, "count", len(objects))
	return len(objects), nil
}
