package managers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"satellite-catalog/pkg/metrics"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/registry"
	"satellite-catalog/pkg/shared"

	"github.com/jonboulle/clockwork"
)

type ConstellationManager struct {
	base
}

func NewConstellationManager(tx Transactor, clock clockwork.Clock, log *slog.Logger) *ConstellationManager {
	return &ConstellationManager{base: newBase(tx, clock, log)}
}

// Populate writes one row per registry entry. Rows that already exist get
// their product type, processing level and sensor mode lists replaced with
// the registry's current values; description and created_at are kept.
func (m *ConstellationManager) Populate(reg *registry.Registry) error {
	now := FormatTime(m.now())
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO constellations (name, description, available_product_types,
			        available_processing_levels, available_sensor_modes, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET
			    available_product_types = excluded.available_product_types,
			    available_processing_levels = excluded.available_processing_levels,
			    available_sensor_modes = excluded.available_sensor_modes,
			    updated_at = excluded.updated_at`,
		)
		if err != nil {
			return fmt.Errorf("failed to prepare constellation upsert: %w", err)
		}
		defer stmt.Close()

		for _, name := range reg.Names() {
			cfg, _ := reg.Lookup(name)
			types, err := encodeJSON(nonNil(cfg.ProductTypes), false)
			if err != nil {
				return err
			}
			levels, err := encodeJSON(nonNil(cfg.ProcessingLevels), false)
			if err != nil {
				return err
			}
			modes, err := encodeJSON(nonNil(cfg.SensorModes), false)
			if err != nil {
				return err
			}
			if _, err := stmt.Exec(name, fmt.Sprintf("%s satellite constellation", name), types, levels, modes, now, now); err != nil {
				return fmt.Errorf("failed to upsert constellation %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordsWritten.WithLabelValues(shared.EntityConstellation).Add(float64(reg.Len()))
	m.log.Info("constellations populated", "count", reg.Len())
	return nil
}

func (m *ConstellationManager) Get(name string) (*ontology.Constellation, error) {
	var c *ontology.Constellation
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		row := tx.QueryRow(
			`SELECT name, description, available_product_types, available_processing_levels,
			        available_sensor_modes, created_at, updated_at
			 FROM constellations WHERE name = ?`, name,
		)
		var err error
		c, err = scanConstellation(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every stored constellation ordered by name.
func (m *ConstellationManager) List() ([]ontology.Constellation, error) {
	var out []ontology.Constellation
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query(
			`SELECT name, description, available_product_types, available_processing_levels,
			        available_sensor_modes, created_at, updated_at
			 FROM constellations ORDER BY name`,
		)
		if err != nil {
			return fmt.Errorf("failed to query constellations: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanConstellation(rows)
			if err != nil {
				return err
			}
			out = append(out, *c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanConstellation(scanner rowScanner) (*ontology.Constellation, error) {
	var c ontology.Constellation
	var description, types, levels, modes sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(&c.Name, &description, &types, &levels, &modes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("constellation: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan constellation: %w", err)
	}

	c.Description = description.String
	for _, f := range []struct {
		src sql.NullString
		dst *[]string
	}{{types, &c.AvailableProductTypes}, {levels, &c.AvailableProcessingLevels}, {modes, &c.AvailableSensorModes}} {
		if err := decodeJSON(f.src, f.dst); err != nil {
			return nil, err
		}
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
