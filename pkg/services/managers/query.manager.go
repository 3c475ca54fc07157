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

type QueryManager struct {
	base
}

func NewQueryManager(tx Transactor, clock clockwork.Clock, log *slog.Logger) *QueryManager {
	return &QueryManager{base: newBase(tx, clock, log)}
}

// RecordQuery stores q under a new id and returns it so that later downloads
// can reference the search that found them.
func (m *QueryManager) RecordQuery(q *ontology.QueryHistory) (string, error) {
	switch {
	case q == nil:
		return "", missing("query")
	case q.Constellation == "":
		return "", missing("constellation")
	}

	params, err := encodeJSON(q.Parameters, q.Parameters == nil)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	err = m.tx.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO query_history (id, timestamp, constellation, geometry_wkt, start_date, end_date, parameters)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, FormatTime(m.now()), q.Constellation, q.GeometryWKT,
			nullTime(q.StartDate), nullTime(q.EndDate), params,
		)
		if err != nil {
			return fmt.Errorf("failed to record query: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	metrics.RecordsWritten.WithLabelValues(shared.EntityQuery).Inc()
	m.log.Debug("recorded query", "query_id", id, "constellation", q.Constellation)
	return id, nil
}

func (m *QueryManager) GetQuery(id string) (*ontology.QueryHistory, error) {
	var q ontology.QueryHistory
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		var ts string
		var constellation, geometry, start, end, params sql.NullString
		err := tx.QueryRow(
			`SELECT id, timestamp, constellation, geometry_wkt, start_date, end_date, parameters
			 FROM query_history WHERE id = ?`, id,
		).Scan(&q.ID, &ts, &constellation, &geometry, &start, &end, &params)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to scan query: %w", err)
		}

		if q.Timestamp, err = parseTime(ts); err != nil {
			return err
		}
		if q.StartDate, err = parseNullTime(start); err != nil {
			return err
		}
		if q.EndDate, err = parseNullTime(end); err != nil {
			return err
		}
		q.Constellation = constellation.String
		q.GeometryWKT = geometry.String
		return decodeJSON(params, &q.Parameters)
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}
