package managers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"satellite-catalog/pkg/metrics"
	"satellite-catalog/pkg/ontology"
	"satellite-catalog/pkg/shared"

	"github.com/jonboulle/clockwork"
)

const downloadColumns = `product_id, query_id, constellation, sensor_mode, product_type, processing_level,
	status, download_time, acquisition_time, publication_time, ingestion_time, latency,
	coordinates, latitude, longitude, name, quicklook, file_path, file_size_mb, checksum, metadata`

type DownloadManager struct {
	base
}

func NewDownloadManager(tx Transactor, clock clockwork.Clock, log *slog.Logger) *DownloadManager {
	return &DownloadManager{base: newBase(tx, clock, log)}
}

// ResolveStatus picks the status to store: the explicit argument, then the
// payload's own status, then "unknown".
func ResolveStatus(explicit, payload string) string {
	if explicit != "" {
		return explicit
	}
	if payload != "" {
		return payload
	}
	return shared.StatusUnknown
}

// RecordDownload stores d keyed by product id. Recording the same product
// again updates the existing row: required columns are overwritten and
// optional columns keep their previous value when the new attempt omits them.
func (m *DownloadManager) RecordDownload(d *ontology.Download, status string) error {
	switch {
	case d == nil:
		return missing("download")
	case d.ProductID == "":
		return missing("product_id")
	}

	status = ResolveStatus(status, d.Status)
	downloadTime := d.DownloadTime
	if downloadTime.IsZero() {
		downloadTime = m.now()
	}

	var queryID interface{}
	if d.QueryID != nil && *d.QueryID != "" {
		queryID = *d.QueryID
	}

	metadata, err := encodeJSON(d.Metadata, len(d.Metadata) == 0)
	if err != nil {
		return err
	}

	err = m.tx.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO downloads (`+downloadColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(product_id) DO UPDATE SET
			    query_id = COALESCE(excluded.query_id, downloads.query_id),
			    constellation = excluded.constellation,
			    sensor_mode = excluded.sensor_mode,
			    product_type = excluded.product_type,
			    processing_level = excluded.processing_level,
			    status = excluded.status,
			    download_time = excluded.download_time,
			    acquisition_time = COALESCE(excluded.acquisition_time, downloads.acquisition_time),
			    publication_time = COALESCE(excluded.publication_time, downloads.publication_time),
			    ingestion_time = COALESCE(excluded.ingestion_time, downloads.ingestion_time),
			    latency = COALESCE(excluded.latency, downloads.latency),
			    coordinates = COALESCE(excluded.coordinates, downloads.coordinates),
			    latitude = COALESCE(excluded.latitude, downloads.latitude),
			    longitude = COALESCE(excluded.longitude, downloads.longitude),
			    name = COALESCE(excluded.name, downloads.name),
			    quicklook = COALESCE(excluded.quicklook, downloads.quicklook),
			    file_path = COALESCE(NULLIF(excluded.file_path, ''), downloads.file_path),
			    file_size_mb = COALESCE(excluded.file_size_mb, downloads.file_size_mb),
			    checksum = COALESCE(excluded.checksum, downloads.checksum),
			    metadata = COALESCE(excluded.metadata, downloads.metadata)`,
			d.ProductID, queryID, d.Constellation, d.SensorMode, d.ProductType, d.ProcessingLevel,
			status, FormatTime(downloadTime), nullTime(d.AcquisitionTime), nullTime(d.PublicationTime),
			nullTime(d.IngestionTime), d.Latency, d.Coordinates, d.Latitude, d.Longitude, d.Name,
			d.Quicklook, d.FilePath, d.FileSizeMB, d.Checksum, metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to record download: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.RecordsWritten.WithLabelValues(shared.EntityDownload).Inc()
	m.log.Debug("recorded download", "product_id", d.ProductID, "status", status)
	return nil
}

func (m *DownloadManager) GetDownload(productID string) (*ontology.Download, error) {
	var d *ontology.Download
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		row := tx.QueryRow(`SELECT `+downloadColumns+` FROM downloads WHERE product_id = ?`, productID)
		var err error
		d, err = scanDownload(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Exists reports whether any download row exists for productID.
func (m *DownloadManager) Exists(productID string) (bool, error) {
	var exists bool
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRow(`SELECT 1 FROM downloads WHERE product_id = ? LIMIT 1`, productID).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil
		case err != nil:
			return fmt.Errorf("failed to check download: %w", err)
		}
		exists = true
		return nil
	})
	return exists, err
}

// History returns downloads whose download time lies in [since, until], newest first.
func (m *DownloadManager) History(since, until time.Time) ([]ontology.Download, error) {
	var out []ontology.Download
	err := m.tx.Transaction(func(tx *sql.Tx) error {
		rows, err := tx.Query(
			`SELECT `+downloadColumns+` FROM downloads
			 WHERE download_time >= ? AND download_time <= ?
			 ORDER BY download_time DESC`,
			FormatTime(since), FormatTime(until),
		)
		if err != nil {
			return fmt.Errorf("failed to query download history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			d, err := scanDownload(rows)
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

func scanDownload(scanner rowScanner) (*ontology.Download, error) {
	var d ontology.Download
	var queryID, constellation, sensorMode, productType, processingLevel sql.NullString
	var downloadTime string
	var acquisition, publication, ingestion sql.NullString
	var coordinates, name, quicklook, filePath, checksum, metadata sql.NullString
	var latency, lat, lon, size sql.NullFloat64

	err := scanner.Scan(
		&d.ProductID, &queryID, &constellation, &sensorMode, &productType, &processingLevel,
		&d.Status, &downloadTime, &acquisition, &publication, &ingestion, &latency,
		&coordinates, &lat, &lon, &name, &quicklook, &filePath, &size, &checksum, &metadata,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("download: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}

	if d.DownloadTime, err = parseTime(downloadTime); err != nil {
		return nil, err
	}
	if d.AcquisitionTime, err = parseNullTime(acquisition); err != nil {
		return nil, err
	}
	if d.PublicationTime, err = parseNullTime(publication); err != nil {
		return nil, err
	}
	if d.IngestionTime, err = parseNullTime(ingestion); err != nil {
		return nil, err
	}
	if err := decodeJSON(metadata, &d.Metadata); err != nil {
		return nil, err
	}

	d.QueryID = stringPtr(queryID)
	d.Constellation = constellation.String
	d.SensorMode = sensorMode.String
	d.ProductType = productType.String
	d.ProcessingLevel = processingLevel.String
	d.Latency = floatPtr(latency)
	d.Coordinates = stringPtr(coordinates)
	d.Latitude = floatPtr(lat)
	d.Longitude = floatPtr(lon)
	d.Name = stringPtr(name)
	d.Quicklook = stringPtr(quicklook)
	d.FilePath = filePath.String
	d.FileSizeMB = floatPtr(size)
	d.Checksum = stringPtr(checksum)
	return &d, nil
}
