// Package views derives the read-only reporting views from the registry and
// the base tables. Views are dropped and recreated on every rebuild.
package views

import (
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"satellite-catalog/pkg/metrics"
	"satellite-catalog/pkg/registry"
	"satellite-catalog/pkg/services/managers"
	"satellite-catalog/pkg/shared"
)

// Global view names.
const (
	ImageCountsByConstellation     = "image_counts_by_constellation"
	DetectionCountsByConstellation = "detection_counts_by_constellation"
	LatestImagePerConstellation    = "latest_image_per_constellation"
	DetectionSummaryByImage        = "detection_summary_by_image"
	DownloadSummaryByStatus        = "download_summary_by_status"
	AISRecordsWithImageInfo        = "ais_records_with_image_info"
	AISSummaryByImage              = "ais_summary_by_image"
)

var identPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_]*$`)

// View is one generated view. Constellation is empty for global views.
type View struct {
	Name          string `json:"name"`
	Constellation string `json:"constellation,omitempty"`
	Kind          string `json:"kind"`
}

type definition struct {
	View
	sql string
}

var globalDefinitions = []definition{
	{View{Name: ImageCountsByConstellation, Kind: shared.ViewKindGlobal}, `
		SELECT constellation, COUNT(*) AS num_images
		FROM images
		GROUP BY constellation`},
	{View{Name: DetectionCountsByConstellation, Kind: shared.ViewKindGlobal}, `
		SELECT constellation, COUNT(*) AS num_detections
		FROM detections
		GROUP BY constellation`},
	{View{Name: LatestImagePerConstellation, Kind: shared.ViewKindGlobal}, `
		SELECT constellation, MAX(acquisition_time) AS latest_time
		FROM images
		GROUP BY constellation`},
	{View{Name: DetectionSummaryByImage, Kind: shared.ViewKindGlobal}, `
		SELECT image_id, COUNT(id) AS num_detections, AVG(avg_confidence) AS avg_confidence
		FROM detections
		GROUP BY image_id`},
	{View{Name: DownloadSummaryByStatus, Kind: shared.ViewKindGlobal}, `
		SELECT constellation, status, COUNT(*) AS num_downloads
		FROM downloads
		GROUP BY constellation, status`},
	{View{Name: AISRecordsWithImageInfo, Kind: shared.ViewKindAIS}, `
		SELECT
			ais.id AS ais_id,
			ais.image_id,
			i.constellation,
			i.acquisition_time,
			i.file_path,
			ais.mmsi,
			ais.timestamp,
			ais.latitude,
			ais.longitude,
			ais.speed,
			ais.heading,
			ais.status,
			ais.source
		FROM ais
		JOIN images i ON ais.image_id = i.id`},
	{View{Name: AISSummaryByImage, Kind: shared.ViewKindAIS}, `
		SELECT
			i.id AS image_id,
			i.constellation,
			COUNT(a.id) AS num_ais_records,
			MIN(a.timestamp) AS earliest_ais_time,
			MAX(a.timestamp) AS latest_ais_time,
			AVG(a.speed) AS avg_speed
		FROM images i
		LEFT JOIN ais a ON i.id = a.image_id
		GROUP BY i.id, i.constellation`},
}

// GlobalViewNames returns the names of the views that do not depend on the
// registry.
func GlobalViewNames() []string {
	names := make([]string, 0, len(globalDefinitions))
	for _, d := range globalDefinitions {
		names = append(names, d.Name)
	}
	return names
}

// SafeName maps a constellation name to the identifier fragment used in its
// view names, e.g. SENTINEL-1 becomes sentinel_1.
func SafeName(constellation string) (string, error) {
	safe := strings.ReplaceAll(strings.ToLower(constellation), "-", "_")
	if !identPattern.MatchString(safe) {
		return "", fmt.Errorf("constellation %q does not map to a valid view identifier", constellation)
	}
	return safe, nil
}

// ConstellationViewNames returns the four view names generated for one
// constellation.
func ConstellationViewNames(constellation string) ([]string, error) {
	defs, err := constellationDefinitions(constellation)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names, nil
}

func constellationDefinitions(constellation string) ([]definition, error) {
	safe, err := SafeName(constellation)
	if err != nil {
		return nil, err
	}
	lit := quoteLiteral(constellation)

	return []definition{
		{View{Name: safe + "_images", Constellation: constellation, Kind: shared.ViewKindImages},
			`SELECT * FROM images WHERE constellation = ` + lit},
		{View{Name: safe + "_detections", Constellation: constellation, Kind: shared.ViewKindDetections},
			`SELECT * FROM detections WHERE constellation = ` + lit},
		{View{Name: "detection_summary_" + safe, Constellation: constellation, Kind: shared.ViewKindDetectionSummary}, `
			SELECT
				constellation,
				COUNT(*) AS num_detections,
				COUNT(DISTINCT image_id) AS num_images,
				ROUND(AVG(num_ship_detections), 2) AS avg_detections_per_image
			FROM detections
			WHERE constellation = ` + lit + `
			GROUP BY constellation`},
		{View{Name: "object_summary_" + safe, Constellation: constellation, Kind: shared.ViewKindObjectSummary}, `
			SELECT
				d.constellation,
				COUNT(o.id) AS num_objects,
				ROUND(AVG(o.length_min), 2) AS avg_length_min,
				ROUND(AVG(o.length_max), 2) AS avg_length_max,
				ROUND(AVG(o.speed_min), 2) AS avg_speed_min,
				ROUND(AVG(o.speed_max), 2) AS avg_speed_max,
				ROUND(AVG(o.distance_to_shore), 2) AS avg_distance_to_shore
			FROM objects o
			JOIN detections d ON o.image_id = d.image_id
			WHERE d.constellation = ` + lit + `
			GROUP BY d.constellation`},
	}, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Generator rebuilds views for the constellations of one registry.
type Generator struct {
	registry *registry.Registry
	log      *slog.Logger
}

func NewGenerator(reg *registry.Registry, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{registry: reg, log: log}
}

// Rebuild drops every view recorded by a previous rebuild, including those of
// constellations no longer in the registry, then recreates and records the
// full set. Views it did not create are left alone. The work runs in one
// transaction, so a failure leaves the previous views in place.
func (g *Generator) Rebuild(t managers.Transactor) ([]View, error) {
	start := time.Now()

	var defs []definition
	for _, name := range g.registry.Names() {
		cd, err := constellationDefinitions(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, cd...)
	}
	defs = append(defs, globalDefinitions...)

	seen := make(map[string]string, len(defs))
	for _, d := range defs {
		if other, ok := seen[d.Name]; ok {
			return nil, fmt.Errorf("view %s generated for both %q and %q", d.Name, other, d.Constellation)
		}
		seen[d.Name] = d.Constellation
	}

	err := t.Transaction(func(tx *sql.Tx) error {
		stale, err := generatedViews(tx)
		if err != nil {
			return err
		}
		for _, d := range defs {
			stale[d.Name] = struct{}{}
		}
		for name := range stale {
			if _, err := tx.Exec(`DROP VIEW IF EXISTS "` + name + `"`); err != nil {
				return fmt.Errorf("failed to drop view %s: %w", name, err)
			}
		}
		if _, err := tx.Exec(`DELETE FROM generated_views`); err != nil {
			return fmt.Errorf("failed to clear generated views: %w", err)
		}

		createdAt := managers.FormatTime(time.Now())
		for _, d := range defs {
			if _, err := tx.Exec(`CREATE VIEW "` + d.Name + `" AS ` + d.sql); err != nil {
				return fmt.Errorf("failed to create view %s: %w", d.Name, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO generated_views (name, constellation, kind, created_at) VALUES (?, ?, ?, ?)`,
				d.Name, d.Constellation, d.Kind, createdAt,
			); err != nil {
				return fmt.Errorf("failed to record view %s: %w", d.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]View, 0, len(defs))
	for _, d := range defs {
		out = append(out, d.View)
	}

	metrics.ViewRebuildDuration.Observe(time.Since(start).Seconds())
	metrics.ViewsManaged.Set(float64(len(out)))
	g.log.Info("views rebuilt", "views", len(out), "constellations", g.registry.Len(), "duration", time.Since(start))
	return out, nil
}

// generatedViews lists the views recorded by earlier rebuilds. Rows are fully
// read before any DROP is issued.
func generatedViews(tx *sql.Tx) (map[string]struct{}, error) {
	rows, err := tx.Query(`SELECT name FROM generated_views`)
	if err != nil {
		return nil, fmt.Errorf("failed to list generated views: %w", err)
	}
	defer rows.Close()

	found := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan view name: %w", err)
		}
		if identPattern.MatchString(name) {
			found[name] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list generated views: %w", err)
	}
	return found, nil
}
