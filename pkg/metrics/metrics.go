package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "satcatalog_build_info",
			Help: "Build information of the satellite catalog",
		},
		[]string{"version", "commit", "date"},
	)

	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satcatalog_records_written_total",
			Help: "Rows committed to the catalog, by entity",
		},
		[]string{"entity"},
	)

	ViewRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "satcatalog_view_rebuild_duration_seconds",
			Help:    "Time spent dropping and recreating derived views",
			Buckets: prometheus.DefBuckets,
		},
	)

	ViewsManaged = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "satcatalog_views_managed",
			Help: "Number of derived views created by the last rebuild",
		},
	)

	IngestMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satcatalog_ingest_messages_total",
			Help: "Ingest messages processed by workers, by worker and outcome",
		},
		[]string{"worker", "outcome"},
	)
)
