package shared

// NATS subject patterns
const (
	SubjectPrefix = "catalog"

	// Ingest subjects carry records from upstream producers
	SubjectIngest           = "catalog.ingest"
	SubjectIngestAll        = "catalog.ingest.>"
	SubjectIngestImages     = "catalog.ingest.images"
	SubjectIngestDetections = "catalog.ingest.detections"
	SubjectIngestDownloads  = "catalog.ingest.downloads"
	SubjectIngestAIS        = "catalog.ingest.ais"
	SubjectIngestObjects    = "catalog.ingest.objects"
)

// Stream names
const (
	StreamIngest = "CATALOG_INGEST"
)

// Consumer names
const (
	ConsumerImageIngest     = "image-ingest"
	ConsumerDetectionIngest = "detection-ingest"
	ConsumerDownloadIngest  = "download-ingest"
	ConsumerAISIngest       = "ais-ingest"
	ConsumerObjectIngest    = "object-ingest"
)

// IngestKinds maps the path segment used by the HTTP ingest endpoint to its subject.
var IngestKinds = map[string]string{
	"images":     SubjectIngestImages,
	"detections": SubjectIngestDetections,
	"downloads":  SubjectIngestDownloads,
	"ais":        SubjectIngestAIS,
	"objects":    SubjectIngestObjects,
}

// IngestSubject returns the subject for kind and whether kind is known.
func IngestSubject(kind string) (string, bool) {
	s, ok := IngestKinds[kind]
	return s, ok
}
