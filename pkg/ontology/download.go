package ontology

import "time"

// Download is one download attempt of a product, keyed by product id.
type Download struct {
	ProductID       string                 `json:"product_id"`
	QueryID         *string                `json:"query_id,omitempty"`
	Constellation   string                 `json:"constellation"`
	SensorMode      string                 `json:"sensor_mode"`
	ProductType     string                 `json:"product_type"`
	ProcessingLevel string                 `json:"processing_level"`
	Status          string                 `json:"status"`
	DownloadTime    time.Time              `json:"download_time"`
	AcquisitionTime *time.Time             `json:"acquisition_time,omitempty"`
	PublicationTime *time.Time             `json:"publication_time,omitempty"`
	IngestionTime   *time.Time             `json:"ingestion_time,omitempty"`
	Latency         *float64               `json:"latency,omitempty"`
	Coordinates     *string                `json:"coordinates,omitempty"`
	Latitude        *float64               `json:"latitude,omitempty"`
	Longitude       *float64               `json:"longitude,omitempty"`
	Name            *string                `json:"name,omitempty"`
	Quicklook       *string                `json:"quicklook,omitempty"`
	FilePath        string                 `json:"file_path"`
	FileSizeMB      *float64               `json:"file_size_mb,omitempty"`
	Checksum        *string                `json:"checksum,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}
