package ontology

import "time"

type Image struct {
	ID              string     `json:"id"`
	Constellation   string     `json:"constellation"`
	AcquisitionTime *time.Time `json:"acquisition_time,omitempty"`
	FilePath        string     `json:"file_path"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Detection is the output of a detection model run over one image.
type Detection struct {
	ID                    string    `json:"id"`
	Constellation         string    `json:"constellation"`
	ImageID               string    `json:"image_id"`
	DetectionFile         string    `json:"detection_file"`
	Timestamp             time.Time `json:"timestamp"`
	NumShipDetections     *float64  `json:"num_ship_detections,omitempty"`
	NumDarkShipDetections *float64  `json:"num_dark_ship_detections,omitempty"`
	AvgConfidence         *float64  `json:"avg_confidence,omitempty"`
	Latitude              *float64  `json:"latitude,omitempty"`
	Longitude             *float64  `json:"longitude,omitempty"`
}
