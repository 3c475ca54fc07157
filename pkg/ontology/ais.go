package ontology

import "time"

// AISRecord is one vessel position report attached to an image. Every field
// besides ID and ImageID is optional.
type AISRecord struct {
	ID        string     `json:"id"`
	ImageID   string     `json:"image_id"`
	MMSI      *string    `json:"mmsi,omitempty"`
	IMO       *string    `json:"imo,omitempty"`
	Name      *string    `json:"name,omitempty"`
	Type      *string    `json:"type,omitempty"`
	Length    *string    `json:"length,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
	Speed     *float64   `json:"speed,omitempty"`
	Heading   *float64   `json:"heading,omitempty"`
	Status    *string    `json:"status,omitempty"`
	Source    *string    `json:"source,omitempty"`
}
