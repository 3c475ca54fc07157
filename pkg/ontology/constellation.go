package ontology

import "time"

// Constellation is the stored copy of a registry entry.
type Constellation struct {
	Name                      string    `json:"name"`
	Description               string    `json:"description"`
	AvailableProductTypes     []string  `json:"available_product_types"`
	AvailableProcessingLevels []string  `json:"available_processing_levels"`
	AvailableSensorModes      []string  `json:"available_sensor_modes"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}
