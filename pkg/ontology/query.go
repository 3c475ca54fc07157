package ontology

import "time"

// QueryHistory records one product search request. Rows are immutable.
type QueryHistory struct {
	ID            string                 `json:"id"`
	Timestamp     time.Time              `json:"timestamp"`
	Constellation string                 `json:"constellation"`
	GeometryWKT   string                 `json:"geometry_wkt"`
	StartDate     *time.Time             `json:"start_date,omitempty"`
	EndDate       *time.Time             `json:"end_date,omitempty"`
	Parameters    map[string]interface{} `json:"parameters,omitempty"`
}
