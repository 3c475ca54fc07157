package ontology

// AISBatch is the ingest payload carrying AIS records for one image.
type AISBatch struct {
	ImageID string      `json:"image_id"`
	Records []AISRecord `json:"records"`
}

// ObjectBatch is the ingest payload carrying detected objects for one image.
type ObjectBatch struct {
	ImageID string   `json:"image_id"`
	Objects []Object `json:"objects"`
}
