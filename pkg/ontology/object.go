package ontology

// Object holds per-object attributes produced by a detection model.
type Object struct {
	ID              string    `json:"id"`
	ImageID         string    `json:"image_id"`
	Class           *string   `json:"obj_class,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	DistanceToShore *float64  `json:"distance_to_shore,omitempty"`
	ClassIndex      *string   `json:"class_index,omitempty"`
	Probability     *float64  `json:"probability,omitempty"`
	Probabilities   []float64 `json:"probabilities,omitempty"`
	LengthMin       *float64  `json:"length_min,omitempty"`
	LengthMax       *float64  `json:"length_max,omitempty"`
	BreadthMin      *float64  `json:"breadth_min,omitempty"`
	BreadthMax      *float64  `json:"breadth_max,omitempty"`
	OrientationMin  *float64  `json:"orientation_min,omitempty"`
	OrientationMax  *float64  `json:"orientation_max,omitempty"`
	SpeedMin        *float64  `json:"speed_min,omitempty"`
	SpeedMax        *float64  `json:"speed_max,omitempty"`
	BBoxWidth       *float64  `json:"bbox_width,omitempty"`
	BBoxHeight      *float64  `json:"bbox_height,omitempty"`
	BBoxX           *float64  `json:"bbox_x,omitempty"`
	BBoxY           *float64  `json:"bbox_y,omitempty"`
	EncodedImage    *string   `json:"encoded_image,omitempty"`
}
