package detect

// InferenceRequest is the payload sent to the detection service
type InferenceRequest struct {
	Image               string   `json:"image"` // Base64-encoded image
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	EnabledClasses      []string `json:"enabled_classes,omitempty"`
}

// BoundingBox is one detected object: box, class and confidence
type BoundingBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
}

// InferenceResponse is the detection service's answer for one image
type InferenceResponse struct {
	BoundingBoxes   []BoundingBox `json:"bounding_boxes"`
	InferenceTimeMs float64       `json:"inference_time_ms"`
	DetectionCount  int           `json:"detection_count"`
}
