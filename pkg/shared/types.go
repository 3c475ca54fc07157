package shared

import (
	"time"
)

// API Response types
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Health check
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

const (
	// Download status
	StatusDownloaded = "DOWNLOADED"
	StatusFailed     = "FAILED"
	StatusUnknown    = "unknown"

	// View kinds
	ViewKindImages           = "images"
	ViewKindDetections       = "detections"
	ViewKindDetectionSummary = "detection_summary"
	ViewKindObjectSummary    = "object_summary"
	ViewKindGlobal           = "global"
	ViewKindAIS              = "ais"

	// Metric entity labels
	EntityConstellation = "constellation"
	EntityQuery         = "query"
	EntityDownload      = "download"
	EntityImage         = "image"
	EntityDetection     = "detection"
	EntityAIS           = "ais"
	EntityObject        = "object"
)
