package db

import (
	"time"
)

// TelemetryRow is one accepted telemetry event in the analytical table.
// Rows are append-only and immutable; redelivered events may produce
// duplicate rows, which the report tolerates.
type TelemetryRow struct {
	DeviceID    string
	Humidity    float64
	PumpActive  bool
	LightActive bool
	RecordedAt  time.Time
}

// ReportRow is one hour bucket of the trailing report window
type ReportRow struct {
	DateHour   time.Time `json:"date_hour"`
	AvgHum     float64   `json:"avg_hum"`
	MinHum     float64   `json:"min_hum"`
	MaxHum     float64   `json:"max_hum"`
	DataPoints int64     `json:"data_points"`
}
