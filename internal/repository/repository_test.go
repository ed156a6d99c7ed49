package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/septivank/greenhouse-telemetry-worker/internal/config"
	"github.com/septivank/greenhouse-telemetry-worker/internal/db"
	"github.com/septivank/greenhouse-telemetry-worker/internal/repository"
)

func newMisconfiguredRepo(schema, table string) *repository.Repository {
	cfg := &config.Config{
		Telemetry: config.TelemetryConfig{Schema: schema, Table: table},
		Report:    config.ReportConfig{Timezone: "Europe/Zurich", WindowDays: 7},
	}
	// nil pool is safe here: the misconfiguration check runs before any query
	return repository.NewRepository(nil, cfg)
}

func TestAppendTelemetry_MissingSettingsFailFatally(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		table  string
	}{
		{"both missing", "", ""},
		{"schema missing", "", "telemetry_raw"},
		{"table missing", "greenhouse", ""},
	}

	row := &db.TelemetryRow{DeviceID: "d1", Humidity: 55, RecordedAt: time.Now().UTC()}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMisconfiguredRepo(tc.schema, tc.table)
			err := repo.AppendTelemetry(context.Background(), row)
			if !errors.Is(err, repository.ErrMisconfigured) {
				t.Fatalf("Expected ErrMisconfigured, got: %v", err)
			}
		})
	}
}

func TestHourlyHumidityReport_MissingSettingsFailFatally(t *testing.T) {
	repo := newMisconfiguredRepo("", "")

	_, err := repo.HourlyHumidityReport(context.Background())
	if !errors.Is(err, repository.ErrMisconfigured) {
		t.Fatalf("Expected ErrMisconfigured, got: %v", err)
	}
}
