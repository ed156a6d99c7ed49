package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/septivank/greenhouse-telemetry-worker/internal/db"
	"github.com/septivank/greenhouse-telemetry-worker/internal/logging"
	"github.com/septivank/greenhouse-telemetry-worker/internal/mq"
	"github.com/septivank/greenhouse-telemetry-worker/internal/repository"
	"github.com/septivank/greenhouse-telemetry-worker/internal/state"
	"github.com/septivank/greenhouse-telemetry-worker/internal/validator"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TelemetryPayload is the JSON body devices publish to the ingest topic.
// Humidity is required; absent actuator fields default to false and do not
// cause a drop.
type TelemetryPayload struct {
	Humidity    *float64 `json:"humidity"`
	PumpActive  bool     `json:"pump_active"`
	LightActive bool     `json:"light_active"`
}

// CurrentStateStore maintains the last known state per device
type CurrentStateStore interface {
	Upsert(ctx context.Context, deviceID string, rec state.Record) error
}

// RawEventStore appends accepted events for historical analytics
type RawEventStore interface {
	AppendTelemetry(ctx context.Context, row *db.TelemetryRow) error
}

// Processor handles telemetry delivery processing logic
type Processor struct {
	states    CurrentStateStore
	raw       RawEventStore
	validator *validator.Validator
	logger    *zap.Logger
}

// NewProcessor creates a new processor
func NewProcessor(
	states CurrentStateStore,
	raw RawEventStore,
	v *validator.Validator,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		states:    states,
		raw:       raw,
		validator: v,
		logger:    logger,
	}
}

// HandleDelivery processes one telemetry delivery. An accepted event is
// written to both stores concurrently; either both writes land or the
// delivery fails and the transport redelivers it. Redelivery after a
// partial failure can duplicate a raw row; the state upsert converges
// regardless, so duplicates are tolerated rather than deduplicated.
func (p *Processor) HandleDelivery(ctx context.Context, d mq.Delivery) error {
	reqLogger := logging.WithDeliveryID(p.logger, uuid.New().String())

	if d.DeviceID == "" {
		return fmt.Errorf("%w: missing deviceId header", mq.ErrUnprocessable)
	}

	var payload TelemetryPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		return fmt.Errorf("%w: failed to decode payload: %v", mq.ErrUnprocessable, err)
	}
	if payload.Humidity == nil {
		return fmt.Errorf("%w: humidity is required", mq.ErrUnprocessable)
	}
	humidity := *payload.Humidity

	if result := p.validator.ValidateHumidity(humidity); !result.Accepted {
		// Silent drop: the delivery is acknowledged and no store is touched
		reqLogger.Info("telemetry rejected, dropping event",
			zap.String("device_id", d.DeviceID),
			zap.Float64("humidity", humidity),
			zap.String("reason", result.Reason),
		)
		return nil
	}

	record := state.Record{
		Humidity:      humidity,
		PumpActive:    payload.PumpActive,
		LightActive:   payload.LightActive,
		LastTimestamp: d.ReceivedAt,
	}
	row := &db.TelemetryRow{
		DeviceID:    d.DeviceID,
		Humidity:    humidity,
		PumpActive:  payload.PumpActive,
		LightActive: payload.LightActive,
		RecordedAt:  d.ReceivedAt,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := p.states.Upsert(gctx, d.DeviceID, record); err != nil {
			return fmt.Errorf("failed to upsert current state: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := p.raw.AppendTelemetry(gctx, row); err != nil {
			return fmt.Errorf("failed to append raw event: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, repository.ErrMisconfigured) {
			return fmt.Errorf("%w: %v", mq.ErrUnprocessable, err)
		}
		reqLogger.Error("failed to persist telemetry",
			zap.Error(err),
			zap.String("device_id", d.DeviceID),
		)
		return err
	}

	reqLogger.Info("telemetry processed successfully",
		zap.String("device_id", d.DeviceID),
		zap.Float64("humidity", humidity),
		zap.Bool("pump_active", payload.PumpActive),
		zap.Bool("light_active", payload.LightActive),
	)

	return nil
}
