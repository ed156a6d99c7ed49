package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/septivank/greenhouse-telemetry-worker/internal/db"
	"github.com/septivank/greenhouse-telemetry-worker/internal/mq"
	"github.com/septivank/greenhouse-telemetry-worker/internal/repository"
	"github.com/septivank/greenhouse-telemetry-worker/internal/service"
	"github.com/septivank/greenhouse-telemetry-worker/internal/state"
	"github.com/septivank/greenhouse-telemetry-worker/internal/validator"
	"go.uber.org/zap"
)

type fakeStateStore struct {
	records map[string]state.Record
	upserts int
	err     error
}

func (f *fakeStateStore) Upsert(_ context.Context, deviceID string, rec state.Record) error {
	if f.err != nil {
		return f.err
	}
	if f.records == nil {
		f.records = make(map[string]state.Record)
	}
	f.records[deviceID] = rec
	f.upserts++
	return nil
}

type fakeRawStore struct {
	rows []db.TelemetryRow
	err  error
}

func (f *fakeRawStore) AppendTelemetry(_ context.Context, row *db.TelemetryRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, *row)
	return nil
}

func newTestProcessor(states *fakeStateStore, raw *fakeRawStore) *service.Processor {
	return service.NewProcessor(states, raw, validator.NewValidator(0, 100), zap.NewNop())
}

func delivery(deviceID, body string, receivedAt time.Time) mq.Delivery {
	return mq.Delivery{
		DeviceID:   deviceID,
		Body:       []byte(body),
		ReceivedAt: receivedAt,
	}
}

func TestHandleDelivery_AcceptedWritesBothStores(t *testing.T) {
	states := &fakeStateStore{}
	raw := &fakeRawStore{}
	p := newTestProcessor(states, raw)

	receivedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	d := delivery("d1", `{"humidity":55,"pump_active":true,"light_active":false}`, receivedAt)

	if err := p.HandleDelivery(context.Background(), d); err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}

	if states.upserts != 1 {
		t.Fatalf("Expected exactly one upsert, got %d", states.upserts)
	}
	rec := states.records["d1"]
	if rec.Humidity != 55 || !rec.PumpActive || rec.LightActive {
		t.Errorf("Unexpected state record: %+v", rec)
	}
	if !rec.LastTimestamp.Equal(receivedAt) {
		t.Errorf("Expected lastTimestamp %v, got %v", receivedAt, rec.LastTimestamp)
	}

	if len(raw.rows) != 1 {
		t.Fatalf("Expected exactly one raw row, got %d", len(raw.rows))
	}
	row := raw.rows[0]
	if row.DeviceID != "d1" || row.Humidity != 55 || !row.PumpActive || row.LightActive {
		t.Errorf("Unexpected raw row: %+v", row)
	}
	if !row.RecordedAt.Equal(receivedAt) {
		t.Errorf("Expected recordedAt %v, got %v", receivedAt, row.RecordedAt)
	}
}

func TestHandleDelivery_OutOfRangeDropsSilently(t *testing.T) {
	states := &fakeStateStore{}
	raw := &fakeRawStore{}
	p := newTestProcessor(states, raw)

	for _, body := range []string{
		`{"humidity":150,"pump_active":true,"light_active":false}`,
		`{"humidity":-1,"pump_active":false,"light_active":true}`,
	} {
		d := delivery("d1", body, time.Now().UTC())
		if err := p.HandleDelivery(context.Background(), d); err != nil {
			t.Fatalf("Expected rejected event to report success, got: %v", err)
		}
	}

	if states.upserts != 0 {
		t.Errorf("Expected no upserts for rejected events, got %d", states.upserts)
	}
	if len(raw.rows) != 0 {
		t.Errorf("Expected no raw rows for rejected events, got %d", len(raw.rows))
	}
}

func TestHandleDelivery_BoundaryValuesAccepted(t *testing.T) {
	states := &fakeStateStore{}
	raw := &fakeRawStore{}
	p := newTestProcessor(states, raw)

	for _, body := range []string{
		`{"humidity":0,"pump_active":false,"light_active":false}`,
		`{"humidity":100,"pump_active":false,"light_active":false}`,
	} {
		d := delivery("d1", body, time.Now().UTC())
		if err := p.HandleDelivery(context.Background(), d); err != nil {
			t.Fatalf("Expected boundary value to be accepted, got: %v", err)
		}
	}

	if states.upserts != 2 || len(raw.rows) != 2 {
		t.Errorf("Expected 2 upserts and 2 rows, got %d and %d", states.upserts, len(raw.rows))
	}
}

func TestHandleDelivery_MissingDeviceIDIsUnprocessable(t *testing.T) {
	states := &fakeStateStore{}
	raw := &fakeRawStore{}
	p := newTestProcessor(states, raw)

	d := delivery("", `{"humidity":55,"pump_active":true,"light_active":false}`, time.Now().UTC())
	err := p.HandleDelivery(context.Background(), d)

	if !errors.Is(err, mq.ErrUnprocessable) {
		t.Fatalf("Expected ErrUnprocessable, got: %v", err)
	}
	if states.upserts != 0 || len(raw.rows) != 0 {
		t.Error("Expected no writes for a delivery without device id")
	}
}

func TestHandleDelivery_MalformedPayloadIsUnprocessable(t *testing.T) {
	p := newTestProcessor(&fakeStateStore{}, &fakeRawStore{})

	for _, body := range []string{
		`not json`,
		`{"pump_active":true,"light_active":false}`, // humidity missing
	} {
		d := delivery("d1", body, time.Now().UTC())
		if err := p.HandleDelivery(context.Background(), d); !errors.Is(err, mq.ErrUnprocessable) {
			t.Errorf("Expected ErrUnprocessable for body %q, got: %v", body, err)
		}
	}
}

func TestHandleDelivery_MissingActuatorFieldsDoNotDrop(t *testing.T) {
	states := &fakeStateStore{}
	raw := &fakeRawStore{}
	p := newTestProcessor(states, raw)

	d := delivery("d1", `{"humidity":42}`, time.Now().UTC())
	if err := p.HandleDelivery(context.Background(), d); err != nil {
		t.Fatalf("Expected success with absent actuator fields, got: %v", err)
	}

	rec := states.records["d1"]
	if rec.PumpActive || rec.LightActive {
		t.Errorf("Expected absent actuator fields to default to false, got %+v", rec)
	}
}

func TestHandleDelivery_StoreFailurePropagatesForRedelivery(t *testing.T) {
	storeErr := errors.New("connection refused")

	cases := []struct {
		name   string
		states *fakeStateStore
		raw    *fakeRawStore
	}{
		{"state store down", &fakeStateStore{err: storeErr}, &fakeRawStore{}},
		{"raw store down", &fakeStateStore{}, &fakeRawStore{err: storeErr}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestProcessor(tc.states, tc.raw)
			d := delivery("d1", `{"humidity":55,"pump_active":true,"light_active":false}`, time.Now().UTC())

			err := p.HandleDelivery(context.Background(), d)
			if err == nil {
				t.Fatal("Expected error so the transport redelivers")
			}
			if errors.Is(err, mq.ErrUnprocessable) {
				t.Fatalf("Transient store failure must stay retryable, got: %v", err)
			}
		})
	}
}

func TestHandleDelivery_MisconfiguredStoreIsUnprocessable(t *testing.T) {
	raw := &fakeRawStore{err: fmt.Errorf("append: %w", repository.ErrMisconfigured)}
	p := newTestProcessor(&fakeStateStore{}, raw)

	d := delivery("d1", `{"humidity":55,"pump_active":true,"light_active":false}`, time.Now().UTC())
	if err := p.HandleDelivery(context.Background(), d); !errors.Is(err, mq.ErrUnprocessable) {
		t.Fatalf("Expected misconfiguration to be unprocessable, got: %v", err)
	}
}

func TestHandleDelivery_RedeliveryConverges(t *testing.T) {
	states := &fakeStateStore{}
	raw := &fakeRawStore{}
	p := newTestProcessor(states, raw)

	receivedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	d := delivery("d1", `{"humidity":55,"pump_active":true,"light_active":false}`, receivedAt)

	if err := p.HandleDelivery(context.Background(), d); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	first := states.records["d1"]

	d.Redelivered = true
	if err := p.HandleDelivery(context.Background(), d); err != nil {
		t.Fatalf("redelivery: %v", err)
	}

	// Last-writer-wins: the record is identical after either delivery
	if states.records["d1"] != first {
		t.Errorf("Expected identical state record after redelivery, got %+v vs %+v", states.records["d1"], first)
	}
	// The raw table gains a duplicate row; documented tradeoff, not a bug
	if len(raw.rows) != 2 {
		t.Errorf("Expected 2 raw rows after redelivery, got %d", len(raw.rows))
	}
}
