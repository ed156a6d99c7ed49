package state

import (
	"encoding/json"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	if got := Key("d1"); got != "devices:d1" {
		t.Errorf("Expected devices:d1, got %s", got)
	}
}

func TestRecordFieldNames(t *testing.T) {
	rec := Record{
		Humidity:      55,
		PumpActive:    true,
		LightActive:   false,
		LastTimestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// External dashboards read these documents; field names are a contract
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, field := range []string{"humidity", "pumpActive", "lightActive", "lastTimestamp"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("expected field %q in state document, got %s", field, doc)
		}
	}
	if len(fields) != 4 {
		t.Errorf("expected exactly 4 fields, got %d: %s", len(fields), doc)
	}
}
