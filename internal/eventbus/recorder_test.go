package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/agentbench/finledger/internal/domain/events"
	"github.com/agentbench/finledger/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RecordsPublishedEvents(t *testing.T) {
	bus := newTestBus(t)
	bus.StartRecording()

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))

	recorded, truncated := bus.RecordedEvents()
	require.Len(t, recorded, 1)
	assert.False(t, truncated)
	assert.Equal(t, events.NameSaleOccurred, recorded[0].EventType)
	assert.Equal(t, "B00TEST123", recorded[0].Data["asin"])
	assert.False(t, recorded[0].Timestamp.IsZero())

	// The summary must be JSON-safe
	_, err := json.Marshal(recorded)
	assert.NoError(t, err)
}

func TestRecorder_DisabledByDefault(t *testing.T) {
	bus := newTestBus(t)

	require.NoError(t, bus.Publish(context.Background(), saleEvent()))

	recorded, truncated := bus.RecordedEvents()
	assert.Empty(t, recorded)
	assert.False(t, truncated)
}

func TestRecorder_StopRecordingRetainsBuffer(t *testing.T) {
	bus := newTestBus(t)
	bus.StartRecording()
	require.NoError(t, bus.Publish(context.Background(), saleEvent()))

	bus.StopRecording()
	require.NoError(t, bus.Publish(context.Background(), saleEvent()))

	recorded, _ := bus.RecordedEvents()
	assert.Len(t, recorded, 1)
}

func TestRecorder_CapAndTruncatedFlag(t *testing.T) {
	cfg := testBusConfig()
	cfg.RecordingCap = 3
	bus := New(cfg, slog.Default())
	bus.StartRecording()

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(context.Background(), saleEvent()))
	}

	recorded, truncated := bus.RecordedEvents()
	assert.Len(t, recorded, 3, "buffer never grows past the cap")
	assert.True(t, truncated)

	// Flag stays set until explicitly cleared
	recorded, truncated = bus.RecordedEvents()
	assert.Len(t, recorded, 3)
	assert.True(t, truncated)

	bus.ClearRecorded()
	recorded, truncated = bus.RecordedEvents()
	assert.Empty(t, recorded)
	assert.False(t, truncated)
}

func TestRecorder_LogEvent(t *testing.T) {
	bus := newTestBus(t)
	bus.StartRecording()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bus.LogEvent(map[string]any{"units": 3}, "inventory.checked", ts)

	recorded, _ := bus.RecordedEvents()
	require.Len(t, recorded, 1)
	assert.Equal(t, "inventory.checked", recorded[0].EventType)
	assert.Equal(t, ts, recorded[0].Timestamp)
	assert.Equal(t, int64(3), recorded[0].Data["units"])
}

func TestRedaction_TopLevelAndNested(t *testing.T) {
	payload := map[string]any{
		"password": "hunter2",
		"Api_Key":  "abc123",
		"profile": map[string]any{
			"name":          "agent-7",
			"session_token": "tok-999",
			"attachments": []any{
				map[string]any{"Authorization": "Bearer xyz", "file": "report.pdf"},
			},
		},
	}

	data := summarize(payload)

	assert.Equal(t, RedactionMarker, data["password"])
	assert.Equal(t, RedactionMarker, data["Api_Key"])

	profile := data["profile"].(map[string]any)
	assert.Equal(t, "agent-7", profile["name"])
	assert.Equal(t, RedactionMarker, profile["session_token"])

	attachments := profile["attachments"].([]any)
	first := attachments[0].(map[string]any)
	assert.Equal(t, RedactionMarker, first["Authorization"])
	assert.Equal(t, "report.pdf", first["file"])
}

func TestRedaction_StructFields(t *testing.T) {
	type creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	data := summarize(creds{Username: "agent", Password: "hunter2"})
	assert.Equal(t, "agent", data["username"])
	assert.Equal(t, RedactionMarker, data["password"])
}

func TestSummarize_CycleProtection(t *testing.T) {
	payload := map[string]any{"name": "looper"}
	payload["self"] = payload

	data := summarize(payload)
	assert.Equal(t, "looper", data["name"])
	assert.Equal(t, "<cycle>", data["self"])
}

func TestSummarize_MoneyAndTime(t *testing.T) {
	evt := events.InventoryAdjusted{
		ASIN:      "B00TEST123",
		CostDelta: money.MustNew(-500, "USD"),
		Reason:    "shrinkage",
	}

	data := summarize(evt)
	cost := data["cost_delta"].(map[string]any)
	assert.Equal(t, int64(-500), cost["minor_units"])
	assert.Equal(t, "USD", cost["currency"])

	wrapped := summarize(map[string]any{"at": time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)})
	assert.Equal(t, "2026-01-02T03:04:05Z", wrapped["at"])
}

func TestSummarize_NonMapPayload(t *testing.T) {
	data := summarize("plain string")
	assert.Equal(t, "plain string", data["value"])
}
