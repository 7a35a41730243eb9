package handler

import (
	"log/slog"

	"github.com/agentbench/finledger/internal/eventbus"
	"github.com/gin-gonic/gin"
)

// BusHandler handles HTTP requests for event bus introspection
type BusHandler struct {
	bus    *eventbus.Bus
	logger *slog.Logger
}

// NewBusHandler creates a new bus handler
func NewBusHandler(logger *slog.Logger, bus *eventbus.Bus) *BusHandler {
	return &BusHandler{
		bus:    bus,
		logger: logger,
	}
}

// GetStats returns event bus counters
func (h *BusHandler) GetStats(c *gin.Context) {
	RespondOK(c, h.bus.Stats())
}

// GetRecordedEvents returns the sanitized recording buffer
func (h *BusHandler) GetRecordedEvents(c *gin.Context) {
	events, truncated := h.bus.RecordedEvents()
	RespondOK(c, gin.H{
		"events":    events,
		"count":     len(events),
		"truncated": truncated,
	})
}

// StartRecording enables event recording
func (h *BusHandler) StartRecording(c *gin.Context) {
	h.bus.StartRecording()
	h.logger.Info("event recording started")
	RespondOK(c, gin.H{"recording": true})
}

// StopRecording disables event recording, retaining the buffer
func (h *BusHandler) StopRecording(c *gin.Context) {
	h.bus.StopRecording()
	h.logger.Info("event recording stopped")
	RespondOK(c, gin.H{"recording": false})
}

// ClearRecorded empties the recording buffer and resets the truncated flag
func (h *BusHandler) ClearRecorded(c *gin.Context) {
	h.bus.ClearRecorded()
	RespondOK(c, gin.H{"cleared": true})
}
