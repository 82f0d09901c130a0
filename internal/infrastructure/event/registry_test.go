package event

import (
	"context"
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

// recordingHandler captures every event it is handed
type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register_SpecificTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newRecordingHandler("stock.received", "stock.issued")

	registry.Register(handler, "stock.received", "stock.issued")

	handlers := registry.GetHandlers("stock.received")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("stock.issued")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("stock.adjusted")
	assert.Len(t, handlers, 0)
}

func TestHandlerRegistry_Register_Wildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newRecordingHandler()

	registry.Register(handler)

	handlers := registry.GetHandlers("stock.received")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])

	handlers = registry.GetHandlers("stock.reservation_expired")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler, handlers[0])
}

func TestHandlerRegistry_Register_MixedTypes(t *testing.T) {
	registry := NewHandlerRegistry()
	postingHandler := newRecordingHandler("stock.movement_appended")
	auditTap := newRecordingHandler()

	registry.Register(postingHandler, "stock.movement_appended")
	registry.Register(auditTap)

	handlers := registry.GetHandlers("stock.movement_appended")
	assert.Len(t, handlers, 2)

	handlers = registry.GetHandlers("stock.received")
	assert.Len(t, handlers, 1)
	assert.Equal(t, auditTap, handlers[0])
}

func TestHandlerRegistry_Unregister_SpecificHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	handler1 := newRecordingHandler("stock.received")
	handler2 := newRecordingHandler("stock.received")

	registry.Register(handler1, "stock.received")
	registry.Register(handler2, "stock.received")

	handlers := registry.GetHandlers("stock.received")
	assert.Len(t, handlers, 2)

	registry.Unregister(handler1)

	handlers = registry.GetHandlers("stock.received")
	assert.Len(t, handlers, 1)
	assert.Equal(t, handler2, handlers[0])
}

func TestHandlerRegistry_Unregister_WildcardHandler(t *testing.T) {
	registry := NewHandlerRegistry()
	auditTap := newRecordingHandler()

	registry.Register(auditTap)

	handlers := registry.GetHandlers("stock.received")
	assert.Len(t, handlers, 1)

	registry.Unregister(auditTap)

	handlers = registry.GetHandlers("stock.received")
	assert.Len(t, handlers, 0)
}
