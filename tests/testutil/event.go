package testutil

import (
	"github.com/google/uuid"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// StubEvent is a domain event no production handler subscribes to
type StubEvent struct {
	shared.EventHeader
}

func NewTestEvent(eventType string, tenantID uuid.UUID) *StubEvent {
	return &StubEvent{EventHeader: shared.NewEventHeader(eventType, "Stub", uuid.New(), tenantID)}
}
