package event

import (
	"encoding/json"
	"fmt"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// eventPointer is satisfied by *T when *T implements shared.DomainEvent
type eventPointer[T any] interface {
	*T
	shared.DomainEvent
}

// EventSerializer maps outbox event types to their Go types. Only
// registered types may be written to the outbox, so everything the
// processor reads back can be decoded.
type EventSerializer struct {
	factories map[string]func() shared.DomainEvent
}

func NewEventSerializer() *EventSerializer {
	return &EventSerializer{factories: make(map[string]func() shared.DomainEvent)}
}

// Register binds eventType to T. Registration happens at wiring time,
// before the serializer is shared.
func Register[T any, P eventPointer[T]](s *EventSerializer, eventType string) {
	s.factories[eventType] = func() shared.DomainEvent { return P(new(T)) }
}

func (s *EventSerializer) IsRegistered(eventType string) bool {
	_, ok := s.factories[eventType]
	return ok
}

// Serialize encodes event as JSON, header fields inline
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if !s.IsRegistered(event.EventType()) {
		return nil, fmt.Errorf("event type %s is not registered", event.EventType())
	}
	return json.Marshal(event)
}

// Deserialize decodes data into a fresh value of the type registered for eventType
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	factory, ok := s.factories[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	event := factory()
	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return event, nil
}
