package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// Serializer converts domain events to JSON and back. Decoding needs the
// concrete type, so every event type must be registered first.
type Serializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewSerializer creates an empty serializer
func NewSerializer() *Serializer {
	return &Serializer{types: make(map[string]reflect.Type)}
}

// NewLedgerSerializer creates a serializer that knows every ledger event
func NewLedgerSerializer() *Serializer {
	s := NewSerializer()
	s.Register(inventory.EventTypeStockMovementRecorded, &inventory.StockMovementRecordedEvent{})
	s.Register(inventory.EventTypeStockShortfall, &inventory.StockShortfallEvent{})
	s.Register(inventory.EventTypeOrderLedgerReversed, &inventory.OrderLedgerReversedEvent{})
	s.Register(inventory.EventTypeCostMethodChanged, &inventory.CostMethodChangedEvent{})
	return s
}

// Register binds eventType to the concrete type of sample
func (s *Serializer) Register(eventType string, sample shared.DomainEvent) {
	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.mu.Lock()
	s.types[eventType] = t
	s.mu.Unlock()
}

// Serialize encodes an event
func (s *Serializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes data into the type registered for eventType
func (s *Serializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("registered type %s is not a domain event", t)
	}
	return event, nil
}

// IsRegistered reports whether eventType can be decoded
func (s *Serializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.types[eventType]
	return ok
}
