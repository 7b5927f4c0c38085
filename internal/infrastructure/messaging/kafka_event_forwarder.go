package messaging

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaEventForwarder copies committed ledger events to a topic so other
// systems can follow the ledger. It subscribes to every event type.
type KafkaEventForwarder struct {
	writer     MessageWriter
	serializer *event.Serializer
	logger     *zap.Logger
}

// NewKafkaEventForwarder creates a new KafkaEventForwarder
func NewKafkaEventForwarder(writer MessageWriter, serializer *event.Serializer, logger *zap.Logger) *KafkaEventForwarder {
	if serializer == nil {
		serializer = event.NewLedgerSerializer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaEventForwarder{
		writer:     writer,
		serializer: serializer,
		logger:     logger,
	}
}

// EventTypes is empty: every event is forwarded
func (f *KafkaEventForwarder) EventTypes() []string {
	return nil
}

// Handle publishes the event keyed by its aggregate
func (f *KafkaEventForwarder) Handle(ctx context.Context, e shared.DomainEvent) error {
	payload, err := f.serializer.Serialize(e)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(e.AggregateID().String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.EventType())},
			{Key: "event-id", Value: []byte(e.EventID().String())},
			{Key: "aggregate-type", Value: []byte(e.AggregateType())},
		},
		Time: e.OccurredAt(),
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("forward %s %s: %w", e.EventType(), e.EventID(), err)
	}
	return nil
}

var _ shared.EventHandler = (*KafkaEventForwarder)(nil)
