package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appinventory "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Header keys set on every alert message
const (
	HeaderSeverity  = "severity"
	HeaderSKU       = "sku"
	HeaderEventType = "event-type"
)

// MessageWriter is the subset of *kafka.Writer the publishers need
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter builds a kafka writer for the configured brokers and topic.
// Messages are balanced by key so all alerts of one variant share a partition.
func NewWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireAll,
	}
}

// KafkaAlertNotifier publishes stock alerts as JSON messages keyed by variant ID
type KafkaAlertNotifier struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaAlertNotifier creates a new KafkaAlertNotifier
func NewKafkaAlertNotifier(writer MessageWriter, logger *zap.Logger) *KafkaAlertNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaAlertNotifier{
		writer: writer,
		logger: logger,
	}
}

// Notify writes one alert message
func (n *KafkaAlertNotifier) Notify(ctx context.Context, alert inventory.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(alert.VariantID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte("StockAlert")},
			{Key: HeaderSeverity, Value: []byte(alert.Severity)},
			{Key: HeaderSKU, Value: []byte(alert.SKU)},
		},
		Time: alert.RaisedAt,
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert for %s: %w", alert.SKU, err)
	}

	n.logger.Debug("Stock alert published",
		zap.String("sku", alert.SKU),
		zap.String("severity", string(alert.Severity)),
	)
	return nil
}

// Close flushes and closes the writer
func (n *KafkaAlertNotifier) Close() error {
	return n.writer.Close()
}

var _ appinventory.StockAlertNotifier = (*KafkaAlertNotifier)(nil)
