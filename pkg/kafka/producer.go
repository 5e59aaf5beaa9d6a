package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	EventRunStarted   = "run.started"
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// Config holds Kafka configuration
type Config struct {
	Brokers  []string
	RunTopic string
}

// ParseConfig parses a comma-separated broker string
func ParseConfig(brokers string, runTopic string) Config {
	var brokerList []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokerList = append(brokerList, broker)
		}
	}

	return Config{
		Brokers:  brokerList,
		RunTopic: runTopic,
	}
}

// RunEventMessage is a lifecycle event for one plan sync run.
type RunEventMessage struct {
	Type         string    `json:"type"`
	RunID        string    `json:"run_id"`
	Group        string    `json:"group"`
	ZIPs         int       `json:"zips,omitempty"`
	ResolvedZIPs int       `json:"resolved_zips,omitempty"`
	Utilities    int       `json:"utilities,omitempty"`
	Offers       int       `json:"offers,omitempty"`
	DurationMs   int64     `json:"duration_ms,omitempty"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes run events to Kafka
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg Config, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.RunTopic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.RunTopic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishRunEvent writes evt keyed by group, so events for a group stay
// ordered on one partition.
func (p *Producer) PublishRunEvent(ctx context.Context, evt *RunEventMessage) error {
	ctx, span := tracing.StartSpan(ctx, "Kafka.PublishRunEvent")
	defer span.End()

	msg, err := buildMessage(ctx, evt)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.String("run_id", evt.RunID),
		attribute.String("type", evt.Type),
	)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish run event to Kafka topic %s", p.topic)
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"type":   evt.Type,
		"run_id": evt.RunID,
		"topic":  p.topic,
	}).Debug("Published run event")

	return nil
}

func buildMessage(ctx context.Context, evt *RunEventMessage) (kafka.Message, error) {
	if evt == nil {
		return kafka.Message{}, fmt.Errorf("run event is nil")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal run event: %w", err)
	}

	headers := []kafka.Header{
		{Key: "type", Value: []byte(evt.Type)},
		{Key: "run_id", Value: []byte(evt.RunID)},
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}

	return kafka.Message{
		Key:     []byte(evt.Group),
		Value:   data,
		Headers: headers,
	}, nil
}
