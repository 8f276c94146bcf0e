package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	commoncfg "lodgfy-booking/common/config"
	"lodgfy-booking/internal/domain"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaObserver writes events keyed by unit id, so one unit's events stay in one partition.
type KafkaObserver struct {
	writer messageWriter
}

// NewKafkaWriter caller closes the writer on shutdown.
func NewKafkaWriter(cfg *commoncfg.KafkaConfig) (*kafka.Writer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: no topic configured")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}, nil
}

func NewKafkaObserver(writer messageWriter) *KafkaObserver {
	return &KafkaObserver{writer: writer}
}

func (o *KafkaObserver) Name() string { return "kafka" }

func (o *KafkaObserver) OnReservationEvent(ctx context.Context, ev domain.ReservationEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Reservation.UnitID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
			{Key: "event_id", Value: []byte(ev.EventID)},
		},
	}
	if err := o.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}
