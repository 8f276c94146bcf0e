package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	commonredis "lodgfy-booking/common/redis"
	"lodgfy-booking/internal/calendar"
	"lodgfy-booking/internal/domain"

	"go.uber.org/zap"
)

// LogObserver writes one structured line per event.
type LogObserver struct {
	logger *zap.Logger
}

func NewLogObserver(logger *zap.Logger) *LogObserver { return &LogObserver{logger: logger} }

func (o *LogObserver) Name() string { return "log" }

func (o *LogObserver) OnReservationEvent(_ context.Context, ev domain.ReservationEvent) error {
	o.logger.Info("Reservation event",
		zap.String("event_id", ev.EventID),
		zap.String("kind", string(ev.Kind)),
		zap.String("reservation_id", ev.Reservation.ReservationID),
		zap.String("unit_id", ev.Reservation.UnitID),
		zap.String("guest_id", ev.Reservation.GuestID),
		zap.String("check_in", calendar.Format(ev.Reservation.CheckIn)),
		zap.String("check_out", calendar.Format(ev.Reservation.CheckOut)),
		zap.String("status", string(ev.Reservation.Status)),
		zap.String("previous_status", string(ev.PreviousStatus)),
	)
	return nil
}

// AuditObserver appends events to the reservation_events table.
type AuditObserver struct {
	db *sql.DB
}

func NewAuditObserver(db *sql.DB) *AuditObserver { return &AuditObserver{db: db} }

func (o *AuditObserver) Name() string { return "audit" }

func (o *AuditObserver) OnReservationEvent(ctx context.Context, ev domain.ReservationEvent) error {
	payload, err := json.Marshal(ev.Reservation)
	if err != nil {
		return fmt.Errorf("failed to marshal reservation: %w", err)
	}
	var previous sql.NullString
	if ev.PreviousStatus != "" {
		previous = sql.NullString{String: string(ev.PreviousStatus), Valid: true}
	}
	_, err = o.db.ExecContext(ctx, `
		INSERT INTO reservation_events (
			event_id, reservation_id, unit_id, kind, previous_status, payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`,
		ev.EventID,
		ev.Reservation.ReservationID,
		ev.Reservation.UnitID,
		string(ev.Kind),
		previous,
		payload,
		ev.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation event: %w", err)
	}
	return nil
}

// RedisStreamObserver XADDs events to a capped stream.
type RedisStreamObserver struct {
	client commonredis.StreamAdder
	stream string
	maxLen int64
}

func NewRedisStreamObserver(client commonredis.StreamAdder, stream string, maxLen int64) *RedisStreamObserver {
	return &RedisStreamObserver{client: client, stream: stream, maxLen: maxLen}
}

func (o *RedisStreamObserver) Name() string { return "redis" }

func (o *RedisStreamObserver) OnReservationEvent(ctx context.Context, ev domain.ReservationEvent) error {
	_, err := commonredis.PublishJSONToStream(ctx, o.client, o.stream, ev, o.maxLen)
	return err
}

// mqttPublisher is satisfied by *mqtt.Client from common/mqtt.
type mqttPublisher interface {
	Publish(topic string, retained bool, payload []byte) error
}

// MQTTObserver publishes to {prefix}/reservations/{unit_id}/{kind}.
type MQTTObserver struct {
	client mqttPublisher
	prefix string
}

func NewMQTTObserver(client mqttPublisher, prefix string) *MQTTObserver {
	return &MQTTObserver{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

func (o *MQTTObserver) Name() string { return "mqtt" }

func (o *MQTTObserver) Topic(ev domain.ReservationEvent) string {
	topic := fmt.Sprintf("reservations/%s/%s", ev.Reservation.UnitID, strings.ToLower(string(ev.Kind)))
	if o.prefix == "" {
		return topic
	}
	return o.prefix + "/" + topic
}

func (o *MQTTObserver) OnReservationEvent(_ context.Context, ev domain.ReservationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return o.client.Publish(o.Topic(ev), false, payload)
}
