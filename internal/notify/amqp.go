package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/medibook/scheduling-service/internal/scheduling"
)

// AMQPSink publishes appointment lifecycle events to a topic exchange,
// routing key = event type. Delivery is best-effort: failures are logged and
// dropped, never surfaced to the scheduler.
type AMQPSink struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

func NewAMQPSink(url, exchange string, log *zap.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &AMQPSink{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		log:      log,
	}, nil
}

type eventPayload struct {
	Type          string    `json:"type"`
	AppointmentID string    `json:"appointment_id"`
	DoctorID      string    `json:"doctor_id"`
	PatientID     string    `json:"patient_id"`
	Start         time.Time `json:"start"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (s *AMQPSink) Notify(ctx context.Context, ev scheduling.Event) {
	body, err := json.Marshal(eventPayload{
		Type:          ev.Type,
		AppointmentID: ev.AppointmentID.String(),
		DoctorID:      ev.DoctorID.String(),
		PatientID:     ev.PatientID.String(),
		Start:         ev.Start,
		OccurredAt:    ev.OccurredAt,
	})
	if err != nil {
		s.log.Error("marshal notification event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	err = s.ch.PublishWithContext(ctx, s.exchange, ev.Type, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   ev.OccurredAt,
		Body:        body,
	})
	if err != nil {
		s.log.Warn("publish notification event",
			zap.String("type", ev.Type),
			zap.String("appointment_id", ev.AppointmentID.String()),
			zap.Error(err),
		)
	}
}

func (s *AMQPSink) Close() error {
	if err := s.ch.Close(); err != nil {
		_ = s.conn.Close()
		return err
	}
	return s.conn.Close()
}
