package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/piger/ferm-probe/internal/probe"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per probe, keyed by the probe bus address so that the
// readings of a probe stay in the same partition.
type KafkaPublisher struct {
	w       messageWriter
	session uuid.UUID
}

func NewKafkaPublisher(brokers []string, topic string, session uuid.UUID) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &KafkaPublisher{w: w, session: session}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Write(ctx context.Context, t time.Time, snaps []probe.Snapshot) error {
	msgs := make([]kafka.Message, 0, len(snaps))
	for _, snap := range snaps {
		payload, err := encode(p.session, t, snap)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(snap.ID),
			Value: payload,
			Time:  t,
		})
	}

	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("writing to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}
