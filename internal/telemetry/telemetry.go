// Package telemetry publishes the readings of every poll cycle to a message broker, MQTT or
// Kafka, as one JSON message per probe.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/piger/ferm-probe/internal/probe"
)

// Message is the payload published for a probe.
type Message struct {
	Session     uuid.UUID         `json:"session"`
	Timestamp   time.Time         `json:"timestamp"`
	Name        string            `json:"name"`
	Position    int               `json:"position"`
	ID          string            `json:"id"`
	TempF       *float64          `json:"temp_f"`
	Class       probe.Class       `json:"class"`
	Target      probe.TargetRange `json:"target"`
	Percentages probe.Percentages `json:"percent_spent"`
	Error       string            `json:"error,omitempty"`
}

// NewMessage returns the message of a probe; the temperature is null for a failed reading.
func NewMessage(session uuid.UUID, t time.Time, snap probe.Snapshot) Message {
	m := Message{
		Session:     session,
		Timestamp:   t,
		Name:        snap.Name,
		Position:    snap.Position,
		ID:          snap.ID,
		Class:       snap.Class,
		Target:      snap.Target,
		Percentages: snap.Percentages,
	}

	if snap.Latest.OK() {
		v := snap.Latest.Fahrenheit
		m.TempF = &v
	} else {
		m.Error = probe.ErrorLabel(snap.Latest.Err)
	}

	return m
}

func encode(session uuid.UUID, t time.Time, snap probe.Snapshot) ([]byte, error) {
	payload, err := json.Marshal(NewMessage(session, t, snap))
	if err != nil {
		return nil, fmt.Errorf("encoding message for %s: %w", snap.ID, err)
	}
	return payload, nil
}
