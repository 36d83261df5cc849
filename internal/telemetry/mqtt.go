package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/piger/ferm-probe/internal/probe"
)

const (
	mqttQoS             = 1
	mqttTimeout         = 10 * time.Second
	mqttDisconnectQuiet = 250
)

// MQTTPublisher publishes each probe to <topic>/<position>.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	session uuid.UUID
}

// DialMQTT connects to broker, e.g. "tcp://localhost:1883".
func DialMQTT(broker, clientID, topic string, session uuid.UUID) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", broker, err)
	}

	return NewMQTTPublisher(client, topic, session), nil
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client mqtt.Client, topic string, session uuid.UUID) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic, session: session}
}

func (p *MQTTPublisher) Name() string { return "mqtt" }

// Topic returns the topic of the probe at the given position.
func (p *MQTTPublisher) Topic(position int) string {
	return p.topic + "/" + strconv.Itoa(position)
}

func (p *MQTTPublisher) Write(_ context.Context, t time.Time, snaps []probe.Snapshot) error {
	var errs []error
	for _, snap := range snaps {
		payload, err := encode(p.session, t, snap)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		token := p.client.Publish(p.Topic(snap.Position), mqttQoS, false, payload)
		if !token.WaitTimeout(mqttTimeout) {
			errs = append(errs, fmt.Errorf("publishing %s: timeout", snap.ID))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("publishing %s: %w", snap.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(mqttDisconnectQuiet)
	return nil
}
