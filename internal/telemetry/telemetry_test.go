package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/piger/ferm-probe/internal/onewire"
	"github.com/piger/ferm-probe/internal/probe"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	session = uuid.MustParse("6f1c1b0e-3a57-4c4e-9e7c-0d6b8f3a2d11")
	now     = time.Date(2018, 12, 17, 16, 43, 2, 0, time.UTC)
	target  = probe.TargetRange{Target: 68, PositiveAllowance: 2, NegativeAllowance: 2}
)

func snapshots() []probe.Snapshot {
	return []probe.Snapshot{
		{
			Identity: probe.Identity{Name: "Fermenter", Position: 1, ID: "28-0000000000a1"},
			Target:   target,
			Latest:   probe.Success(now, 68.5),
			Class:    probe.Within,
		},
		{
			Identity: probe.Identity{Name: "Room", Position: 2, ID: "28-0000000000a2"},
			Target:   target,
			Latest:   probe.Failure(now, onewire.ErrFileNotFound),
			Class:    probe.Error,
		},
	}
}

func TestNewMessage(t *testing.T) {
	snaps := snapshots()

	m := NewMessage(session, now, snaps[0])
	require.NotNil(t, m.TempF)
	assert.Equal(t, 68.5, *m.TempF)
	assert.Empty(t, m.Error)

	m = NewMessage(session, now, snaps[1])
	assert.Nil(t, m.TempF)
	assert.Equal(t, "FILE NOT FOUND", m.Error)

	payload, err := encode(session, now, snaps[1])
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, session.String(), raw["session"])
	assert.Equal(t, "ERROR", raw["class"])
	assert.Nil(t, raw["temp_f"])
	assert.Equal(t, "28-0000000000a2", raw["id"])
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool { return true }

func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mqtt.Client
	published    []published
	fail         map[string]error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, published{topic: topic, payload: payload.([]byte)})
	return &fakeToken{err: c.fail[topic]}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func TestMQTTPublisher(t *testing.T) {
	client := &fakeClient{}
	p := NewMQTTPublisher(client, "ferm-probe", session)

	require.NoError(t, p.Write(context.Background(), now, snapshots()))
	require.Len(t, client.published, 2)
	assert.Equal(t, "ferm-probe/1", client.published[0].topic)
	assert.Equal(t, "ferm-probe/2", client.published[1].topic)

	var m Message
	require.NoError(t, json.Unmarshal(client.published[0].payload, &m))
	assert.Equal(t, "Fermenter", m.Name)
	assert.Equal(t, probe.Within, m.Class)

	require.NoError(t, p.Close())
	assert.True(t, client.disconnected)
}

func TestMQTTPublisherKeepsPublishingAfterError(t *testing.T) {
	client := &fakeClient{fail: map[string]error{"ferm-probe/1": errors.New("not connected")}}
	p := NewMQTTPublisher(client, "ferm-probe", session)

	err := p.Write(context.Background(), now, snapshots())
	assert.ErrorContains(t, err, "not connected")
	assert.Len(t, client.published, 2)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaPublisher(t *testing.T) {
	w := new(mockWriter)
	p := &KafkaPublisher{w: w, session: session}

	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 2 &&
			string(msgs[0].Key) == "28-0000000000a1" &&
			string(msgs[1].Key) == "28-0000000000a2" &&
			msgs[0].Time.Equal(now)
	})).Return(nil).Once()
	w.On("Close").Return(nil).Once()

	require.NoError(t, p.Write(context.Background(), now, snapshots()))
	require.NoError(t, p.Close())
	w.AssertExpectations(t)
}

func TestKafkaPublisherError(t *testing.T) {
	w := new(mockWriter)
	p := &KafkaPublisher{w: w, session: session}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	err := p.Write(context.Background(), now, snapshots())
	assert.ErrorContains(t, err, "writing to kafka: broker down")
}
