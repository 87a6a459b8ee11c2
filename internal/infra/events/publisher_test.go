package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/analytics/internal/infra/logger"
	"github.com/fixora/analytics/internal/ports"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newKafkaPublisher(w, time.Second, logger.NewNopLogger())

	event := ports.NewEvent(ports.EventTypeDashboardRefreshed, "dashboard", "current",
		map[string]interface{}{"sequence": 3}, 3)
	require.NoError(t, p.Publish(context.Background(), *event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "current", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, ports.EventTypeDashboardRefreshed, string(msg.Headers[0].Value))

	var decoded ports.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, 3, decoded.Version)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker unreachable")}
	p := newKafkaPublisher(w, 0, logger.NewNopLogger())

	err := p.Publish(context.Background(), ports.Event{Type: ports.EventTypeDashboardRefreshed})
	assert.ErrorContains(t, err, "broker unreachable")
}

func TestNewPublisher_DisabledIsNoop(t *testing.T) {
	p := NewPublisher(KafkaConfig{Enabled: false}, logger.NewNopLogger())
	assert.IsType(t, NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), ports.Event{}))
	assert.NoError(t, p.Close())
}
