package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaRelay_Forward(t *testing.T) {
	w := &recordingWriter{}
	relay := NewKafkaRelayWithWriter(w, zap.NewNop())

	ev := newTestEvent(uuid.New())
	entry := shared.NewOutboxEntry(ev, []byte(`{"data":"payload"}`))
	require.NoError(t, relay.Forward(context.Background(), entry))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, ev.AggregateID().String(), string(msg.Key))
	assert.Equal(t, entry.Payload, msg.Value)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, testEventType, headers["event_type"])
	assert.Equal(t, ev.EventID().String(), headers["event_id"])
	assert.Equal(t, ev.TenantID().String(), headers["tenant_id"])
}

func TestKafkaRelay_ForwardError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	relay := NewKafkaRelayWithWriter(w, zap.NewNop())

	ev := newTestEvent(uuid.New())
	err := relay.Forward(context.Background(), shared.NewOutboxEntry(ev, []byte("{}")))
	assert.EqualError(t, err, "leader not available")
}
