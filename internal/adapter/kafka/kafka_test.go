package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/crime-map-service/internal/config"
	"github.com/couchcryptid/crime-map-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessage(t *testing.T) {
	event := domain.OutputEvent{
		Key:   []byte("2023-01"),
		Value: []byte(`{"month":"2023-01"}`),
		Headers: map[string]string{
			"view_id":     "view-1",
			"trigger":     "initial",
			"rendered_at": "2024-03-01T12:00:00Z",
		},
	}

	msg := toMessage(event)

	assert.Equal(t, []byte("2023-01"), msg.Key)
	assert.JSONEq(t, `{"month":"2023-01"}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "rendered_at", msg.Headers[0].Key)
	assert.Equal(t, "trigger", msg.Headers[1].Key)
	assert.Equal(t, []byte("initial"), msg.Headers[1].Value)
	assert.Equal(t, "view_id", msg.Headers[2].Key)
}

func TestToMessage_NoHeaders(t *testing.T) {
	msg := toMessage(domain.OutputEvent{Key: []byte("k"), Value: []byte("v")})
	assert.Empty(t, msg.Headers)
}

func TestNewWriter_UsesConfiguredTopic(t *testing.T) {
	cfg := &config.Config{
		KafkaBrokers:       []string{"localhost:9092"},
		KafkaTopic:         "crime-map-redraws",
		BatchFlushInterval: 250 * time.Millisecond,
	}

	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "crime-map-redraws", w.writer.Topic)
	assert.Equal(t, 250*time.Millisecond, w.writer.BatchTimeout)
	assert.NoError(t, w.LoadBatch(context.Background(), nil), "empty batch is a no-op")
}
