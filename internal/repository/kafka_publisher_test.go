package repository

import (
	"context"
	"testing"
	"time"

	"SensorStream/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	topic string
	key   []byte
	value interface{}
}

type fakeProducer struct {
	msgs   []sent
	closed bool
}

func (p *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.msgs = append(p.msgs, sent{topic, key, value})
	return nil
}

func (p *fakeProducer) Close() error {
	p.closed = true
	return nil
}

func TestKafkaPublisher_Topics(t *testing.T) {
	prod := &fakeProducer{}
	pub := NewKafkaPublisher(prod, "sensor.readings")
	ctx := context.Background()

	r := models.Reading{X: 1, Y: 2, Z: 3, Timestamp: 4}
	require.NoError(t, pub.PublishReading(ctx, r))
	s := models.FlushSummary{Name: "sensor_data_1.json", Count: 1, Backend: "file", SavedAt: time.Unix(1, 0)}
	require.NoError(t, pub.PublishFlush(ctx, s))
	require.NoError(t, pub.Close())

	require.Len(t, prod.msgs, 2)
	assert.Equal(t, "sensor.readings", prod.msgs[0].topic)
	assert.Equal(t, []byte("accelerometer"), prod.msgs[0].key)
	assert.Equal(t, r, prod.msgs[0].value)
	assert.Equal(t, "sensor.readings.flushes", prod.msgs[1].topic)
	assert.Equal(t, []byte("sensor_data_1.json"), prod.msgs[1].key)
	assert.True(t, prod.closed)
	assert.Equal(t, "sensor.readings.logs", LogTopic("sensor.readings"))
}
