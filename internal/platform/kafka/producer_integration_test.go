//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"revalidation/internal/platform/kafka"
	"revalidation/pkg/testutil/containers"
)

func TestProducer_PublishAndConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	topic := "revalidation.test." + time.Now().Format("150405.000000")
	p, err := kafka.NewProducer([]string{broker.Brokers}, topic)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Ping(ctx))
	require.NoError(t, p.EnsureTopic(ctx, 1, 1))
	require.NoError(t, p.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	require.NoError(t, p.Publish(ctx, []kafka.Message{{
		Key:     []byte("cycle-1"),
		Value:   []byte(`{"cycle_id":"cycle-1"}`),
		Headers: map[string]string{"event_type": "cycle.submitted"},
	}}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Brokers),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "cycle-1", string(records[0].Key))
	assert.Equal(t, "event_type", records[0].Headers[0].Key)
}
