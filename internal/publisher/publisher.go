// Package publisher bridges the pipeline's output channels onto Redis
// Streams so dashboard consumers can subscribe independently of the
// ingestion path.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/redis/go-redis/v9"

	"github.com/sveitser/node-telemetry/internal/ingest"
	"github.com/sveitser/node-telemetry/pkg/chain"
	"github.com/sveitser/node-telemetry/pkg/transform"
)

// Publisher publishes block summaries and voter bitmaps to Redis Streams.
type Publisher struct {
	pub         message.Publisher
	redisClient redis.UniversalClient
	blocksTopic string
	votersTopic string
}

// New creates a new Publisher.
func New(redisClient redis.UniversalClient, blocksTopic, votersTopic string) (*Publisher, error) {
	logger := watermill.NewSlogLogger(nil)

	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		pub:         pub,
		redisClient: redisClient,
		blocksTopic: blocksTopic,
		votersTopic: votersTopic,
	}, nil
}

// Run consumes both pipeline outputs until the context is cancelled or a
// publish fails. On exit it closes the consumer ends, which makes the
// pipeline's next send fail fast instead of blocking on a dead subscriber.
func (p *Publisher) Run(
	ctx context.Context,
	blocks *ingest.Output[chain.BlockSummary],
	voters *ingest.Output[bitfield.Bitlist],
) error {
	defer blocks.Close()
	defer voters.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case summary := <-blocks.Recv():
			if err := p.PublishSummary(ctx, summary); err != nil {
				return err
			}
		case bitmap := <-voters.Recv():
			if err := p.PublishVoters(ctx, bitmap); err != nil {
				return err
			}
		}
	}
}

// PublishSummary publishes one block summary to the blocks topic.
func (p *Publisher) PublishSummary(ctx context.Context, summary chain.BlockSummary) error {
	payload, err := json.Marshal(transform.SummaryView(summary))
	if err != nil {
		return err
	}
	return p.publish(p.blocksTopic, payload, "height", summary.Height)
}

// PublishVoters publishes one identity-order voter bitmap to the voters
// topic.
func (p *Publisher) PublishVoters(ctx context.Context, voters bitfield.Bitlist) error {
	payload, err := json.Marshal(transform.VotersToBools(voters))
	if err != nil {
		return err
	}
	return p.publish(p.votersTopic, payload, "voters", voters.Count())
}

func (p *Publisher) publish(topic string, payload []byte, key string, value any) error {
	start := time.Now()

	msgUUID := watermill.NewUUID()
	msg := message.NewMessage(msgUUID, payload)

	err := p.pub.Publish(topic, msg)
	duration := time.Since(start)

	if err != nil {
		slog.Error("redis publish failed",
			"topic", topic,
			key, value,
			"msg_uuid", msgUUID,
			"duration_ms", duration.Milliseconds(),
			"err", err,
		)
		return err
	}

	slog.Debug("redis publish ok",
		"topic", topic,
		key, value,
		"msg_uuid", msgUUID,
		"duration_ms", duration.Milliseconds(),
	)
	return nil
}

// Close closes the publisher.
func (p *Publisher) Close() error {
	return p.pub.Close()
}

// QueueLength returns the number of messages in a Redis stream topic.
func (p *Publisher) QueueLength(ctx context.Context, topic string) (int64, error) {
	return p.redisClient.XLen(ctx, topic).Result()
}
