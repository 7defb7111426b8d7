package publish

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/veildex/match-engine/config"
)

// Publisher pushes finished round artifacts onto the relayer topic, keyed by
// round id. It is only invoked after the artifact is on disk, so a publish
// failure never loses a round.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func New(cfg config.PublisherConfig, logger *zap.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		logger: logger.With(zap.String("module", "publisher")),
	}
}

func (p *Publisher) PublishResult(ctx context.Context, roundID string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(roundID),
		Value: payload,
	})
	if err != nil {
		return err
	}
	p.logger.Info("round result published", zap.String("round", roundID))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
