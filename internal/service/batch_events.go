package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labgen-api/internal/dto"
	"github.com/noah-isme/labgen-api/internal/models"
)

// BatchEventPublisher announces finished generation batches.
type BatchEventPublisher interface {
	Publish(ctx context.Context, batch models.QuestionBatch)
	// Subscribe delivers events published by other nodes until ctx ends.
	Subscribe(ctx context.Context, handler func(dto.BatchEvent))
}

type batchEventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string
	now          func() time.Time
}

// NewBatchEventPublisher builds a publisher over Redis pub/sub and NATS. Either
// connection may be nil; with both nil events are only logged.
func NewBatchEventPublisher(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) BatchEventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":batches"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".batches"
	}

	return &batchEventPublisher{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "batch_events").Logger(),
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

func (p *batchEventPublisher) Publish(ctx context.Context, batch models.QuestionBatch) {
	event := dto.BatchEvent{
		Source:         p.nodeID,
		BatchID:        batch.ID,
		UserID:         batch.UserID,
		Status:         string(batch.Status),
		Subject:        batch.Subject,
		Topic:          batch.Topic,
		QuestionCount:  batch.QuestionCount,
		GeneratedCount: batch.GeneratedCount,
		SentAt:         p.now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode batch event")
		return
	}

	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			p.logger.Warn().Err(err).Str("batch_id", batch.ID).Msg("failed to publish batch event to redis")
		}
	}

	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			p.logger.Warn().Err(err).Str("batch_id", batch.ID).Msg("failed to publish batch event to nats")
		}
	}

	p.logger.Info().Str("batch_id", batch.ID).Str("status", event.Status).Int("generated", event.GeneratedCount).Msg("batch finished")
}

func (p *batchEventPublisher) Subscribe(ctx context.Context, handler func(dto.BatchEvent)) {
	if p.redis != nil && p.redisChannel != "" {
		go p.consumeRedis(ctx, handler)
	}
	if p.nats != nil && p.natsSubject != "" {
		p.consumeNATS(ctx, handler)
	}
}

func (p *batchEventPublisher) consumeRedis(ctx context.Context, handler func(dto.BatchEvent)) {
	pubsub := p.redis.Subscribe(ctx, p.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			p.logger.Error().Err(err).Msg("batch event redis subscription closed")
			return
		}
		p.handleEvent([]byte(msg.Payload), handler)
	}
}

func (p *batchEventPublisher) consumeNATS(ctx context.Context, handler func(dto.BatchEvent)) {
	sub, err := p.nats.QueueSubscribe(p.natsSubject, "labgen-batches", func(msg *nats.Msg) {
		p.handleEvent(msg.Data, handler)
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to subscribe to nats batch subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			p.logger.Warn().Err(err).Msg("failed to drain batch nats subscription")
		}
	}()
}

func (p *batchEventPublisher) handleEvent(payload []byte, handler func(dto.BatchEvent)) {
	var event dto.BatchEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		p.logger.Warn().Err(err).Msg("invalid batch event payload")
		return
	}
	if event.Source == p.nodeID {
		return
	}
	handler(event)
}
