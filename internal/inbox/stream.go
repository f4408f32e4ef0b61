package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gradticket-bot/internal/model"
	"gradticket-bot/pkg/logger"
)

const (
	InboxStreamKey     = "inbox:stream"
	OutboxStreamKey    = "outbox:stream"
	ConsumerGroupName  = "ticketbot-workers"
	ConsumerNamePrefix = "bot"
)

// StreamConfig 可注入的讀取與領回設定；nil 或零值時使用預設。
type StreamConfig struct {
	ClaimMinIdleTime   time.Duration // PEL 中超過此時間的未讀訊息由 XAUTOCLAIM 領回
	ReadGroupBlockTime time.Duration // XReadGroup 阻塞時間
	BatchSize          int
}

func defaultStreamConfig() StreamConfig {
	return StreamConfig{
		ClaimMinIdleTime:   30 * time.Second,
		ReadGroupBlockTime: 500 * time.Millisecond,
		BatchSize:          32,
	}
}

// StreamMessageSource is a MessageSource over a Redis stream with a
// consumer group. FetchUnread first reclaims stale pending entries (the
// messages a previous cycle fetched but never acknowledged, e.g. NoCommand
// results) and then reads new entries; MarkRead acknowledges.
type StreamMessageSource struct {
	client       *redis.Client
	streamKey    string
	groupName    string
	consumerName string
	cfg          StreamConfig
	log          *zap.Logger
}

func NewStreamMessageSource(client *redis.Client, consumerID string, config *StreamConfig) (*StreamMessageSource, error) {
	if consumerID == "" {
		consumerID = uuid.New().String()
	}
	cfg := defaultStreamConfig()
	if config != nil {
		if config.ClaimMinIdleTime > 0 {
			cfg.ClaimMinIdleTime = config.ClaimMinIdleTime
		}
		if config.ReadGroupBlockTime > 0 {
			cfg.ReadGroupBlockTime = config.ReadGroupBlockTime
		}
		if config.BatchSize > 0 {
			cfg.BatchSize = config.BatchSize
		}
	}
	s := &StreamMessageSource{
		client:       client,
		streamKey:    InboxStreamKey,
		groupName:    ConsumerGroupName,
		consumerName: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:          cfg,
		log:          logger.WithComponent("inbox"),
	}
	ctx := context.Background()
	if err := s.ensureConsumerGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return s, nil
}

func (s *StreamMessageSource) ensureConsumerGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.streamKey, s.groupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (s *StreamMessageSource) FetchUnread(ctx context.Context) ([]model.Message, error) {
	var messages []model.Message

	claimed, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.streamKey,
		Group:    s.groupName,
		Consumer: s.consumerName,
		MinIdle:  s.cfg.ClaimMinIdleTime,
		Count:    int64(s.cfg.BatchSize),
		Start:    "0-0",
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	for _, msg := range claimed {
		if m, ok := s.decode(msg); ok {
			messages = append(messages, m)
		}
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.groupName,
		Consumer: s.consumerName,
		Streams:  []string{s.streamKey, ">"},
		Count:    int64(s.cfg.BatchSize),
		Block:    s.cfg.ReadGroupBlockTime,
	}).Result()
	if err == redis.Nil {
		return messages, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	for _, stream := range streams {
		if stream.Stream != s.streamKey {
			continue
		}
		for _, msg := range stream.Messages {
			if m, ok := s.decode(msg); ok {
				messages = append(messages, m)
			}
		}
	}

	return messages, nil
}

func (s *StreamMessageSource) MarkRead(ctx context.Context, message model.Message) error {
	return s.client.XAck(ctx, s.streamKey, s.groupName, message.ID).Err()
}

// Publish injects a message into the inbox stream. Used by the admin API to
// feed test commands through the same path real messages take.
func (s *StreamMessageSource) Publish(ctx context.Context, author, body string) (string, error) {
	id, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.streamKey,
		ID:     "*",
		Values: map[string]interface{}{"author": author, "body": body},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

func (s *StreamMessageSource) decode(msg redis.XMessage) (model.Message, bool) {
	author, ok := msg.Values["author"].(string)
	if !ok {
		s.log.Warn("invalid message: missing author field", zap.String("message_id", msg.ID))
		// 格式不對的訊息直接 ack，避免每個 cycle 重複領回
		_ = s.client.XAck(context.Background(), s.streamKey, s.groupName, msg.ID).Err()
		return model.Message{}, false
	}
	body, _ := msg.Values["body"].(string)
	return model.Message{ID: msg.ID, Author: author, Body: body}, true
}

// StreamNotifier appends outgoing notifications to an outbox stream for the
// delivery transport to drain.
type StreamNotifier struct {
	client    *redis.Client
	streamKey string
}

func NewStreamNotifier(client *redis.Client) *StreamNotifier {
	return &StreamNotifier{
		client:    client,
		streamKey: OutboxStreamKey,
	}
}

func (n *StreamNotifier) Send(ctx context.Context, user, subject, body string) error {
	notification := model.Notification{
		ID:      uuid.New().String(),
		User:    user,
		Subject: subject,
		Body:    body,
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: n.streamKey,
		ID:     "*",
		Values: map[string]interface{}{"notification": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}
