package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BroadcastPayload is the wire shape pushed to realtime subscribers.
type BroadcastPayload struct {
	ID             string  `json:"id"`
	Body           string  `json:"body"`
	UserID         string  `json:"user_id"`
	UserName       string  `json:"user_name"`
	UserAvatar     *string `json:"user_avatar"`
	CreatedAt      string  `json:"created_at"`
	AttachmentType *string `json:"attachment_type"`
	AttachmentName *string `json:"attachment_name"`
	AttachmentSize *int64  `json:"attachment_size"`
	AttachmentURL  *string `json:"attachment_url"`
	ReadAt         *string `json:"read_at"`
}

//go:generate mockgen -source=broadcast.go -destination=mock/broadcast_mock.go -package=mock
type Broadcaster interface {
	// MessageSent publishes best effort. Delivery is not guaranteed and
	// failures are logged, never surfaced to the sender.
	MessageSent(ctx context.Context, companyID, conversationID string, payload BroadcastPayload)
}

type redisBroadcaster struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisBroadcaster(rdb *redis.Client, logger ...*zap.Logger) Broadcaster {
	l := zap.L().Named("chat.broadcast")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("chat.broadcast")
	}
	return &redisBroadcaster{rdb: rdb, logger: l}
}

func ChannelName(companyID, conversationID string) string {
	return fmt.Sprintf("chat.%s.conversation.%s", companyID, conversationID)
}

func (b *redisBroadcaster) MessageSent(ctx context.Context, companyID, conversationID string, payload BroadcastPayload) {
	if b.rdb == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("broadcast marshal failed", zap.Error(err))
		return
	}

	channel := ChannelName(companyID, conversationID)
	if err := b.rdb.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Warn("broadcast publish failed",
			zap.String("channel", channel),
			zap.Error(err),
		)
		return
	}

	b.logger.Debug("broadcast published",
		zap.String("channel", channel),
		zap.String("message_id", payload.ID),
	)
}
