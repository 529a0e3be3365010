package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/dtroode/assoc-server/internal/logger"
	"github.com/dtroode/assoc-server/internal/model"
)

type message struct {
	UserID uuid.UUID       `json:"user_id"`
	Event  model.AuthEvent `json:"event"`
}

var _ Bus = (*RedisBus)(nil)

// RedisBus shares auth events between server instances over a redis
// channel. Every instance, the publisher included, delivers a message to its
// local subscribers when it comes back from redis.
type RedisBus struct {
	client  redis.UniversalClient
	channel string
	local   *LocalBus
	logger  *logger.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBus(client redis.UniversalClient, channel string, logger *logger.Logger) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channel,
		local:   NewLocalBus(),
		logger:  logger,
	}
}

// Start subscribes to the channel and begins dispatching. It returns once
// redis has confirmed the subscription.
func (b *RedisBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pubsub != nil {
		return errors.New("redis bus already started")
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	b.pubsub = pubsub
	b.done = make(chan struct{})
	go b.dispatch(pubsub.Channel(), b.done)

	b.logger.Info("Event bus: subscribed", "channel", b.channel)
	return nil
}

func (b *RedisBus) dispatch(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	for msg := range ch {
		var m message
		if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
			b.logger.Warn("Event bus: dropping malformed message",
				"channel", msg.Channel,
				"error", err.Error())
			continue
		}
		_ = b.local.Publish(context.Background(), m.UserID, m.Event)
	}
}

func (b *RedisBus) Publish(ctx context.Context, userID uuid.UUID, event model.AuthEvent) error {
	payload, err := json.Marshal(message{UserID: userID, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(userID uuid.UUID, fn Handler) func() {
	return b.local.Subscribe(userID, fn)
}

// Close stops dispatching and waits for the dispatch goroutine to exit.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub, b.done = nil, nil
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}
