// Package redisdoc implements remote.Channel on Redis. The document is stored
// as JSON under its key, and every write is announced on a pub/sub channel
// carrying the same payload so subscribers never need a second round trip.
package redisdoc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/makstermee/Gym-planner/internal/remote"
	"github.com/makstermee/Gym-planner/internal/workout"
)

const (
	changesSuffix = "||changes"

	healthCheckInterval = 30 * time.Second
)

// Channel is a Redis-backed remote.Channel.
type Channel struct {
	client *redis.Client
	logger log.FieldLogger
}

var _ remote.Channel = (*Channel)(nil)

// New wraps an existing client. A nil logger uses the standard logrus logger.
func New(client *redis.Client, logger log.FieldLogger) *Channel {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Channel{client: client, logger: logger}
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// ChangesChannel returns the pub/sub channel announcing writes to key.
func ChangesChannel(key string) string {
	return key + changesSuffix
}

// ReadOnce implements remote.Channel.
func (c *Channel) ReadOnce(ctx context.Context, key string) (workout.Document, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return workout.Document{}, remote.ErrNotFound
	}
	if err != nil {
		return workout.Document{}, fmt.Errorf("get %s: %w", key, err)
	}
	return workout.Unmarshal(payload)
}

// Write implements remote.Channel. The document is stored first and then
// published; a failed publish is reported but the stored value stays.
func (c *Channel) Write(ctx context.Context, key string, doc workout.Document) error {
	payload, err := workout.Marshal(doc)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, string(payload), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	if err := c.client.Publish(ctx, ChangesChannel(key), string(payload)).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

// Subscribe implements remote.Channel. The subscription is confirmed before
// the current value is read, so no write between the two is missed. A lost
// connection ends the subscription with onError; changes published while it
// was down are picked up by subscribing again.
func (c *Channel) Subscribe(ctx context.Context, key string, onSnapshot func(remote.Snapshot), onError func(error)) (func(), error) {
	ps := c.client.Subscribe(ctx, ChangesChannel(key))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", key, err)
	}

	doc, err := c.ReadOnce(ctx, key)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		onSnapshot(remote.Snapshot{Exists: false})
	case err != nil:
		_ = ps.Close()
		return nil, err
	default:
		onSnapshot(remote.Snapshot{Document: doc, Exists: true})
	}

	subCtx, cancel := context.WithCancel(ctx)
	go c.listen(subCtx, ps, key, onSnapshot, onError)

	return func() {
		cancel()
		if err := ps.Close(); err != nil {
			c.logger.WithField("key", key).Debugf("redisdoc: close subscription: %s", err)
		}
	}, nil
}

// listen delivers published changes until ctx is cancelled or the connection
// fails. An idle connection is pinged every healthCheckInterval; a ping left
// unanswered for another interval counts as a failure.
func (c *Channel) listen(ctx context.Context, ps *redis.PubSub, key string, onSnapshot func(remote.Snapshot), onError func(error)) {
	logger := c.logger.WithField("key", key)
	awaitingPong := false
	for {
		msg, err := ps.ReceiveTimeout(ctx, healthCheckInterval)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && !awaitingPong {
				awaitingPong = true
				if err = ps.Ping(ctx); err == nil {
					continue
				}
			}
			logger.Warnf("redisdoc: subscription lost: %s", err)
			if onError != nil {
				onError(fmt.Errorf("receive %s: %w", key, err))
			}
			return
		}

		awaitingPong = false
		m, ok := msg.(*redis.Message)
		if !ok {
			continue
		}
		if m.Payload == "" {
			onSnapshot(remote.Snapshot{Exists: false})
			continue
		}
		doc, err := workout.Unmarshal([]byte(m.Payload))
		if err != nil {
			logger.Warnf("redisdoc: dropping undecodable change: %s", err)
			if onError != nil {
				onError(err)
			}
			continue
		}
		onSnapshot(remote.Snapshot{Document: doc, Exists: true})
	}
}

// Delete removes the document and announces the removal with an empty payload.
func (c *Channel) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := c.client.Publish(ctx, ChangesChannel(key), "").Err(); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}
