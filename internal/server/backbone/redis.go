package backbone

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/convivial/salon/internal/common"
	"github.com/convivial/salon/internal/logging"
	"github.com/redis/go-redis/v9"
)

// wireChannel is the single Redis channel carrying every envelope; the
// logical channel (salon or user:<id>) travels inside the envelope.
const wireChannel = "convivial.events"

// RedisBackbone implements Backbone over a Redis pub/sub instance shared by
// all server instances.
type RedisBackbone struct {
	rdb      *redis.Client
	logger   logging.Logger
	degraded atomic.Bool
}

func NewRedisBackbone(addr string, logger logging.Logger) *RedisBackbone {
	return &RedisBackbone{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger.With("module", "backbone"),
	}
}

func (b *RedisBackbone) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrBackbone, err)
	}
	if err := b.rdb.Publish(ctx, wireChannel, payload).Err(); err != nil {
		b.degraded.Store(true)
		return fmt.Errorf("%w: %v", common.ErrBackbone, err)
	}
	b.degraded.Store(false)
	return nil
}

func (b *RedisBackbone) Subscribe(ctx context.Context) (<-chan Envelope, error) {
	sub := b.rdb.Subscribe(ctx, wireChannel)

	// confirm the subscription before anything is published
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrBackbone, err)
	}

	out := make(chan Envelope, 256)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					b.degraded.Store(true)
					b.logger.Error(ctx, "backbone subscription lost")
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn(ctx, "dropping malformed envelope", "error", err)
					continue
				}
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (b *RedisBackbone) Ping(ctx context.Context) error {
	if b.degraded.Load() {
		return common.ErrBackbone
	}
	if err := b.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrBackbone, err)
	}
	return nil
}

func (b *RedisBackbone) Close() error {
	return b.rdb.Close()
}
