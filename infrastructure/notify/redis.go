package notify

import (
	"context"

	"contentpilot/domain/model"
	"contentpilot/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// RedisSignal publishes wake messages on a pub/sub channel and can feed them
// back to a local dispatcher.
type RedisSignal struct {
	client  *redis.Client
	channel string
}

func NewRedisSignal(ctx context.Context, addr, username, password, channel string) (*RedisSignal, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisSignal{client: rdb, channel: channel}, nil
}

func (s *RedisSignal) Notify(ctx context.Context, jobType model.JobType) error {
	return s.client.Publish(ctx, s.channel, string(jobType)).Err()
}

// Wake subscribes to the channel and coalesces messages into an unbuffered-ish
// tick stream. A slow consumer drops ticks instead of blocking the pump; the
// scheduler tick covers anything dropped.
func (s *RedisSignal) Wake(ctx context.Context) (<-chan struct{}, error) {
	sub := s.client.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	logger.GetLogger().WithField("channel", s.channel).Info("Redis wake subscription active")
	return out, nil
}

func (s *RedisSignal) Close() error { return s.client.Close() }

var (
	_ ISignal = (*RedisSignal)(nil)
	_ IWaker  = (*RedisSignal)(nil)
)
