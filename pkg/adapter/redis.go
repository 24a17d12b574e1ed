package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/goclaw/oembridge/pkg/logger"
	"github.com/goclaw/oembridge/pkg/notification"
	"github.com/redis/go-redis/v9"
)

const (
	transportRedis = "redis"

	// DefaultChannelPrefix prefixes every Redis channel used by the adapter.
	DefaultChannelPrefix = "oembridge:"

	notifySuffix = "notify"
)

// Redis is a Redis Pub/Sub backed adapter. Producers publish notification
// envelopes to <prefix>notify; answers to request-response kinds are
// published to the envelope's ReplyTo channel.
type Redis struct {
	client        redis.UniversalClient
	channelPrefix string
	log           logger.Logger

	mu       sync.Mutex
	sub      *redisSubscription
	closed   bool
	inflight sync.WaitGroup
}

type redisSubscription struct {
	callback Callback
	pubsub   *redis.PubSub
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewRedis creates a Redis adapter.
func NewRedis(client redis.UniversalClient, channelPrefix string, log logger.Logger) *Redis {
	if channelPrefix == "" {
		channelPrefix = DefaultChannelPrefix
	}
	return &Redis{
		client:        client,
		channelPrefix: channelPrefix,
		log:           logger.OrGlobal(log).With("component", "adapter.redis"),
	}
}

// NotifyChannel returns the channel notifications are consumed from.
func (a *Redis) NotifyChannel() string {
	return a.channelPrefix + notifySuffix
}

// Subscribe confirms the Redis subscription before returning, so transport
// failures surface to the caller.
func (a *Redis) Subscribe(ctx context.Context, cb Callback) error {
	if cb == nil {
		return fmt.Errorf("callback cannot be nil")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.sub != nil {
		return ErrAlreadySubscribed
	}

	if err := a.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	pubsub := a.client.Subscribe(ctx, a.NotifyChannel())
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("redis subscribe %s: %w", a.NotifyChannel(), err)
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &redisSubscription{
		callback: cb,
		pubsub:   pubsub,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	a.sub = sub

	go a.consume(subCtx, sub)
	return nil
}

// Unsubscribe stops consuming and waits for the consumer loop to exit.
// Deliveries already handed to the callback are not waited for.
func (a *Redis) Unsubscribe(ctx context.Context, cb Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sub == nil || a.sub.callback != cb {
		return ErrNotSubscribed
	}
	sub := a.sub

	if err := sub.pubsub.Unsubscribe(ctx, a.NotifyChannel()); err != nil {
		return fmt.Errorf("redis unsubscribe %s: %w", a.NotifyChannel(), err)
	}
	a.sub = nil
	a.stop(sub)
	return nil
}

func (a *Redis) stop(sub *redisSubscription) {
	sub.cancel()
	_ = sub.pubsub.Close()
	<-sub.done
}

func (a *Redis) consume(ctx context.Context, sub *redisSubscription) {
	defer close(sub.done)

	ch := sub.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env, err := notification.DecodeEnvelope([]byte(msg.Payload))
			if err != nil {
				metricsRecorder().RecordDeliveryFailed(transportRedis, "unknown", "decode_failed")
				a.log.Warn("dropping undecodable notification", "error", err)
				continue
			}

			// Each delivery gets its own goroutine, like a binder thread.
			a.inflight.Add(1)
			go func() {
				defer a.inflight.Done()
				a.deliver(context.WithoutCancel(ctx), sub.callback, env)
			}()
		}
	}
}

func (a *Redis) deliver(ctx context.Context, cb Callback, env *notification.Envelope) {
	reply, hasReply := Dispatch(ctx, cb, env)
	metricsRecorder().RecordDelivered(transportRedis, string(env.Kind))
	if !hasReply {
		return
	}
	if env.ReplyTo == "" {
		metricsRecorder().RecordDeliveryFailed(transportRedis, string(env.Kind), "missing_reply_to")
		a.log.Warn("request-response notification without reply channel",
			"id", env.ID,
			"kind", env.Kind,
		)
		return
	}

	data, err := encodeReply(reply)
	if err != nil {
		metricsRecorder().RecordDeliveryFailed(transportRedis, string(env.Kind), "marshal_failed")
		return
	}
	if err := a.client.Publish(ctx, env.ReplyTo, data).Err(); err != nil {
		metricsRecorder().RecordDeliveryFailed(transportRedis, string(env.Kind), "reply_failed")
		a.log.Warn("failed to publish reply", "id", env.ID, "error", err)
	}
}

// Wait blocks until in-flight deliveries have finished.
func (a *Redis) Wait() {
	a.inflight.Wait()
}

// Healthy pings Redis.
func (a *Redis) Healthy() bool {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	return a.client.Ping(ctx).Err() == nil
}

// Close stops consuming. The Redis client is owned by the caller.
func (a *Redis) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	if a.sub != nil {
		a.stop(a.sub)
		a.sub = nil
	}
	return nil
}
