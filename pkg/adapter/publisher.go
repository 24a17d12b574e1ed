package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/goclaw/oembridge/pkg/notification"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	healthTimeout = 500 * time.Millisecond
	replySuffix   = "reply:"
)

// Publisher is the producer side of the Redis transport: it publishes
// notifications the way a UWB adapter would.
type Publisher struct {
	client        redis.UniversalClient
	channelPrefix string
}

// NewPublisher creates a Publisher using the same prefix as the consuming
// Redis adapter.
func NewPublisher(client redis.UniversalClient, channelPrefix string) *Publisher {
	if channelPrefix == "" {
		channelPrefix = DefaultChannelPrefix
	}
	return &Publisher{client: client, channelPrefix: channelPrefix}
}

// Notify publishes a fire-and-forget notification.
func (p *Publisher) Notify(ctx context.Context, kind notification.Kind, payload notification.Bundle) error {
	if kind.Mode() != notification.ModeFireAndForget {
		return fmt.Errorf("%s expects a reply, use Request", kind)
	}
	env := notification.NewEnvelope(kind, payload)
	return p.publish(ctx, env)
}

// Request publishes a request-response notification and waits up to timeout
// for the reply.
func (p *Publisher) Request(ctx context.Context, kind notification.Kind, payload notification.Bundle, timeout time.Duration) (*notification.Reply, error) {
	if kind.Mode() != notification.ModeRequestResponse {
		return nil, fmt.Errorf("%s has no reply, use Notify", kind)
	}

	env := notification.NewEnvelope(kind, payload)
	env.ReplyTo = p.channelPrefix + replySuffix + uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pubsub := p.client.Subscribe(ctx, env.ReplyTo)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("redis subscribe %s: %w", env.ReplyTo, err)
	}

	if err := p.publish(ctx, env); err != nil {
		return nil, err
	}

	msg, err := pubsub.ReceiveMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("waiting for reply to %s: %w", env.ID, err)
	}
	return notification.DecodeReply([]byte(msg.Payload))
}

func (p *Publisher) publish(ctx context.Context, env *notification.Envelope) error {
	data, err := env.Encode()
	if err != nil {
		return err
	}
	channel := p.channelPrefix + notifySuffix
	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

func encodeReply(r notification.Reply) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reply: %w", err)
	}
	return data, nil
}
