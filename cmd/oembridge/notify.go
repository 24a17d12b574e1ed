package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goclaw/oembridge/config"
	"github.com/goclaw/oembridge/pkg/adapter"
	"github.com/goclaw/oembridge/pkg/notification"
)

// notifier publishes notifications to a bridge.
type notifier interface {
	Notify(ctx context.Context, kind notification.Kind, payload notification.Bundle) error
	Request(ctx context.Context, kind notification.Kind, payload notification.Bundle, timeout time.Duration) (*notification.Reply, error)
}

type notifyFlags struct {
	configPath string
	kind       string
	payload    string
	timeout    time.Duration
	address    string
	prefix     string
}

func parseNotifyFlags(args []string, stderr io.Writer) (*notifyFlags, error) {
	f := &notifyFlags{}
	fs := flag.NewFlagSet("notify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&f.kind, "kind", "", "Notification kind (session_status, device_status, session_config, ranging_report)")
	fs.StringVar(&f.payload, "payload", "{}", "Notification payload as a JSON object")
	fs.DurationVar(&f.timeout, "timeout", 5*time.Second, "How long to wait for a reply")
	fs.StringVar(&f.address, "redis", "", "Override Redis address")
	fs.StringVar(&f.prefix, "prefix", "", "Override channel prefix")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.kind == "" {
		return nil, fmt.Errorf("-kind is required")
	}
	return f, nil
}

func decodePayload(raw string) (notification.Bundle, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return numbersToValues(payload).(map[string]any), nil
}

// numbersToValues turns json.Number into int64 where exact, float64 otherwise.
func numbersToValues(v any) any {
	switch value := v.(type) {
	case map[string]any:
		for k, inner := range value {
			value[k] = numbersToValues(inner)
		}
		return value
	case []any:
		for i, inner := range value {
			value[i] = numbersToValues(inner)
		}
		return value
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return n
		}
		f, _ := value.Float64()
		return f
	default:
		return v
	}
}

func runNotify(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := parseNotifyFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load(flags.configPath, nil)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration:\n%s\n", err)
		return 1
	}
	rc := cfg.Adapter.Redis
	if flags.address != "" {
		rc.Address = flags.address
	}
	if flags.prefix != "" {
		rc.ChannelPrefix = flags.prefix
	}

	client := redis.NewClient(&redis.Options{Addr: rc.Address, Password: rc.Password, DB: rc.DB})
	defer client.Close()

	return sendNotification(ctx, adapter.NewPublisher(client, rc.ChannelPrefix), flags, stdout, stderr)
}

func sendNotification(ctx context.Context, n notifier, flags *notifyFlags, stdout, stderr io.Writer) int {
	kind, err := notification.ParseKind(flags.kind)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	payload, err := decodePayload(flags.payload)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	if kind.Mode() == notification.ModeFireAndForget {
		if err := n.Notify(ctx, kind, payload); err != nil {
			fmt.Fprintf(stderr, "notify %s: %v\n", kind, err)
			return 1
		}
		fmt.Fprintf(stdout, "sent %s\n", kind)
		return 0
	}

	reply, err := n.Request(ctx, kind, payload, flags.timeout)
	if err != nil {
		fmt.Fprintf(stderr, "request %s: %v\n", kind, err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reply); err != nil {
		fmt.Fprintf(stderr, "encode reply: %v\n", err)
		return 1
	}
	return 0
}
