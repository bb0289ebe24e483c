// internal/events/mqtt.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	cfg "github.com/tamzrod/beacon-guard/internal/config"
)

const (
	publishWait    = 2 * time.Second
	DefaultQueue   = 64
	connectWait    = 10 * time.Second
	disconnectWait = 250 // ms
)

// publishClient is the part of mqtt.Client used here.
type publishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher sends events as JSON with QoS 0 from its own worker.
// Publish only enqueues, so a stalled broker never delays the caller;
// events that do not fit in the queue are dropped.
type MQTTPublisher struct {
	client publishClient
	topic  string
	wait   time.Duration
	queue  chan Event
	logger *slog.Logger
}

func NewMQTTPublisher(client publishClient, topic string, size int, logger *slog.Logger) *MQTTPublisher {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTPublisher{
		client: client,
		topic:  topic,
		wait:   publishWait,
		queue:  make(chan Event, size),
		logger: logger,
	}
}

// Publish enqueues e without blocking.
func (p *MQTTPublisher) Publish(e Event) {
	select {
	case p.queue <- e:
	default:
		p.logger.Warn("event queue full, event dropped", "type", e.Type)
	}
}

// Run delivers queued events until ctx is cancelled.
func (p *MQTTPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-p.queue:
			p.deliver(e)
		}
	}
}

// deliver waits at most p.wait for the broker; failures are logged.
func (p *MQTTPublisher) deliver(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Warn("encode event failed", "type", e.Type, "error", err)
		return
	}

	tok := p.client.Publish(p.topic, 0, false, payload)
	if !tok.WaitTimeout(p.wait) {
		p.logger.Warn("event publish timed out", "type", e.Type, "topic", p.topic)
		return
	}
	if err := tok.Error(); err != nil {
		p.logger.Warn("event publish failed", "type", e.Type, "topic", p.topic, "error", err)
	}
}

// Connect dials the broker in c. The returned closer disconnects.
func Connect(c cfg.MQTTConfig) (mqtt.Client, func() error, error) {
	if c.Broker == "" {
		return nil, nil, errors.New("events: broker required")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(false)
	if c.Username != "" {
		opts.SetUsername(c.Username)
		opts.SetPassword(c.Password)
	}

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(connectWait) {
		return nil, nil, fmt.Errorf("events: connect %s: timed out", c.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, nil, fmt.Errorf("events: connect %s: %w", c.Broker, err)
	}

	closer := func() error {
		client.Disconnect(disconnectWait)
		return nil
	}
	return client, closer, nil
}
