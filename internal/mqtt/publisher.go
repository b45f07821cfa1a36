package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Fellisss/Weather1/internal/config"
)

const (
	publishQoS     = byte(1) // At least once delivery
	publishTimeout = 5 * time.Second
)

// connectRetryInterval is how long paho waits between attempts while the
// broker is unreachable.
var connectRetryInterval = 5 * time.Second

var (
	ErrNotConnected = errors.New("mqtt client not connected")
	errStopped      = errors.New("publisher stopped")
)

// Publisher sends JSON change events to <prefix>/<action>.
type Publisher struct {
	client      mqtt.Client
	cfg         config.Config
	logger      *slog.Logger
	topicPrefix string

	mu         sync.RWMutex
	connected  bool
	connecting mqtt.Token

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewPublisher(cfg config.Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		cfg:         cfg,
		logger:      logger,
		topicPrefix: cfg.MQTTTopicPrefix,
		stopCh:      make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryInterval)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		p.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = mqtt.NewClient(opts)
	return p
}

// Connect blocks until the broker accepts the connection, ctx ends, or the
// publisher is disconnected. When ctx ends first the attempt is left running:
// paho keeps retrying in the background and Publish starts succeeding once it
// gets through. Only Disconnect tears the client down.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errStopped
	default:
	}

	if p.IsConnected() {
		return nil
	}

	token := p.connectToken()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			p.mu.Lock()
			if p.connecting == token {
				p.connecting = nil
			}
			p.mu.Unlock()
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return errStopped
		default:
		}
	}
}

// connectToken returns the in-flight connect attempt, starting one if none is
// pending.
func (p *Publisher) connectToken() mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connecting != nil {
		select {
		case <-p.connecting.Done():
		default:
			return p.connecting
		}
	}
	p.connecting = p.client.Connect()
	return p.connecting
}

// Publish sends payload as JSON to the topic for action. It fails fast when
// the client is offline rather than queueing.
func (p *Publisher) Publish(ctx context.Context, action string, payload any) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	body, err := encodePayload(action, payload)
	if err != nil {
		return err
	}
	topic := p.Topic(action)

	token := p.client.Publish(topic, publishQoS, false, body)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published change event",
		"topic", topic,
		"size", len(body),
	)
	return nil
}

func (p *Publisher) Topic(action string) string {
	if p.topicPrefix == "" {
		return action
	}
	return p.topicPrefix + "/" + action
}

func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	connected := p.connected
	p.mu.RUnlock()
	return connected && p.client.IsConnected()
}

// Disconnect stops the publisher and closes the connection. Safe to call more
// than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	if p.client != nil {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func encodePayload(action string, payload any) ([]byte, error) {
	if action == "" {
		return nil, errors.New("event action is required")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", action, err)
	}
	return b, nil
}
