package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/config"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
)

// handlerTimeout bounds the work done for a single message.
const handlerTimeout = 10 * time.Second

// MessageHandler processes one flattened station submission.
type MessageHandler func(ctx context.Context, p payload.Payload) error

type Subscriber struct {
	client     mqtt.Client
	cfg        config.Config
	logger     *slog.Logger
	mu         sync.RWMutex
	connected  bool
	subscribed bool

	stopCh   chan struct{}
	stopOnce sync.Once

	handlerMu sync.RWMutex
	handler   MessageHandler
}

// MQTTSubscriber is the part of Subscriber modules attach to.
type MQTTSubscriber interface {
	SetMessageHandler(handler MessageHandler)
}

// SetMessageHandler sets the handler for decoded messages. Set it before
// Connect so queued messages delivered right after CONNACK are not dropped.
func (s *Subscriber) SetMessageHandler(handler MessageHandler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{
		cfg:    cfg,
		logger: logger.With("component", "mqtt"),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Subscriptions do not survive a clean-session reconnect, so renew them
	// on every connect after the first.
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		wasConnected := s.IsConnectedFlag()
		s.setConnected(true)
		s.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if !wasConnected && s.subscribedOnce() {
			go func() {
				if err := s.subscribe(); err != nil {
					s.logger.Error("mqtt resubscribe failed", "error", err)
				}
			}()
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Connect establishes the broker connection and subscribes to the
// configured topic.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return fmt.Errorf("subscriber stopped")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			break
		}

		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return fmt.Errorf("subscriber stopped")
		default:
		}
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe() error {
	if !s.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := s.cfg.MQTTTopic
	qos := byte(1) // At least once delivery

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()
	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, body []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(body))

	p, ok := payload.FromJSON(body)
	if !ok {
		s.logger.Warn("mqtt message is not a JSON object", "topic", topic, "payload", string(body))
		return
	}
	if _, ok := p.First(payload.StationKeys...); !ok {
		if station := StationFromTopic(s.cfg.MQTTTopic, topic); station != "" {
			p["station_code"] = station
		}
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := handler(ctx, p); err != nil {
		s.logger.Warn("mqtt message rejected", "topic", topic, "error", err)
		return
	}
	s.logger.Debug("processed mqtt message", "topic", topic)
}

// StationFromTopic returns the topic level matched by the first single-level
// wildcard of filter, or "" when there is none.
// With filter "sensors/+/readings", "sensors/AA:BB/readings" yields "AA:BB".
func StationFromTopic(filter, topic string) string {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")
	for i, f := range fl {
		if f == "#" || i >= len(tl) {
			return ""
		}
		if f == "+" {
			return strings.TrimSpace(tl[i])
		}
	}
	return ""
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	return s.IsConnectedFlag() && s.client.IsConnected()
}

// IsConnectedFlag reports the state tracked by the connect and
// connection-lost callbacks.
func (s *Subscriber) IsConnectedFlag() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Subscriber) subscribedOnce() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}

	// Disconnect without holding s.mu to avoid lock contention/deadlocks.
	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
