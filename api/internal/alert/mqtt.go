package alert

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type MQTTConfig struct {
	Broker      string // host:port or full URL
	ClientID    string
	TopicPrefix string
	QoS         byte
}

// MQTTPublisher sends alert events to <prefix>/alerts/<severity>.
type MQTTPublisher struct {
	cfg    MQTTConfig
	client mqtt.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	errors    uint64
}

func NewMQTTPublisher(cfg MQTTConfig) *MQTTPublisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "first-aid"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "first-aid-api"
	}
	return &MQTTPublisher{cfg: cfg}
}

func brokerURL(b string) string {
	if strings.Contains(b, "://") {
		return b
	}
	return "tcp://" + b
}

// Connect dials the broker; paho keeps reconnecting in the background after that.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(p.cfg.Broker))
	opts.SetClientID(p.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		p.setConnected(true)
		log.Printf("mqtt connected: broker=%s client_id=%s", p.cfg.Broker, p.cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.setConnected(false)
		log.Printf("mqtt connection lost: %v", err)
	}

	p.client = mqtt.NewClient(opts)
	token := p.client.Connect()

	wait := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		wait = time.Until(dl)
	}
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	p.setConnected(true)
	return nil
}

func (p *MQTTPublisher) Topic(ev Event) string {
	return fmt.Sprintf("%s/alerts/%s", strings.TrimRight(p.cfg.TopicPrefix, "/"), ev.Severity)
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	if !p.isConnected() {
		p.fail()
		return fmt.Errorf("mqtt not connected")
	}
	payload, err := ev.JSON()
	if err != nil {
		p.fail()
		return fmt.Errorf("marshal alert: %w", err)
	}

	token := p.client.Publish(p.Topic(ev), p.cfg.QoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		p.fail()
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		p.fail()
		return fmt.Errorf("publish failed: %w", err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	return nil
}

func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.setConnected(false)
}

// Stats returns published and failed counts.
func (p *MQTTPublisher) Stats() (published, errors uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.published, p.errors
}

func (p *MQTTPublisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *MQTTPublisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *MQTTPublisher) fail() {
	p.mu.Lock()
	p.errors++
	p.mu.Unlock()
}
