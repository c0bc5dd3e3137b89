package dvcevents

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	config "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Config"
	logger "gitlab.com/maplesense1/dvc.devices_api/src/production/DVC.Logger"
)

const eventQoS byte = 1

var ErrNotConnected = errors.New("mqtt client not connected")

// MQTTPublisher publishes device events to an MQTT broker and owns the
// subscriptions made on the same connection
type MQTTPublisher struct {
	cfg    config.EventsConfig
	client mqtt.Client
	logger *logger.Logger

	mu   sync.Mutex
	subs map[string]mqtt.MessageHandler
}

// NewMQTTPublisher builds the client options; call Connect before publishing
func NewMQTTPublisher(cfg config.EventsConfig, brokerURL string, log *logger.Logger) (*MQTTPublisher, error) {
	p := &MQTTPublisher{
		cfg:    cfg,
		logger: log.WithComponent("events"),
		subs:   make(map[string]mqtt.MessageHandler),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(cfg.ClientID).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetCleanSession(true)

	if cfg.BrokerUser != "" {
		opts.SetUsername(cfg.BrokerUser)
		opts.SetPassword(cfg.BrokerPass)
	}

	if cfg.UseTLS {
		tlsCfg, err := tlsConfig(cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		p.logger.WarnWithError(err, "mqtt connection lost")
	}
	opts.OnConnect = func(c mqtt.Client) {
		p.logger.Info("mqtt connected to " + brokerURL)
		p.mu.Lock()
		defer p.mu.Unlock()
		for topic, handler := range p.subs {
			p.subscribe(c, topic, handler)
		}
	}

	p.client = mqtt.NewClient(opts)
	return p, nil
}

// Connect waits for the first successful connection or for ctx to expire.
// The client keeps retrying in the background either way.
func (p *MQTTPublisher) Connect(ctx context.Context) error {
	token := p.client.Connect()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return fmt.Errorf("mqtt connect: %w", ctx.Err())
	}
}

func (p *MQTTPublisher) Publish(ctx context.Context, event DeviceEvent) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := event.Payload()
	if err != nil {
		return err
	}

	topic := event.Topic(p.cfg.TopicPrefix)
	token := p.client.Publish(topic, eventQoS, false, payload)

	timer := time.NewTimer(p.cfg.PublishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", topic, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("failed to publish to %s: timeout after %v", topic, p.cfg.PublishTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler for topic. Subscriptions are renewed on every
// reconnect since the session is not persistent.
func (p *MQTTPublisher) Subscribe(topic string, handler mqtt.MessageHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subs[topic] = handler
	if p.client.IsConnected() {
		p.subscribe(p.client, topic, handler)
	}
}

func (p *MQTTPublisher) subscribe(c mqtt.Client, topic string, handler mqtt.MessageHandler) {
	if token := c.Subscribe(topic, eventQoS, handler); token.Wait() && token.Error() != nil {
		p.logger.WithField("topic", topic).ErrorWithError(token.Error(), "Failed to subscribe to MQTT topic")
		return
	}
	p.logger.WithField("topic", topic).Info("Subscribed to MQTT topic")
}

func (p *MQTTPublisher) IsConnected() bool {
	return p.client != nil && p.client.IsConnected()
}

func (p *MQTTPublisher) Close() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(500)
	}
}

func tlsConfig(caFile string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if caFile == "" {
		return cfg, nil
	}
	ca, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(ca) {
		return nil, fmt.Errorf("bad CA file %s", caFile)
	}
	cfg.RootCAs = cp
	return cfg, nil
}
