// Package announce publishes tracked server updates to an MQTT broker.
package announce

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/DeFirence/steam-condenser/internal/models"
)

const (
	// DefaultTopic is the topic prefix server updates are published
	// under: <topic>/<ip>:<port>.
	DefaultTopic = "condenser/servers"

	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

type Options struct {
	Logger   *slog.Logger
	Broker   string
	Topic    string
	ClientID string
}

// Publisher sends one retained JSON document per server per sweep.
type Publisher struct {
	client mqtt.Client
	logger *slog.Logger
	topic  string
}

type announcement struct {
	SweepID string         `json:"sweep_id"`
	Server  *models.Server `json:"server"`
}

func NewPublisher(opts Options) (*Publisher, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.ClientID == "" {
		opts.ClientID = "steam-condenser"
	}

	logger := opts.Logger.With(slog.String("broker", opts.Broker))

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(opts.Broker)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetMaxReconnectInterval(30 * time.Second)
	clientOpts.SetKeepAlive(60 * time.Second)
	clientOpts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker")
	})
	clientOpts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("err", err))
	})

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", err)
	}

	return &Publisher{
		client: client,
		logger: logger,
		topic:  opts.Topic,
	}, nil
}

// Announce implements crawler.Announcer.
func (p *Publisher) Announce(ctx context.Context, sweepID string, server *models.Server) error {
	payload, err := json.Marshal(&announcement{SweepID: sweepID, Server: server})
	if err != nil {
		return err
	}

	topic := fmt.Sprintf("%s/%s", p.topic, server.Addr())
	token := p.client.Publish(topic, 0, true, payload)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		return token.Error()
	case <-time.After(publishTimeout):
		return fmt.Errorf("timeout publishing to %s", topic)
	}
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
