// Package notify announces completed publishes on a RabbitMQ fanout exchange
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"growth-analyzer/internal/publisher"
	"growth-analyzer/pkg/errors"
	"growth-analyzer/pkg/logger"
)

// Config holds the broker settings. An empty URL disables notifications.
type Config struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// DefaultConfig returns the default exchange with no broker set
func DefaultConfig() *Config {
	return &Config{Exchange: "reports.published"}
}

// Enabled reports whether a broker is configured
func (c *Config) Enabled() bool {
	return c != nil && c.URL != ""
}

// Channel is the part of an AMQP channel the notifier uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Notifier publishes one persistent JSON message per completed publish
type Notifier struct {
	channel  Channel
	conn     *amqp.Connection
	exchange string
	logger   logger.Logger
}

// Dial connects to the broker and declares the exchange
func Dial(config *Config) (*Notifier, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, errors.PublishError(errors.CodeConnectionFailed, "message broker", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.PublishError(errors.CodeConnectionFailed, "message broker", err)
	}

	n, err := New(ch, config.Exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	n.conn = conn
	return n, nil
}

// New declares a durable fanout exchange on ch
func New(ch Channel, exchange string) (*Notifier, error) {
	if exchange == "" {
		return nil, errors.ConfigurationError(errors.CodeMissingConfig, "notify.exchange", nil, nil)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, errors.PublishError(errors.CodeConnectionFailed, exchange, err)
	}

	return &Notifier{
		channel:  ch,
		exchange: exchange,
		logger:   logger.GetGlobalLogger().WithComponent("notify"),
	}, nil
}

// Notify sends the publish event
func (n *Notifier) Notify(ctx context.Context, event publisher.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode publish event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         "report.published",
		Body:         body,
	}
	if err := n.channel.PublishWithContext(ctx, n.exchange, event.Tab, false, false, msg); err != nil {
		return errors.PublishError(errors.CodePublishFailed, n.exchange, err)
	}

	n.logger.WithFields(logger.Fields{
		"exchange": n.exchange,
		"tab":      event.Tab,
	}).Debug("Publish event sent")
	return nil
}

// Close releases the channel and, when dialled, the connection
func (n *Notifier) Close() error {
	err := n.channel.Close()
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
