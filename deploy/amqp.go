package deploy

import (
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Binding struct {
	Exchange   string
	RoutingKey string
	// Durable must match how the shared exchange was first declared.
	Durable bool
}

// topology is the part of *amqp.Channel used to set up consumption.
type topology interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// declare binds an anonymous exclusive queue to the direct exchange and consumes it with manual acks.
func declare(ch topology, binding Binding) (<-chan amqp.Delivery, error) {
	if err := ch.ExchangeDeclare(binding.Exchange, amqp.ExchangeDirect, binding.Durable, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.QueueBind(queue.Name, binding.RoutingKey, binding.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}
	deliveries, err := ch.Consume(queue.Name, "", false, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}
	return deliveries, nil
}

// Consumer owns the AMQP connection feeding a Listener.
type Consumer struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
}

// Dial connects to the broker and starts consuming from the bound exchange.
func Dial(url string, binding Binding) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	c := &Consumer{conn: conn}

	if c.channel, err = conn.Channel(); err != nil {
		return nil, c.fail("failed to open channel", err)
	}
	if c.deliveries, err = declare(c.channel, binding); err != nil {
		return nil, c.fail("failed to set up consumer", err)
	}
	return c, nil
}

func (c *Consumer) fail(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, errors.Join(err, c.Close()))
}

func (c *Consumer) Deliveries() <-chan amqp.Delivery {
	return c.deliveries
}

func (c *Consumer) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
