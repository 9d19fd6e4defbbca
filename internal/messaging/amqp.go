package messaging

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/banshee-data/omnibase/internal/monitoring"
)

// commandBuffer bounds how many inbound commands can sit unread between
// ticks. The loop drains the channel every tick and keeps only the newest,
// so the buffer only needs to absorb a tick's worth of bursts.
const commandBuffer = 64

// AMQPTransport carries the command/actuation/health topics over fanout
// exchanges on a RabbitMQ broker.
type AMQPTransport struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	commands chan []byte
}

// DialAMQP connects to the broker and declares the three topic exchanges.
// Commands are consumed from an exclusive auto-named queue bound to the
// command exchange.
func DialAMQP(url string) (*AMQPTransport, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial message bus: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, exchange := range []string{TopicCommand, TopicActuation, TopicHealth} {
		if err := ch.ExchangeDeclare(
			exchange, // name
			"fanout", // type
			true,     // durable
			false,    // auto-deleted
			false,    // internal
			false,    // no-wait
			nil,      // arguments
		); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	queue, err := ch.QueueDeclare(
		"",    // name: broker-assigned
		false, // durable
		false, // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare command queue: %w", err)
	}

	if err := ch.QueueBind(queue.Name, "", TopicCommand, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind command queue: %w", err)
	}

	deliveries, err := ch.Consume(
		queue.Name,
		"omnibase-"+uuid.NewString(), // consumer tag
		true,                         // auto-ack
		false,                        // exclusive
		false,                        // no-local
		false,                        // no-wait
		nil,                          // args
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to consume commands: %w", err)
	}

	t := &AMQPTransport{
		conn:     conn,
		ch:       ch,
		commands: make(chan []byte, commandBuffer),
	}

	go func() {
		defer close(t.commands)
		for d := range deliveries {
			select {
			case t.commands <- d.Body:
			default:
				// The loop is behind; drop rather than block the
				// consumer. The newest command wins anyway.
				monitoring.Debugf("messaging: command buffer full, dropping payload")
			}
		}
	}()

	return t, nil
}

func (t *AMQPTransport) Commands() <-chan []byte {
	return t.commands
}

func (t *AMQPTransport) publish(exchange string, payload []byte) error {
	return t.ch.Publish(
		exchange,
		"",    // routing key: fanout ignores it
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        payload,
		},
	)
}

func (t *AMQPTransport) PublishActuation(payload []byte) error {
	return t.publish(TopicActuation, payload)
}

func (t *AMQPTransport) PublishHealth(payload []byte) error {
	return t.publish(TopicHealth, payload)
}

func (t *AMQPTransport) Close() error {
	if err := t.ch.Close(); err != nil {
		t.conn.Close()
		return err
	}
	return t.conn.Close()
}
