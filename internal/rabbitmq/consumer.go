package rabbitmq

import (
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"chatlist-service/internal/bus"
	"chatlist-service/internal/logger"
	"chatlist-service/internal/models"
	"chatlist-service/internal/observability"
)

// syncEnvelope is the wire shape the sync service publishes per lifecycle
// event.
type syncEnvelope struct {
	Event  string `json:"event"`
	Detail struct {
		ChatID          string          `json:"chat_id"`
		ChatCount       int             `json:"chat_count"`
		ServerChatOrder []string        `json:"serverChatOrder"`
		Chat            *models.Chat    `json:"chat"`
		NewMessage      *models.Message `json:"newMessage"`
		DraftDeleted    bool            `json:"draftDeleted"`
	} `json:"detail"`
}

// Consumer bridges sync lifecycle events from a RabbitMQ topic exchange onto
// the in-process bus.
type Consumer struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	bus   *bus.Bus
	done  chan struct{}
}

// NewConsumer connects and binds a queue for sync lifecycle events.
func NewConsumer(amqpURL, exchange, queue string, b *bus.Bus) (*Consumer, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := ch.QueueBind(q.Name, "sync_events.#", exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Consumer{conn: conn, ch: ch, queue: q.Name, bus: b, done: make(chan struct{})}, nil
}

// Start consumes deliveries until the channel closes. Undecodable deliveries
// are counted and dropped; they never stop the stream.
func (c *Consumer) Start() error {
	deliveries, err := c.ch.Consume(c.queue, "", true, false, false, false, nil)
	if err != nil {
		return err
	}

	go func() {
		defer close(c.done)
		for d := range deliveries {
			c.dispatch(d.Body)
		}
	}()
	return nil
}

func (c *Consumer) dispatch(body []byte) {
	var env syncEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		logger.Errorf("rabbitmq: undecodable sync event: %v", err)
		observability.IncAMQPConsumeError()
		return
	}

	c.bus.Publish(bus.Event{
		Topic:           env.Event,
		ChatID:          env.Detail.ChatID,
		ChatCount:       env.Detail.ChatCount,
		ServerChatOrder: env.Detail.ServerChatOrder,
		Chat:            env.Detail.Chat,
		NewMessage:      env.Detail.NewMessage,
		DraftDeleted:    env.Detail.DraftDeleted,
	})
}

// Close tears down the consumer.
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
