package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var ErrNotConnected = errors.New("rabbit provider is not connected")

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Queue    string
}

// Message is one extracted or corrected event batch of a session.
type Message struct {
	SessionID string          `json:"session_id"`
	Entry     string          `json:"entry"`
	Events    []storage.Event `json:"events"`
	Time      time.Time       `json:"time"`
}

func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

func Decode(body []byte) (Message, error) {
	m := Message{}
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, fmt.Errorf("failed to parse message: %w", err)
	}
	if m.SessionID == "" {
		return Message{}, fmt.Errorf("message without session: %w", storage.ErrIncorrectSession)
	}
	return m, nil
}

type Provider struct {
	conn       *amqp.Connection
	queue      amqp.Queue
	channel    *amqp.Channel
	connString string
	queueName  string
}

func New(config Config) *Provider {
	return &Provider{
		connString: fmt.Sprintf(
			"amqp://%s:%s@%s:%d/",
			config.User,
			config.Password,
			config.Host,
			config.Port,
		),
		queueName: config.Queue,
	}
}

func (r *Provider) Connect() error {
	var err error
	r.conn, err = amqp.Dial(r.connString)
	if err != nil {
		return err
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		return err
	}
	r.queue, err = r.channel.QueueDeclare(
		r.queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	return err
}

func (r *Provider) Close() {
	if r.conn != nil {
		r.conn.Close()
	}
}

func (r *Provider) Publish(_ context.Context, m Message) error {
	if r.channel == nil {
		return ErrNotConnected
	}
	body, err := Encode(m)
	if err != nil {
		return err
	}
	return r.channel.Publish(
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    m.Time,
			Body:         body,
		})
}

type MessageProcess = func(m Message) error

// Consume acknowledges a delivery once process succeeds; undecodable deliveries are dropped.
func (r *Provider) Consume(ctx context.Context, process MessageProcess) error {
	if r.channel == nil {
		return ErrNotConnected
	}
	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			handle(d, process)
		}
	}
}

func handle(d amqp.Delivery, process MessageProcess) {
	m, err := Decode(d.Body)
	if err != nil {
		log.Errorf("dropping message: %v", err)
		_ = d.Nack(false, false)
		return
	}
	if err := process(m); err != nil {
		log.WithField("session", m.SessionID).Errorf("failed to process message: %v", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}
