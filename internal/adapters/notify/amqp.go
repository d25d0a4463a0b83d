// Package notify delivers the end-of-run report. The AMQP publisher is used
// when a broker URL is configured; otherwise the report is only logged.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/domain"
)

const DefaultQueue = "catalog.update.report"

// Message is the JSON body published for each run.
type Message struct {
	Failed bool      `json:"failed"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

func NewMessage(text string) Message {
	return Message{
		Failed: strings.HasPrefix(text, "Failed update:"),
		Text:   text,
		SentAt: time.Now().UTC(),
	}
}

// Publisher is the subset of *amqp.Channel the notifier needs.
type Publisher interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier dials per send; a run sends once, so a long-lived connection
// would sit idle between runs.
type AMQPNotifier struct {
	url   string
	queue string
	dial  func(url string) (Publisher, func(), error)
}

func NewAMQP(url, queue string) *AMQPNotifier {
	if queue == "" {
		queue = DefaultQueue
	}
	return &AMQPNotifier{url: url, queue: queue, dial: dialChannel}
}

// NewAMQPWithDialer swaps the connection factory, mainly for tests.
func NewAMQPWithDialer(queue string, dial func(url string) (Publisher, func(), error)) *AMQPNotifier {
	n := NewAMQP("", queue)
	n.dial = dial
	return n
}

func dialChannel(url string) (Publisher, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	return ch, func() {
		_ = ch.Close()
		_ = conn.Close()
	}, nil
}

func (n *AMQPNotifier) Send(ctx context.Context, text string) error {
	ch, closeFn, err := n.dial(n.url)
	if err != nil {
		return err
	}
	defer closeFn()

	// durable so reports survive broker restarts
	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}
	body, err := json.Marshal(NewMessage(text))
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	log.Ctx(ctx).Info().Str("queue", n.queue).Int("bytes", len(body)).Msg("report published")
	return nil
}

// LogNotifier writes the report to the log only.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, text string) error {
	msg := NewMessage(text)
	ev := log.Ctx(ctx).Info()
	if msg.Failed {
		ev = log.Ctx(ctx).Error()
	}
	ev.Str("report", text).Msg("update report")
	return nil
}

// New picks the AMQP publisher when url is set.
func New(url, queue string) domain.Notifier {
	if strings.TrimSpace(url) == "" {
		return LogNotifier{}
	}
	return NewAMQP(url, queue)
}
