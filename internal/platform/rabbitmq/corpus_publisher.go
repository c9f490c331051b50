package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"vaultai/internal/model"
)

// CorpusPublisher queues corpus store writes for the persist worker.
type CorpusPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewCorpusPublisher(conn *amqp.Connection, queueName string) *CorpusPublisher {
	return &CorpusPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *CorpusPublisher) SaveDocument(ctx context.Context, doc model.CorpusDocument) error {
	return p.Publish(ctx, model.CorpusEvent{Op: model.CorpusSave, Filename: doc.Filename, Document: &doc})
}

func (p *CorpusPublisher) DeleteDocument(ctx context.Context, filename string) error {
	return p.Publish(ctx, model.CorpusEvent{Op: model.CorpusDelete, Filename: filename})
}

func (p *CorpusPublisher) DeleteAll(ctx context.Context) error {
	return p.Publish(ctx, model.CorpusEvent{Op: model.CorpusReset})
}

func (p *CorpusPublisher) Publish(ctx context.Context, event model.CorpusEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal corpus event failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish corpus event failed: %w", err)
	}
	return nil
}

// Consume declares the queue and starts delivering its messages on a new
// channel. The caller closes the returned channel when done.
func Consume(conn *amqp.Connection, queueName string) (*amqp.Channel, <-chan amqp.Delivery, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		_ = ch.Close()
		return nil, nil, err
	}
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("consume queue failed: %w", err)
	}
	return ch, deliveries, nil
}
