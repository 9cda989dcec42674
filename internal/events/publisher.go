package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TypeItemsCreated = "closet.items.created"
	TypeItemUpdated  = "closet.item.updated"
	TypeItemDeleted  = "closet.item.deleted"
)

// ClosetEvent is published after a closet mutation has been persisted.
type ClosetEvent struct {
	Type       string    `json:"type"`
	OwnerID    string    `json:"ownerId"`
	ItemIDs    []string  `json:"itemIds"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewClosetEvent(eventType, ownerID string, itemIDs ...string) ClosetEvent {
	return ClosetEvent{
		Type:       eventType,
		OwnerID:    ownerID,
		ItemIDs:    itemIDs,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event ClosetEvent) error
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ClosetEvent) error { return nil }

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a topic exchange using the event type as routing key.
type AMQPPublisher struct {
	openChannel func() (channel, error)
	exchange    string

	mu       sync.Mutex
	declared bool
}

func NewAMQPPublisher(conn *amqp.Connection, exchange string) *AMQPPublisher {
	return newPublisher(func() (channel, error) {
		ch, err := conn.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}, exchange)
}

func newPublisher(openChannel func() (channel, error), exchange string) *AMQPPublisher {
	return &AMQPPublisher{
		openChannel: openChannel,
		exchange:    exchange,
	}
}

func (p *AMQPPublisher) Publish(ctx context.Context, event ClosetEvent) error {
	ch, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if err := p.ensureExchange(ch); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
		},
	); err != nil {
		return fmt.Errorf("publish event failed: %w", err)
	}
	return nil
}

// ensureExchange declares the exchange until one declaration succeeds.
func (p *AMQPPublisher) ensureExchange(ch channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.declared {
		return nil
	}
	if err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange failed: %w", err)
	}
	p.declared = true
	return nil
}

func Dial(ctx context.Context, url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		ch, err := conn.Channel()
		if err == nil {
			err = ch.Close()
		}
		done <- err
	}()

	select {
	case <-checkCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq health check timeout: %w", checkCtx.Err())
	case err := <-done:
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
		}
		return conn, nil
	}
}
