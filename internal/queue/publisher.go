package queue

import (
    "context"
    "encoding/json"
    "errors"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// Publisher sends booking events to RabbitMQ.  The connection is opened
// lazily and re-dialled after the broker drops it, so a broker outage only
// costs the events published while it lasts.
type Publisher struct {
    url string
    log *zap.Logger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a Publisher for url.  No connection is made until
// the first publish.
func NewPublisher(url string, log *zap.Logger) *Publisher {
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{url: url, log: log.Named("publisher")}
}

// PublishBookingConfirmed publishes ev to booking.confirmed.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
    return p.publish(ctx, BookingConfirmedQueue, ev)
}

// PublishBookingCancelled publishes ev to booking.cancelled.
func (p *Publisher) PublishBookingCancelled(ctx context.Context, ev BookingCancelledEvent) error {
    return p.publish(ctx, BookingCancelledQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
    body, err := json.Marshal(event)
    if err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        p.log.Warn("rabbitmq: connect failed", zap.Error(err))
        return err
    }
    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        p.reset()
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
        p.reset()
        return err
    }
    return nil
}

// channel returns the cached channel, dialling when needed.  p.mu is held.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.url == "" {
        return nil, errors.New("rabbitmq url not configured")
    }
    if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.conn != nil {
        _ = p.conn.Close()
    }
    p.ch, p.conn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}
