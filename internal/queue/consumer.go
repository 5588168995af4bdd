package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// StartAuditConsumer connects to RabbitMQ, declares the booking queues
// (durable), and writes one structured audit log line per event.  It runs
// a reconnect loop with exponential backoff and only returns once ctx is
// cancelled.  Malformed messages are rejected without requeue so the loop
// never spins on them.
func StartAuditConsumer(ctx context.Context, url string, log *zap.Logger) error {
    if log == nil {
        log = zap.NewNop()
    }
    audit := log.Named("audit")
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            audit.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, audit)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        audit.Warn("consume loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("set QoS failed", zap.Error(err))
    }

    confirmed, err := subscribe(ch, BookingConfirmedQueue)
    if err != nil {
        return err
    }
    cancelled, err := subscribe(ch, BookingCancelledQueue)
    if err != nil {
        return err
    }

    for {
        var d amqp.Delivery
        var ok bool
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok = <-confirmed:
        case d, ok = <-cancelled:
        }
        if !ok {
            return errors.New("deliveries channel closed")
        }
        if err := HandleAuditMessage(d.RoutingKey, d.Body, log); err != nil {
            log.Warn("handle message failed", zap.String("queue", d.RoutingKey), zap.Error(err))
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
}

func subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return nil, fmt.Errorf("queue declare %s: %w", queue, err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return nil, fmt.Errorf("queue consume %s: %w", queue, err)
    }
    return msgs, nil
}

// HandleAuditMessage decodes one event body published on queue and logs
// it.  Unknown queues and undecodable bodies are errors.
func HandleAuditMessage(queue string, body []byte, log *zap.Logger) error {
    switch queue {
    case BookingConfirmedQueue:
        var ev BookingConfirmedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if ev.BookingID == 0 {
            return errors.New("event without booking_id")
        }
        log.Info("booking confirmed",
            zap.Uint64("booking_id", ev.BookingID),
            zap.String("booking_code", ev.BookingCode),
            zap.Uint64("user_id", ev.UserID),
            zap.String("ticket", ev.TicketName),
            zap.Int("quantity", ev.Quantity),
            zap.String("total_price", ev.TotalPrice),
            zap.String("confirmed_at", ev.ConfirmedAt))
    case BookingCancelledQueue:
        var ev BookingCancelledEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if ev.BookingID == 0 {
            return errors.New("event without booking_id")
        }
        log.Info("booking cancelled",
            zap.Uint64("booking_id", ev.BookingID),
            zap.String("booking_code", ev.BookingCode),
            zap.Uint64("user_id", ev.UserID),
            zap.Int("quota_restored", ev.QuotaRestored),
            zap.String("reason", ev.Reason),
            zap.String("cancelled_at", ev.CancelledAt))
    default:
        return fmt.Errorf("unknown queue %q", queue)
    }
    return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
