package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var errUndecodable = errors.New("undecodable event")

// AuditConsumer appends every borrow event to a log file, one line each.
type AuditConsumer struct {
	url   string
	queue string
	path  string
	log   *zap.Logger
	// retryDelay holds back the requeue of an event whose write failed.
	retryDelay time.Duration
}

func NewAuditConsumer(url, queue, path string, log *zap.Logger) *AuditConsumer {
	return &AuditConsumer{url: url, queue: queue, path: path, log: log, retryDelay: time.Second}
}

// Run consumes until ctx is cancelled, redialing with backoff whenever the
// broker connection is lost.
func (c *AuditConsumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("audit consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("audit consumer: reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("audit consumer: set qos failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.settle(ctx, d, c.handle(d.Body))
		}
	}
}

func (c *AuditConsumer) settle(ctx context.Context, d amqp.Delivery, err error) {
	if err == nil {
		_ = d.Ack(false)
		return
	}
	c.log.Error("audit consumer: handle failed", zap.Error(err))
	// a bad payload never becomes good; a failed write might
	if errors.Is(err, errUndecodable) {
		_ = d.Nack(false, false)
		return
	}
	sleep(ctx, c.retryDelay)
	_ = d.Nack(false, true)
}

func (c *AuditConsumer) handle(body []byte) error {
	var ev BorrowEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errUndecodable, err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev BorrowEvent) string {
	ts := ev.OccurredAt.UTC().Format(time.RFC3339)
	switch ev.Type {
	case BorrowReturned:
		returned := ""
		if ev.ReturnTime != nil {
			returned = ev.ReturnTime.UTC().Format(time.RFC3339)
		}
		return fmt.Sprintf("[%s] Book returned | borrow_id=%d | user_id=%d | book_id=%d | book=%q | returned=%s | overdue=%t | overdue_days=%d\n",
			ts, ev.BorrowID, ev.UserID, ev.BookID, ev.BookName, returned, ev.IsOverdue, ev.OverdueDays)
	default:
		return fmt.Sprintf("[%s] Book borrowed | borrow_id=%d | user_id=%d | book_id=%d | book=%q | due=%s\n",
			ts, ev.BorrowID, ev.UserID, ev.BookID, ev.BookName, ev.DueTime.UTC().Format(time.RFC3339))
	}
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
