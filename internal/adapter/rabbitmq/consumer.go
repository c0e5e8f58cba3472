package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

const reconnectDelay = 5 * time.Second

type consumer struct {
	conn Connection
}

func NewConsumer(conn Connection) interfaces.EventConsumer {
	return &consumer{conn: conn}
}

// Subscribe binds an exclusive queue to the scope's routing key and feeds
// every delivery to the handler. The session reconnects forever: each drop
// fires OnDisconnect, each successful (re)bind fires OnConnect before
// events flow, so the subscriber can resync its snapshot instead of
// replaying the gap.
func (c *consumer) Subscribe(ctx context.Context, scope domain.Scope, hooks interfaces.SubscriptionHooks, handler interfaces.EventMessageHandler) error {
	for {
		err := c.consumeOnce(ctx, scope, hooks, handler)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		if hooks.OnDisconnect != nil {
			hooks.OnDisconnect()
		}

		log.Printf("Feed consumer for %s disconnected: %v. Reconnecting in %s...", scope.Key(), err, reconnectDelay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *consumer) consumeOnce(ctx context.Context, scope domain.Scope, hooks interfaces.SubscriptionHooks, handler interfaces.EventMessageHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	closeChan := ch.NotifyClose()

	if err := ch.ExchangeDeclare(eventsExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Exclusive anonymous queue: every subscriber gets its own copy of the
	// scope's stream, and a dead subscriber's queue evaporates.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, scope.Key(), eventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	if hooks.OnConnect != nil {
		if err := hooks.OnConnect(ctx); err != nil {
			return fmt.Errorf("connect hook failed: %w", err)
		}
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			// Handler failures are not fatal to the session; the store's
			// idempotency makes a skipped event safe to resync later.
			_ = handler(ctx, msg.Body)
		}
	}
}
