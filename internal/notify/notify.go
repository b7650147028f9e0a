// Package notify sends operator notifications about billing events.
//
// This package defines a Notifier interface with implementations for:
// - Telegram Bot API (production)
// - Noop (when no bot token is configured)
// - Async, which wraps another Notifier so callers never block on delivery
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Notifier delivers a single notification. Failures are reported to the
// caller but are never allowed to affect billing outcomes.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// =============================================================================
// Message Types
// =============================================================================

// Event identifies what happened.
type Event string

const (
	EventPaymentSucceeded  Event = "payment_succeeded"
	EventPaymentFailed     Event = "payment_failed"
	EventCouponRedeemed    Event = "coupon_redeemed"
	EventUpgradeScheduled  Event = "upgrade_scheduled"
	EventDowngraded        Event = "downgraded"
	EventBillingKeyIssued  Event = "billing_key_issued"
	EventPaymentStatusSync Event = "payment_status_changed"
	EventUserRegistered    Event = "user_registered"
	EventProjectCreated    Event = "project_created"
)

// Message is one notification.
type Message struct {
	Event  Event
	Title  string
	Fields []Field
}

// Field is a labelled value rendered on its own line.
type Field struct {
	Name  string
	Value string
}

// F builds a Field, formatting value with %v.
func F(name string, value any) Field {
	return Field{Name: name, Value: fmt.Sprint(value)}
}

// Text renders the message as plain text.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(eventIcon(m.Event))
	b.WriteString(" ")
	b.WriteString(m.Title)
	for _, f := range m.Fields {
		b.WriteString("\n")
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}

func eventIcon(e Event) string {
	switch e {
	case EventPaymentSucceeded, EventCouponRedeemed, EventBillingKeyIssued:
		return "✅"
	case EventPaymentFailed:
		return "❌"
	case EventDowngraded:
		return "⬇️"
	default:
		return "ℹ️"
	}
}

// =============================================================================
// Noop
// =============================================================================

// Noop discards every message.
type Noop struct{}

func (Noop) Notify(context.Context, Message) error { return nil }

// =============================================================================
// Async
// =============================================================================

const asyncSendTimeout = 10 * time.Second

// Async delivers messages on background goroutines and logs failures.
type Async struct {
	next   Notifier
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewAsync wraps next.
func NewAsync(next Notifier, logger *slog.Logger) *Async {
	return &Async{next: next, logger: logger}
}

// Notify returns immediately. The request context is not used for delivery
// since it usually ends before the send completes.
func (a *Async) Notify(_ context.Context, msg Message) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncSendTimeout)
		defer cancel()
		err := a.next.Notify(ctx, msg)
		metrics.NotificationSent(err)
		if err != nil {
			a.logger.Warn("notification delivery failed", "event", msg.Event, "error", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish. Used during shutdown.
func (a *Async) Wait() {
	a.wg.Wait()
}

var (
	_ Notifier = Noop{}
	_ Notifier = (*Async)(nil)
)
