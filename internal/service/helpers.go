package service

import (
	"context"
	"log/slog"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// clampPage applies the default and maximum page size.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// sendNotification dispatches msg and only logs failures; notifications
// never change the outcome of the operation that triggered them.
func sendNotification(ctx context.Context, n notify.Notifier, logger *slog.Logger, msg notify.Message) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		logger.Warn("failed to send notification", "event", msg.Event, "error", err)
	}
}
