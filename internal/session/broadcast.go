package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/pricebot/core/logger"
	"github.com/m3rciful/pricebot/internal/store"
)

// BroadcastResult counts deliveries of one broadcast.
type BroadcastResult struct {
	ID        string
	Delivered int
	Failed    int
}

// broadcast sends text to every user in order. A failed delivery is counted and skipped.
func (c *Controller) broadcast(ctx context.Context, text string, users []store.UserRecord) BroadcastResult {
	res := BroadcastResult{ID: c.newID()}
	start := time.Now()
	logger.Info(ctx, "broadcast", "broadcast.started",
		slog.String("broadcast_id", res.ID),
		slog.Int("recipients", len(users)),
	)

	for _, u := range users {
		if err := c.messenger.SendText(ctx, u.ID, Message{Text: text}); err != nil {
			res.Failed++
			logger.Warn(ctx, "broadcast", "broadcast.delivery",
				slog.String("status", "fail"),
				slog.String("broadcast_id", res.ID),
				slog.Int64("recipient", u.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		res.Delivered++
	}

	logger.Info(ctx, "broadcast", "broadcast.finished",
		slog.String("status", "ok"),
		slog.String("broadcast_id", res.ID),
		slog.Int("recipients", len(users)),
		slog.Int("delivered", res.Delivered),
		slog.Int("failed", res.Failed),
		slog.Duration("duration", logger.Took(start)),
	)
	return res
}
