package router

import (
	"log/slog"

	"github.com/m3rciful/pricebot/core/logger"
	tg "github.com/m3rciful/pricebot/core/telegram"
	"github.com/m3rciful/pricebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	IsAdmin       func(userID int64) bool
	OnAdminReject tele.HandlerFunc
	// OnError handles a failed command the same way TextOptions.OnError does.
	OnError func(tele.Context, error)
}

// CommandRoutes turns registry entries into routes with summary logging and admin checks.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}
	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		IsAdmin:  opts.IsAdmin,
		OnReject: opts.OnAdminReject,
	})

	routes := make([]tg.Route, 0, len(reg.Commands()))
	admin := 0
	for name, def := range reg.Commands() {
		h := def.Handler
		if def.AdminOnly {
			h = adminOnly(h)
			admin++
		}
		handlerName := "cmd." + normalizeHandlerName(name)
		wrapped := func(c tele.Context) error {
			err := handleWithSummary(c, handlerName, func() error { return h(c) })
			return reportError(c, err, opts.OnError)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: wrapped})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "tg.wire.commands"),
		slog.String("status", "ok"),
		slog.Int("commands", len(routes)),
		slog.Int("admin_commands", admin),
	)
	return routes
}
