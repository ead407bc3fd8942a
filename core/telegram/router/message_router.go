package router

import (
	"time"

	tg "github.com/m3rciful/pricebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls how plain text updates are routed.
type TextOptions struct {
	// Handler receives every non-command text message.
	Handler tele.HandlerFunc
	// OnError handles a failed update, e.g. sends a generic notice. The error is then
	// considered handled and not passed back to telebot.
	OnError func(tele.Context, error)
}

// TextRoutes builds the OnText route.
func TextRoutes(opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		if opts.Handler == nil {
			logHandlerSummary(c, "text", time.Now(), "skip", nil)
			return nil
		}
		err := handleWithSummary(c, "text", func() error { return opts.Handler(c) })
		return reportError(c, err, opts.OnError)
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}

func reportError(c tele.Context, err error, onError func(tele.Context, error)) error {
	if err == nil || onError == nil {
		return err
	}
	onError(c, err)
	return nil
}
