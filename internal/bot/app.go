// Package bot connects the session controller to Telegram.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	coreconfig "github.com/m3rciful/pricebot/core/config"
	"github.com/m3rciful/pricebot/core/logger"
	coretelegram "github.com/m3rciful/pricebot/core/telegram"
	tghelpers "github.com/m3rciful/pricebot/core/telegram/helpers"
	"github.com/m3rciful/pricebot/core/telegram/middleware"
	"github.com/m3rciful/pricebot/core/telegram/router"
	tgsender "github.com/m3rciful/pricebot/core/telegram/sender"
	"github.com/m3rciful/pricebot/core/telegram/state"
	"github.com/m3rciful/pricebot/internal/reports"
	"github.com/m3rciful/pricebot/internal/session"
	"github.com/m3rciful/pricebot/internal/store"

	tele "gopkg.in/telebot.v4"
)

const (
	failureNotice = "⚠️ Произошла ошибка. Попробуйте позже."
	limitedNotice = "⏳ Слишком много запросов. Подождите немного."
)

// Options configure an App.
type Options struct {
	Config *coreconfig.Config
	Bot    *tele.Bot
	Store  store.RecordStore
}

// App owns the Telegram side of the price bot.
type App struct {
	cfg        *coreconfig.Config
	bot        *tele.Bot
	api        botAPI
	isAdmin    func(int64) bool
	store      store.RecordStore
	dispatcher *tgsender.Dispatcher
	messenger  *Messenger
	gallery    *DiskGallery
	controller *session.Controller
	reports    *reports.Scheduler
}

// New builds the controller, menus and optional report schedule for opts.Bot.
func New(opts Options) (*App, error) {
	if opts.Bot == nil {
		return nil, errors.New("bot: telebot instance is required")
	}
	return newApp(opts, opts.Bot)
}

func newApp(opts Options, api botAPI) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("bot: config is required")
	}
	if opts.Store == nil {
		return nil, errors.New("bot: store is required")
	}
	cfg := opts.Config

	if err := EnsureDir(cfg.Content.ImagesDir); err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		bot:        opts.Bot,
		api:        api,
		isAdmin:    middleware.AdminSet(cfg.Telegram.AdminIDs),
		store:      opts.Store,
		dispatcher: tgsender.NewDispatcher(coretelegram.DispatcherOptions(cfg.Sender)),
	}
	labels := session.DefaultLabels()
	a.messenger = NewMessenger(api, a.dispatcher, NewKeyboards(labels))
	a.gallery = NewDiskGallery(cfg.Content.ImagesDir, cfg.Content.InstructionFiles)

	ctrl, err := session.New(session.Options{
		Store:      opts.Store,
		Messenger:  a.messenger,
		Gallery:    a.gallery,
		Sessions:   state.NewTable(session.StateNone),
		Privileged: a.isAdmin,
		Labels:     &labels,
	})
	if err != nil {
		a.dispatcher.Close()
		return nil, err
	}
	a.controller = ctrl

	if spec := strings.TrimSpace(cfg.Reports.DailyCron); spec != "" {
		a.reports, err = reports.New(reports.Options{
			Spec:   spec,
			Store:  opts.Store,
			Admins: cfg.Telegram.AdminIDs,
			Queue:  a.dispatcher,
			Send:   a.sendReport,
		})
		if err != nil {
			a.dispatcher.Close()
			return nil, err
		}
	}
	return a, nil
}

// TelegramRunOptions registers /start, /admin and the text route on the core runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	reg.RegisterCommand("/start", coretelegram.Command{
		Handler:     a.handleStart,
		Description: "Главное меню",
	})
	reg.RegisterCommand("/admin", coretelegram.Command{
		Handler:     a.handleAdmin,
		Description: "Админ-панель",
		AdminOnly:   true,
	})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		IsAdmin:       a.isAdmin,
		OnAdminReject: a.handleAdmin,
		OnError:       a.notifyFailure,
	})
	routes = append(routes, router.TextRoutes(router.TextOptions{
		Handler: a.handleText,
		OnError: a.notifyFailure,
	})...)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Bot:         a.bot,
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, a.notifyLimited),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	if a.reports != nil {
		a.reports.Start()
	}
	logger.Info(ctx, "app", "app.content",
		slog.String("path", a.cfg.Content.ImagesDir),
		slog.Int("photos", len(a.gallery.InstructionPhotos())),
	)
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	if a.reports != nil {
		a.reports.Stop()
	}
	logger.Info(ctx, "session", "session.shutdown",
		slog.Int("active", a.controller.Active()),
	)
	return nil
}

func eventFrom(c tele.Context) session.Event {
	ev := session.Event{Text: c.Text()}
	if u := c.Sender(); u != nil {
		ev.UserID = u.ID
		ev.DisplayName = u.Username
		ev.FirstName = u.FirstName
	}
	return ev
}

func (a *App) handleStart(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	return a.controller.Start(tghelpers.BuildContext(c), eventFrom(c))
}

func (a *App) handleAdmin(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	return a.controller.OpenAdminPanel(tghelpers.BuildContext(c), eventFrom(c))
}

// handleText skips unknown slash commands; registered ones have their own routes.
func (a *App) handleText(c tele.Context) error {
	if c.Sender() == nil || strings.HasPrefix(c.Text(), "/") {
		return nil
	}
	return a.controller.Handle(tghelpers.BuildContext(c), eventFrom(c))
}

// notifyFailure tells the user something went wrong. The error itself is already in the handler summary.
func (a *App) notifyFailure(c tele.Context, _ error) {
	userID := tghelpers.SenderID(c)
	if userID == 0 {
		return
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.messenger.SendText(ctx, userID, session.Message{Text: failureNotice}); err != nil {
		logger.Warn(ctx, "tg", "tg.failure_notice",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

func (a *App) notifyLimited(c tele.Context) error {
	userID := tghelpers.SenderID(c)
	if userID == 0 {
		return nil
	}
	return a.messenger.SendText(tghelpers.BuildContext(c), userID, session.Message{Text: limitedNotice})
}

func (a *App) sendReport(userID int64, text string) error {
	_, err := a.api.Send(tele.ChatID(userID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}
