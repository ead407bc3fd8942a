// Package session runs the per-user conversation of the price bot.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/m3rciful/pricebot/core/logger"
	"github.com/m3rciful/pricebot/core/telegram/state"
	"github.com/m3rciful/pricebot/internal/store"
)

// Menu selects the reply keyboard shown with a message.
type Menu int

const (
	// MenuKeep leaves the user's current keyboard in place.
	MenuKeep Menu = iota
	MenuMain
	// MenuMainAdmin is the main menu with the admin panel row.
	MenuMainAdmin
	MenuAdmin
	MenuCancel
)

// Message is one outbound text.
type Message struct {
	Text     string
	Menu     Menu
	Markdown bool
}

// Messenger delivers replies. Errors are per recipient and recoverable.
type Messenger interface {
	SendText(ctx context.Context, userID int64, msg Message) error
	// SendPhotos sends an album; caption goes on the first photo.
	SendPhotos(ctx context.Context, userID int64, photos []string, caption string) error
}

// Gallery lists the instruction photos available on disk.
type Gallery interface {
	InstructionPhotos() []string
}

// AccessChecker reports whether a user is an operator.
type AccessChecker func(userID int64) bool

// Event is an inbound text from a user.
type Event struct {
	UserID      int64
	DisplayName string
	FirstName   string
	Text        string
}

// Options configure a Controller. Store and Messenger are required.
type Options struct {
	Store      store.RecordStore
	Messenger  Messenger
	Gallery    Gallery
	Sessions   *state.Table[State]
	Privileged AccessChecker
	Labels     *Labels
	Texts      *Texts
	NewID      func() string
}

// Controller applies user input to the session table and the record store.
type Controller struct {
	store      store.RecordStore
	messenger  Messenger
	gallery    Gallery
	sessions   *state.Table[State]
	privileged AccessChecker
	classifier Classifier
	texts      Texts
	newID      func() string
}

// New validates opts and fills defaults for the optional fields.
func New(opts Options) (*Controller, error) {
	if opts.Store == nil {
		return nil, errors.New("session: store is required")
	}
	if opts.Messenger == nil {
		return nil, errors.New("session: messenger is required")
	}
	c := &Controller{
		store:      opts.Store,
		messenger:  opts.Messenger,
		gallery:    opts.Gallery,
		sessions:   opts.Sessions,
		privileged: opts.Privileged,
		newID:      opts.NewID,
	}
	if c.sessions == nil {
		c.sessions = state.NewTable(StateNone)
	}
	if c.privileged == nil {
		c.privileged = func(int64) bool { return false }
	}
	if c.newID == nil {
		c.newID = func() string { return uuid.NewString() }
	}
	labels := DefaultLabels()
	if opts.Labels != nil {
		labels = *opts.Labels
	}
	c.classifier = NewClassifier(labels)
	c.texts = DefaultTexts()
	if opts.Texts != nil {
		c.texts = *opts.Texts
	}
	return c, nil
}

// State returns the user's current step.
func (c *Controller) State(userID int64) State {
	return c.sessions.Get(userID)
}

// Active returns how many users are in the middle of an input step.
func (c *Controller) Active() int {
	return c.sessions.Active()
}

type inputHandler func(c *Controller, ctx context.Context, ev Event, cmd Command) error

type commandRoute struct {
	privileged bool
	run        func(c *Controller, ctx context.Context, ev Event) error
}

var inputHandlers = map[State]inputHandler{
	StateAwaitingPrice:        (*Controller).handlePrice,
	StateAwaitingExchangeRate: (*Controller).handleRate,
	StateAwaitingBroadcast:    (*Controller).handleBroadcast,
}

// Unprivileged callers of privileged routes fall through to the ignored path.
var idleRoutes = map[Command]commandRoute{
	CommandCalculate:    {run: (*Controller).promptPrice},
	CommandInstructions: {run: (*Controller).sendInstructions},
	CommandAdmin:        {privileged: true, run: (*Controller).showAdminPanel},
	CommandBack:         {run: (*Controller).backToMain},
	CommandCancel:       {run: (*Controller).cancelIdle},
	CommandStatistics:   {privileged: true, run: (*Controller).showStatistics},
	CommandChangeRate:   {privileged: true, run: (*Controller).promptRate},
	CommandBroadcast:    {privileged: true, run: (*Controller).promptBroadcast},
}

// Handle processes one text event. Validation problems are answered in chat;
// only store and delivery failures are returned.
func (c *Controller) Handle(ctx context.Context, ev Event) error {
	unlock := c.sessions.Lock(ev.UserID)
	defer unlock()

	if err := c.store.RegisterUser(ctx, ev.UserID, ev.DisplayName); err != nil {
		return err
	}

	cmd := c.classifier.Classify(ev.Text)
	if h, ok := inputHandlers[c.sessions.Get(ev.UserID)]; ok {
		return h(c, ctx, ev, cmd)
	}

	route, ok := idleRoutes[cmd]
	if !ok || (route.privileged && !c.privileged(ev.UserID)) {
		logger.Debug(ctx, "session", "session.ignored",
			slog.String("command", cmd.String()),
			slog.String("outcome", "ignored"),
		)
		return nil
	}
	return route.run(c, ctx, ev)
}

// Start resets the conversation, registers the user and greets them.
func (c *Controller) Start(ctx context.Context, ev Event) error {
	unlock := c.sessions.Lock(ev.UserID)
	defer unlock()

	c.transition(ctx, ev.UserID, StateNone, "start")
	if err := c.store.RegisterUser(ctx, ev.UserID, ev.DisplayName); err != nil {
		return err
	}
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.greeting(ev.FirstName), Menu: c.mainMenu(ev.UserID)})
}

// OpenAdminPanel is the direct entry to the admin menu. Non-operators get an explicit refusal.
func (c *Controller) OpenAdminPanel(ctx context.Context, ev Event) error {
	unlock := c.sessions.Lock(ev.UserID)
	defer unlock()

	if !c.privileged(ev.UserID) {
		logger.Info(ctx, "session", "session.admin_denied", slog.String("status", "denied"))
		return c.reply(ctx, ev.UserID, Message{Text: c.texts.AccessDenied})
	}
	return c.showAdminPanel(ctx, ev)
}

func (c *Controller) transition(ctx context.Context, userID int64, next State, command string) {
	prev := c.sessions.Get(userID)
	c.sessions.Set(userID, next)
	if prev == next {
		return
	}
	logger.Debug(ctx, "session", "session.transition",
		slog.String("command", command),
		slog.String("state", prev.String()),
		slog.String("next_state", next.String()),
	)
}

func (c *Controller) reply(ctx context.Context, userID int64, msg Message) error {
	if err := c.messenger.SendText(ctx, userID, msg); err != nil {
		return fmt.Errorf("session: reply: %w", err)
	}
	return nil
}

func (c *Controller) mainMenu(userID int64) Menu {
	if c.privileged(userID) {
		return MenuMainAdmin
	}
	return MenuMain
}

func (c *Controller) promptPrice(ctx context.Context, ev Event) error {
	c.transition(ctx, ev.UserID, StateAwaitingPrice, CommandCalculate.String())
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.PricePrompt, Menu: MenuCancel})
}

func (c *Controller) sendInstructions(ctx context.Context, ev Event) error {
	var photos []string
	if c.gallery != nil {
		photos = c.gallery.InstructionPhotos()
	}
	if len(photos) == 0 {
		return c.reply(ctx, ev.UserID, Message{Text: c.texts.Instruction, Menu: c.mainMenu(ev.UserID), Markdown: true})
	}
	if err := c.messenger.SendPhotos(ctx, ev.UserID, photos, c.texts.Instruction); err != nil {
		return fmt.Errorf("session: instruction album: %w", err)
	}
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.ChooseAction, Menu: c.mainMenu(ev.UserID)})
}

func (c *Controller) showAdminPanel(ctx context.Context, ev Event) error {
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.AdminPanel, Menu: MenuAdmin, Markdown: true})
}

func (c *Controller) backToMain(ctx context.Context, ev Event) error {
	c.transition(ctx, ev.UserID, StateNone, CommandBack.String())
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.MainMenu, Menu: c.mainMenu(ev.UserID)})
}

func (c *Controller) cancelIdle(ctx context.Context, ev Event) error {
	menu := MenuMain
	if c.privileged(ev.UserID) {
		menu = MenuAdmin
	}
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.Cancelled, Menu: menu})
}

func (c *Controller) showStatistics(ctx context.Context, ev Event) error {
	st, err := c.store.Statistics(ctx)
	if err != nil {
		return err
	}
	rate, err := c.store.ExchangeRate(ctx)
	if err != nil {
		return err
	}
	return c.reply(ctx, ev.UserID, Message{
		Text:     c.texts.statistics(st.TotalUsers, st.TotalCalculations, rate),
		Menu:     MenuAdmin,
		Markdown: true,
	})
}

func (c *Controller) promptRate(ctx context.Context, ev Event) error {
	rate, err := c.store.ExchangeRate(ctx)
	if err != nil {
		return err
	}
	c.transition(ctx, ev.UserID, StateAwaitingExchangeRate, CommandChangeRate.String())
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.ratePrompt(rate), Menu: MenuCancel})
}

func (c *Controller) promptBroadcast(ctx context.Context, ev Event) error {
	c.transition(ctx, ev.UserID, StateAwaitingBroadcast, CommandBroadcast.String())
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.BroadcastPrompt, Menu: MenuCancel})
}

func (c *Controller) cancelInput(ctx context.Context, ev Event, menu Menu) error {
	c.transition(ctx, ev.UserID, StateNone, CommandCancel.String())
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.Cancelled, Menu: menu})
}

func (c *Controller) handlePrice(ctx context.Context, ev Event, cmd Command) error {
	if cmd == CommandCancel {
		return c.cancelInput(ctx, ev, c.mainMenu(ev.UserID))
	}
	price, err := ParseNumber(ev.Text)
	if err == nil && price < 0 {
		err = fmt.Errorf("%w: negative price", ErrInvalidNumber)
	}
	if err != nil {
		return c.rejectPrice(ctx, ev, err)
	}

	rate, err := c.store.ExchangeRate(ctx)
	if err != nil {
		return err
	}
	total := ComputeResult(price, rate)
	if math.IsInf(total, 0) {
		return c.rejectPrice(ctx, ev, fmt.Errorf("%w: total overflows", ErrInvalidNumber))
	}
	if err := c.store.IncrementCalculations(ctx); err != nil {
		return err
	}
	c.transition(ctx, ev.UserID, StateNone, "price")
	return c.reply(ctx, ev.UserID, Message{
		Text:     c.texts.result(price, rate, total),
		Menu:     c.mainMenu(ev.UserID),
		Markdown: true,
	})
}

func (c *Controller) rejectPrice(ctx context.Context, ev Event, err error) error {
	logger.Debug(ctx, "session", "session.invalid_input",
		slog.String("state", StateAwaitingPrice.String()),
		slog.String("err", err.Error()),
	)
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.InvalidPrice, Menu: MenuCancel})
}

func (c *Controller) handleRate(ctx context.Context, ev Event, cmd Command) error {
	if cmd == CommandCancel {
		return c.cancelInput(ctx, ev, MenuAdmin)
	}
	rate, err := ParseNumber(ev.Text)
	if err == nil {
		err = c.store.SetExchangeRate(ctx, rate)
	}
	switch {
	case errors.Is(err, ErrInvalidNumber), errors.Is(err, store.ErrInvalidRate):
		logger.Debug(ctx, "session", "session.invalid_input",
			slog.String("state", StateAwaitingExchangeRate.String()),
			slog.String("err", err.Error()),
		)
		return c.reply(ctx, ev.UserID, Message{Text: c.texts.InvalidRate, Menu: MenuCancel})
	case err != nil:
		return err
	}
	c.transition(ctx, ev.UserID, StateNone, "rate")
	return c.reply(ctx, ev.UserID, Message{Text: c.texts.rateChanged(rate), Menu: MenuAdmin})
}

func (c *Controller) handleBroadcast(ctx context.Context, ev Event, cmd Command) error {
	if cmd == CommandCancel {
		return c.cancelInput(ctx, ev, MenuAdmin)
	}
	users, err := c.store.Users(ctx)
	if err != nil {
		return err
	}
	if err := c.reply(ctx, ev.UserID, Message{Text: c.texts.BroadcastStarted}); err != nil {
		return err
	}

	res := c.broadcast(ctx, ev.Text, users)
	c.transition(ctx, ev.UserID, StateNone, "broadcast")
	return c.reply(ctx, ev.UserID, Message{
		Text:     c.texts.broadcastSummary(res.Delivered, res.Failed),
		Menu:     MenuAdmin,
		Markdown: true,
	})
}
