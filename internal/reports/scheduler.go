// Package reports sends the scheduled statistics summary to operators.
package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/m3rciful/pricebot/core/logger"
	"github.com/m3rciful/pricebot/internal/session"
	"github.com/m3rciful/pricebot/internal/store"
)

const textFormat = "📊 **Ежедневный отчет:**\n\n" +
	"• Всего пользователей: %d\n" +
	"• Всего расчетов: %d\n" +
	"• Текущий курс: %s ₽/¥"

// Queue accepts fire-and-forget outbound calls.
type Queue interface {
	Enqueue(ctx context.Context, action, endpoint string, run func() error) error
}

// SendFunc performs one delivery of a report text.
type SendFunc func(userID int64, text string) error

// Options configure a Scheduler.
type Options struct {
	// Spec is a standard five-field cron expression.
	Spec     string
	Location *time.Location
	Store    store.RecordStore
	Admins   []int64
	Queue    Queue
	Send     SendFunc
}

// Scheduler runs the report job on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc
}

// New validates the schedule and registers the job. Call Start to run it.
func New(opts Options) (*Scheduler, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New("reports: store is required")
	case opts.Queue == nil || opts.Send == nil:
		return nil, errors.New("reports: queue and send are required")
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{})),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := s.cron.AddFunc(opts.Spec, s.fire); err != nil {
		cancel()
		return nil, fmt.Errorf("reports: invalid schedule %q: %w", opts.Spec, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Reports.Info("reports scheduled",
		slog.String("event", "reports.start"),
		slog.String("status", "ok"),
		slog.String("cron", s.opts.Spec),
		slog.Int("recipients", len(s.opts.Admins)),
		slog.Time("next", s.Next()),
	)
}

// Stop waits for a running job and cancels the scheduler context.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.cancel()
	logger.Reports.Info("reports stopped", slog.String("event", "reports.stop"))
}

// Next returns the next activation, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) fire() {
	if err := s.Run(s.ctx); err != nil {
		logger.Reports.Error("report failed",
			slog.String("event", "reports.run"),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// Run builds the report and queues one delivery per operator.
func (s *Scheduler) Run(ctx context.Context) error {
	if len(s.opts.Admins) == 0 {
		return nil
	}
	st, err := s.opts.Store.Statistics(ctx)
	if err != nil {
		return err
	}
	rate, err := s.opts.Store.ExchangeRate(ctx)
	if err != nil {
		return err
	}
	text := Text(st, rate)

	queued := 0
	var errs []error
	for _, id := range s.opts.Admins {
		id := id
		err := s.opts.Queue.Enqueue(ctx, "report", "sendMessage", func() error {
			return s.opts.Send(id, text)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("queue report for %d: %w", id, err))
			continue
		}
		queued++
	}
	logger.Reports.Info("report queued",
		slog.String("event", "reports.run"),
		slog.String("status", "ok"),
		slog.Int("recipients", len(s.opts.Admins)),
		slog.Int("delivered", queued),
		slog.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}

// Text renders the report body in legacy Markdown.
func Text(st store.Statistics, rate float64) string {
	return fmt.Sprintf(textFormat, st.TotalUsers, st.TotalCalculations, session.FormatNumber(rate))
}

// cronLogger routes cron's own diagnostics into the reports component.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Reports.Debug(msg, append([]any{slog.String("event", "reports.cron")}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Reports.Error(msg, append([]any{
		slog.String("event", "reports.cron"),
		slog.String("err", err.Error()),
	}, keysAndValues...)...)
}
