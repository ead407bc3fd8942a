package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/pricebot/core/logger"
)

const (
	queryExchangeRate = `SELECT exchange_rate FROM bot_settings WHERE id = 1`

	querySetExchangeRate = `INSERT INTO bot_settings (id, exchange_rate) VALUES (1, $1)
ON CONFLICT (id) DO UPDATE SET exchange_rate = EXCLUDED.exchange_rate`

	queryRegisterUser = `INSERT INTO bot_users (user_id, username, first_seen) VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING`

	queryIncrementCalculations = `INSERT INTO bot_settings (id, total_calculations) VALUES (1, 1)
ON CONFLICT (id) DO UPDATE SET total_calculations = bot_settings.total_calculations + 1`

	queryStatistics = `SELECT
	COALESCE((SELECT total_calculations FROM bot_settings WHERE id = 1), 0) AS total_calculations,
	(SELECT count(*) FROM bot_users) AS total_users`

	queryUsers = `SELECT user_id, COALESCE(username, '') AS username, first_seen FROM bot_users ORDER BY seq`
)

type userRow struct {
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	FirstSeen time.Time `db:"first_seen"`
}

// PostgresStore keeps records in the bot_settings and bot_users tables.
type PostgresStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewPostgresStore wraps an open pool. The schema comes from the migrations directory.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) fail(ctx context.Context, op string, err error) error {
	logger.Error(ctx, "store", "store.query",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	return fmt.Errorf("store: %s: %w", op, err)
}

func (s *PostgresStore) ExchangeRate(ctx context.Context) (float64, error) {
	var rate sql.NullFloat64
	err := s.db.GetContext(ctx, &rate, queryExchangeRate)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultExchangeRate, nil
	}
	if err != nil {
		return 0, s.fail(ctx, "exchange_rate", err)
	}
	if !rate.Valid {
		return 0, &CorruptionError{Source: "bot_settings", Reason: "null exchange_rate"}
	}
	if err := ValidateRate(rate.Float64); err != nil {
		return 0, &CorruptionError{Source: "bot_settings", Reason: "invalid exchange_rate", Err: err}
	}
	return rate.Float64, nil
}

func (s *PostgresStore) SetExchangeRate(ctx context.Context, rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, querySetExchangeRate, rate); err != nil {
		return s.fail(ctx, "set_exchange_rate", err)
	}
	logger.Info(ctx, "store", "store.rate_changed",
		slog.String("status", "ok"),
		slog.Float64("rate", rate),
	)
	return nil
}

func (s *PostgresStore) RegisterUser(ctx context.Context, id int64, name string) error {
	username := sql.NullString{String: name, Valid: name != ""}
	res, err := s.db.ExecContext(ctx, queryRegisterUser, id, username, s.now())
	if err != nil {
		return s.fail(ctx, "register_user", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.Info(ctx, "store", "store.user_registered",
			slog.String("status", "ok"),
			slog.Int64("user_id", id),
		)
	}
	return nil
}

func (s *PostgresStore) IncrementCalculations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, queryIncrementCalculations); err != nil {
		return s.fail(ctx, "increment_calculations", err)
	}
	return nil
}

func (s *PostgresStore) Statistics(ctx context.Context) (Statistics, error) {
	var st Statistics
	if err := s.db.GetContext(ctx, &st, queryStatistics); err != nil {
		return Statistics{}, s.fail(ctx, "statistics", err)
	}
	return st, nil
}

func (s *PostgresStore) Users(ctx context.Context) ([]UserRecord, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, queryUsers); err != nil {
		return nil, s.fail(ctx, "users", err)
	}
	out := make([]UserRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, UserRecord{ID: r.UserID, DisplayName: r.Username, FirstSeen: r.FirstSeen})
	}
	return out, nil
}

var (
	_ RecordStore = (*FileStore)(nil)
	_ RecordStore = (*PostgresStore)(nil)
)
