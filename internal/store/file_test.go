package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/pricebot/core/config"
)

func newTestFileStore(t *testing.T, opts ...FileOption) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data.json"), opts...)
	require.NoError(t, err)
	return s
}

func writeDoc(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFileStoreCreatesDefaultDocument(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 12.5, raw["exchange_rate"])
	assert.Equal(t, []any{}, raw["users"])

	rate, err := s.ExchangeRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultExchangeRate, rate)

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, Statistics{}, st)
}

func TestFileStoreRecreatesDeletedDocument(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetExchangeRate(ctx, 13))
	require.NoError(t, os.Remove(s.Path()))

	rate, err := s.ExchangeRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultExchangeRate, rate)
	assert.FileExists(t, s.Path())
}

func TestFileStoreRegisterUserIsIdempotent(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.Local)
	s := newTestFileStore(t, WithClock(func() time.Time { return at }))
	ctx := context.Background()

	require.NoError(t, s.RegisterUser(ctx, 7, "alice"))
	require.NoError(t, s.RegisterUser(ctx, 7, "renamed"))
	require.NoError(t, s.RegisterUser(ctx, 8, ""))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(7), users[0].ID)
	assert.Equal(t, "alice", users[0].DisplayName)
	assert.True(t, at.Equal(users[0].FirstSeen))
	assert.Equal(t, int64(8), users[1].ID)
	assert.Empty(t, users[1].DisplayName)

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TotalUsers)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"username": null`)
	assert.Contains(t, string(data), `"first_seen": "2024-05-01 10:00:00.123456"`)
}

func TestFileStoreIncrementCalculations(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.IncrementCalculations(ctx))
	}
	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalCalculations)
}

func TestFileStoreSetExchangeRate(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetExchangeRate(ctx, 13.2))
	for _, bad := range []float64{0, -1} {
		err := s.SetExchangeRate(ctx, bad)
		assert.ErrorIs(t, err, ErrInvalidRate)
	}

	rate, err := s.ExchangeRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 13.2, rate)
}

func TestFileStoreMissingRateDefaults(t *testing.T) {
	s := newTestFileStore(t)
	writeDoc(t, s.Path(), `{"users": [], "statistics": {"total_calculations": 4, "total_users": 0}}`)

	rate, err := s.ExchangeRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultExchangeRate, rate)
}

func TestFileStoreKeepsUnknownKeys(t *testing.T) {
	s := newTestFileStore(t)
	writeDoc(t, s.Path(), `{
    "notes": "keep me",
    "exchange_rate": 13,
    "users": [],
    "statistics": {"total_calculations": 1, "total_users": 0},
    "extra": {"a": [1, 2], "b": "<&>"}
}`)
	ctx := context.Background()
	require.NoError(t, s.IncrementCalculations(ctx))
	require.NoError(t, s.RegisterUser(ctx, 5, "bob"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "keep me", raw["notes"])
	assert.Equal(t, map[string]any{"a": []any{1.0, 2.0}, "b": "<&>"}, raw["extra"])
	assert.Equal(t, 13.0, raw["exchange_rate"])
	assert.Contains(t, string(data), `"b": "<&>"`)

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, Statistics{TotalCalculations: 2, TotalUsers: 1}, st)
}

func TestFileStoreAcceptsLegacyTimestamps(t *testing.T) {
	s := newTestFileStore(t)
	writeDoc(t, s.Path(), `{
    "exchange_rate": 12.6,
    "users": [
        {"user_id": 1, "username": "a", "first_seen": "2024-01-02 03:04:05.678901"},
        {"user_id": 2, "username": null, "first_seen": "2024-01-02T03:04:05Z"}
    ],
    "statistics": {"total_calculations": 9, "total_users": 2}
}`)

	users, err := s.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, 2024, users[1].FirstSeen.Year())
}

func TestFileStoreDetectsCorruption(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"users": [`},
		{name: "null rate", body: `{"exchange_rate": null, "users": [], "statistics": {}}`},
		{name: "string rate", body: `{"exchange_rate": "12", "users": [], "statistics": {}}`},
		{name: "negative rate", body: `{"exchange_rate": -3, "users": [], "statistics": {}}`},
		{name: "negative calculations", body: `{"users": [], "statistics": {"total_calculations": -1}}`},
		{
			name: "user count mismatch",
			body: `{"users": [{"user_id": 1, "username": "a", "first_seen": "2024-01-02 03:04:05"}], "statistics": {"total_users": 3}}`,
		},
		{
			name: "duplicate user",
			body: `{"users": [{"user_id": 1, "first_seen": "2024-01-02 03:04:05"}, {"user_id": 1, "first_seen": "2024-01-02 03:04:05"}], "statistics": {"total_users": 2}}`,
		},
		{
			name: "bad timestamp",
			body: `{"users": [{"user_id": 1, "first_seen": "yesterday"}], "statistics": {"total_users": 1}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestFileStore(t)
			writeDoc(t, s.Path(), tt.body)

			_, err := s.Statistics(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrCorrupted))

			var cerr *CorruptionError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "STORE_CORRUPTED", cerr.Code())

			// writes must not clobber the damaged document
			require.Error(t, s.IncrementCalculations(context.Background()))
			data, err := os.ReadFile(s.Path())
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(data))
		})
	}
}

func TestNewFileStoreFailsOnCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	writeDoc(t, path, "not json")
	_, err := NewFileStore(path)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestFileStoreConcurrentRegistration(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			assert.NoError(t, s.RegisterUser(ctx, id%10, "u"))
			assert.NoError(t, s.IncrementCalculations(ctx))
		}(int64(i))
	}
	wg.Wait()

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.TotalUsers)
	assert.Equal(t, int64(20), st.TotalCalculations)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	require.NoError(t, s.RegisterUser(ctx, 1, "a"))
	require.NoError(t, s.SetExchangeRate(ctx, 14))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestOpenSelectsDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.json")
	s, err := Open(coreconfig.StorageConfig{Driver: coreconfig.StorageFile, Path: path}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	assert.FileExists(t, path)

	_, err = Open(coreconfig.StorageConfig{Driver: coreconfig.StoragePostgres}, nil)
	assert.Error(t, err)

	_, err = Open(coreconfig.StorageConfig{Driver: "redis"}, nil)
	assert.Error(t, err)
}
