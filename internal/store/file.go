package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/pricebot/core/logger"
)

// FirstSeenLayout is how first_seen timestamps are written.
const FirstSeenLayout = "2006-01-02 15:04:05.000000"

// readLayouts lists accepted first_seen formats. Fractional seconds parse under the first one too.
var readLayouts = []string{"2006-01-02 15:04:05", time.RFC3339Nano}

// managedKeys are the top-level fields owned by the store, in write order.
var managedKeys = []string{"exchange_rate", "users", "statistics"}

type documentFields struct {
	ExchangeRate json.RawMessage `json:"exchange_rate,omitempty"`
	Users        []userEntry     `json:"users"`
	Statistics   statsEntry      `json:"statistics"`
}

// document is the whole JSON file. Top-level keys the store does not manage are kept in extra
// and written back unchanged.
type document struct {
	documentFields
	extra map[string]json.RawMessage
}

type userEntry struct {
	UserID    int64   `json:"user_id"`
	Username  *string `json:"username"`
	FirstSeen string  `json:"first_seen"`

	seen time.Time
}

type statsEntry struct {
	TotalCalculations int64 `json:"total_calculations"`
	TotalUsers        int64 `json:"total_users"`
}

func defaultDocument() *document {
	rate, _ := json.Marshal(DefaultExchangeRate)
	return &document{documentFields: documentFields{ExchangeRate: rate, Users: []userEntry{}}}
}

func isManaged(key string) bool {
	for _, k := range managedKeys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

func (d *document) UnmarshalJSON(data []byte) error {
	var fields documentFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for key := range all {
		if isManaged(key) {
			delete(all, key)
		}
	}
	*d = document{documentFields: fields, extra: all}
	return nil
}

// MarshalJSON writes the managed fields first, then the extra keys in sorted order.
func (d document) MarshalJSON() ([]byte, error) {
	users := d.Users
	if users == nil {
		users = []userEntry{}
	}
	values := map[string]any{"users": users, "statistics": d.Statistics}
	if len(d.ExchangeRate) > 0 {
		values["exchange_rate"] = d.ExchangeRate
	}
	keys := make([]string, 0, len(d.extra))
	for key := range d.extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	field := func(key string, v any) error {
		raw, err := encodeValue(v)
		if err != nil {
			return err
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		name, _ := encodeValue(key)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(raw)
		return nil
	}
	for _, key := range managedKeys {
		if v, ok := values[key]; ok {
			if err := field(key, v); err != nil {
				return nil, err
			}
		}
	}
	for _, key := range keys {
		if err := field(key, d.extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// FileStore keeps the whole state in one JSON document. Each operation reads the file,
// applies its change and atomically replaces the file while holding one mutex.
type FileStore struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// FileOption customizes a FileStore.
type FileOption func(*FileStore)

// WithClock overrides the clock used for first_seen.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) { s.now = now }
}

// NewFileStore opens the document at path, creating a default one when the file does not exist.
func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{path: path, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the document location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) corrupt(reason string, err error) error {
	cerr := &CorruptionError{Source: s.path, Reason: reason, Err: err}
	logger.Store.Error("store corrupted",
		slog.String("event", "store.corrupted"),
		slog.String("status", "fail"),
		slog.String("path", s.path),
		slog.String("cause", reason),
		slog.Any("err", err),
	)
	return cerr
}

// load reads and validates the document. Callers hold s.mu.
func (s *FileStore) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		doc := defaultDocument()
		if err := s.write(doc); err != nil {
			return nil, err
		}
		logger.Store.Info("store initialized",
			slog.String("event", "store.init"),
			slog.String("status", "ok"),
			slog.String("path", s.path),
		)
		return doc, nil
	}
	if err != nil {
		return nil, s.corrupt("unreadable", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, s.corrupt("invalid json", err)
	}
	if err := s.validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *FileStore) validate(doc *document) error {
	if _, err := doc.rate(); err != nil {
		return s.corrupt("invalid exchange_rate", err)
	}
	ids := make(map[int64]struct{}, len(doc.Users))
	for i := range doc.Users {
		u := &doc.Users[i]
		if _, dup := ids[u.UserID]; dup {
			return s.corrupt("duplicate user_id", fmt.Errorf("user %d", u.UserID))
		}
		ids[u.UserID] = struct{}{}
		t, err := parseFirstSeen(u.FirstSeen)
		if err != nil {
			return s.corrupt("invalid first_seen", err)
		}
		u.seen = t
	}
	st := doc.Statistics
	if st.TotalCalculations < 0 {
		return s.corrupt("negative total_calculations", nil)
	}
	if st.TotalUsers != int64(len(doc.Users)) {
		return s.corrupt("total_users mismatch", fmt.Errorf("total_users=%d users=%d", st.TotalUsers, len(doc.Users)))
	}
	return nil
}

func (d *document) rate() (float64, error) {
	if len(d.ExchangeRate) == 0 {
		return DefaultExchangeRate, nil
	}
	var rate float64
	if err := json.Unmarshal(d.ExchangeRate, &rate); err != nil {
		return 0, err
	}
	if bytes.Equal(bytes.TrimSpace(d.ExchangeRate), []byte("null")) {
		return 0, errors.New("null exchange_rate")
	}
	if err := ValidateRate(rate); err != nil {
		return 0, err
	}
	return rate, nil
}

func parseFirstSeen(v string) (time.Time, error) {
	var firstErr error
	for _, layout := range readLayouts {
		t, err := time.ParseInLocation(layout, v, time.Local)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// write replaces the document through a temp file and rename. Callers hold s.mu.
func (s *FileStore) write(doc *document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("store: encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("store: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("store: replace document: %w", err)
	}
	return nil
}

// update runs fn on a freshly loaded document and persists it when fn reports a change.
func (s *FileStore) update(fn func(*document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil || !changed {
		return err
	}
	return s.write(doc)
}

func (s *FileStore) read() (*document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// ExchangeRate returns the stored rate or DefaultExchangeRate when the field is absent.
func (s *FileStore) ExchangeRate(_ context.Context) (float64, error) {
	doc, err := s.read()
	if err != nil {
		return 0, err
	}
	return doc.rate()
}

// SetExchangeRate validates and stores a new rate.
func (s *FileStore) SetExchangeRate(ctx context.Context, rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	err := s.update(func(doc *document) (bool, error) {
		raw, err := json.Marshal(rate)
		if err != nil {
			return false, err
		}
		doc.ExchangeRate = raw
		return true, nil
	})
	if err == nil {
		logger.Info(ctx, "store", "store.rate_changed",
			slog.String("status", "ok"),
			slog.Float64("rate", rate),
		)
	}
	return err
}

// RegisterUser appends the user unless the id is already known.
func (s *FileStore) RegisterUser(ctx context.Context, id int64, name string) error {
	added := false
	err := s.update(func(doc *document) (bool, error) {
		for _, u := range doc.Users {
			if u.UserID == id {
				return false, nil
			}
		}
		now := s.now()
		entry := userEntry{UserID: id, FirstSeen: now.Format(FirstSeenLayout), seen: now}
		if name != "" {
			entry.Username = &name
		}
		doc.Users = append(doc.Users, entry)
		doc.Statistics.TotalUsers = int64(len(doc.Users))
		added = true
		return true, nil
	})
	if err == nil && added {
		logger.Info(ctx, "store", "store.user_registered",
			slog.String("status", "ok"),
			slog.Int64("user_id", id),
		)
	}
	return err
}

// IncrementCalculations adds one to total_calculations.
func (s *FileStore) IncrementCalculations(_ context.Context) error {
	return s.update(func(doc *document) (bool, error) {
		doc.Statistics.TotalCalculations++
		return true, nil
	})
}

// Statistics returns the stored counters.
func (s *FileStore) Statistics(_ context.Context) (Statistics, error) {
	doc, err := s.read()
	if err != nil {
		return Statistics{}, err
	}
	return Statistics{
		TotalCalculations: doc.Statistics.TotalCalculations,
		TotalUsers:        doc.Statistics.TotalUsers,
	}, nil
}

// Users returns a copy of the roster in registration order.
func (s *FileStore) Users(_ context.Context) ([]UserRecord, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]UserRecord, 0, len(doc.Users))
	for _, u := range doc.Users {
		rec := UserRecord{ID: u.UserID, FirstSeen: u.seen}
		if u.Username != nil {
			rec.DisplayName = *u.Username
		}
		out = append(out, rec)
	}
	return out, nil
}
