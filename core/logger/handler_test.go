package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture runs fn against a fresh handler and returns the single rendered line.
func capture(t *testing.T, format logFormat, fn func(log *slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{level: slog.LevelInfo, writer: aw, format: format})
	fn(slog.New(h))
	require.NoError(t, aw.Flush())
	require.NoError(t, aw.Close())
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	line := capture(t, formatKV, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "session"), slog.LevelInfo, "session.transition",
			slog.String("status", "OK"),
			slog.String("state", "awaiting_price"),
		)
	})

	tokens := strings.Split(line, " ")
	require.GreaterOrEqual(t, len(tokens), 6, line)
	expected := []string{"ts=", "level=INFO", "component=session", "event=session.transition", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		assert.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, want prefix %s", i, tokens[i], prefix)
	}
	assert.Contains(t, line, "user_id=7")
	assert.Contains(t, line, "chat_id=9")
}

func TestStructuredHandlerJSONFields(t *testing.T) {
	ctx := WithHandler(WithRID(Background(), "11:22:33"), "text")

	line := capture(t, formatJSON, func(log *slog.Logger) {
		LogEvent(ctx, log.With("component", "broadcast"), slog.LevelError, "broadcast.failed",
			slog.String("status", "fail"),
			slog.Any("err", errors.New("boom")),
			slog.Duration("duration", 1500*time.Microsecond),
			slog.Group("store", slog.Int("users", 3)),
		)
	})

	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"broadcast"`, `"event":"broadcast.failed"`, `"status":"fail"`, `"rid":"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.True(t, idx > pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &fields))
	assert.Equal(t, CompactRID("11:22:33"), fields["rid"])
	assert.Equal(t, "11:22:33", fields["rid_full"])
	assert.Equal(t, "boom", fields["err"])
	assert.Equal(t, "text", fields["handler"])
	assert.EqualValues(t, 2, fields["duration_ms"])
	assert.EqualValues(t, 3, fields["store.users"])
	assert.Contains(t, fields, "ts_unix_nano")
}

func TestStructuredHandlerKVOmitsFullRID(t *testing.T) {
	raw := "123:456:789"
	line := capture(t, formatKV, func(log *slog.Logger) {
		LogEvent(WithRID(Background(), raw), log, slog.LevelInfo, "rid.test")
	})
	assert.Contains(t, line, "rid="+CompactRID(raw))
	assert.Contains(t, line, "component=app")
	assert.NotContains(t, line, "rid_full=")
}

func TestStructuredHandlerDropsUnknownOutcomeAndEmptyValues(t *testing.T) {
	line := capture(t, formatKV, func(log *slog.Logger) {
		log.Info("plain", "outcome", "exploded", "username", "", "path", "data file.json")
	})
	assert.Contains(t, line, "event=plain")
	assert.NotContains(t, line, "outcome=")
	assert.NotContains(t, line, "username=")
	assert.Contains(t, line, `path="data file.json"`)
}

func TestStructuredHandlerRespectsLevel(t *testing.T) {
	h := newStructuredHandler(handlerConfig{level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	assert.Equal(t, []bool{true, false, false, true}, got)

	s.Set(0, 0)
	assert.True(t, s.Allow())

	num, den := parseRatioSpec("2/10")
	assert.Equal(t, [2]int{2, 10}, [2]int{num, den})
	num, den = parseRatioSpec("25")
	assert.Equal(t, [2]int{1, 25}, [2]int{num, den})
	num, den = parseRatioSpec("x/y")
	assert.Equal(t, [2]int{0, 0}, [2]int{num, den})
}

func TestCompactRID(t *testing.T) {
	assert.Equal(t, "z.10.a", CompactRID("35:36:10"))
	assert.Equal(t, "not-a-rid", CompactRID("not-a-rid"))
	assert.Equal(t, "1:2:x", CompactRID("1:2:x"))
	assert.Equal(t, "5:6:7", BuildRID(5, 6, 7))
}
