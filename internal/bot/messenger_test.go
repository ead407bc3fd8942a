package bot

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pricebot/core/telegram/middleware"
	tgsender "github.com/m3rciful/pricebot/core/telegram/sender"
	"github.com/m3rciful/pricebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

func newTestDispatcher(t *testing.T, retries int) *tgsender.Dispatcher {
	t.Helper()
	d := tgsender.NewDispatcher(tgsender.Options{Workers: 1, MaxRetries: retries, RetryBackoff: time.Millisecond})
	t.Cleanup(d.Close)
	return d
}

func TestKeyboardsLayout(t *testing.T) {
	l := session.DefaultLabels()
	kb := NewKeyboards(l)

	assert.Equal(t, [][]string{{l.Calculate}, {l.Instructions}}, buttonTexts(kb.Markup(session.MenuMain)))
	assert.Equal(t, [][]string{{l.Calculate}, {l.Instructions}, {l.Admin}}, buttonTexts(kb.Markup(session.MenuMainAdmin)))
	assert.Equal(t,
		[][]string{{l.Statistics}, {l.ChangeRate}, {l.Broadcast}, {l.Back}},
		buttonTexts(kb.Markup(session.MenuAdmin)),
	)
	assert.Equal(t, [][]string{{l.Cancel}}, buttonTexts(kb.Markup(session.MenuCancel)))
	assert.Nil(t, kb.Markup(session.MenuKeep))
}

func TestMessengerSendText(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api, newTestDispatcher(t, 0), NewKeyboards(session.DefaultLabels()))
	ctx, counters := middleware.WithCounters(context.Background())

	require.NoError(t, m.SendText(ctx, 42, session.Message{Text: "*hi*", Menu: session.MenuCancel, Markdown: true}))
	require.NoError(t, m.SendText(ctx, 42, session.Message{Text: "plain"}))

	require.Len(t, api.texts, 2)
	first := api.texts[0]
	assert.Equal(t, "42", first.to)
	assert.Equal(t, tele.ModeMarkdown, first.opts.ParseMode)
	assert.NotNil(t, first.opts.ReplyMarkup)

	second := api.texts[1]
	assert.Empty(t, second.opts.ParseMode)
	assert.Nil(t, second.opts.ReplyMarkup)

	msgs, kb := counters.Snapshot()
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}

func TestMessengerRetriesTransientErrors(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	api := &fakeAPI{sendErr: []error{dialErr}}
	m := NewMessenger(api, newTestDispatcher(t, 2), NewKeyboards(session.DefaultLabels()))

	require.NoError(t, m.SendText(context.Background(), 7, session.Message{Text: "retry me"}))
	assert.Equal(t, "retry me", api.lastText().text)
}

func TestMessengerReturnsPermanentErrors(t *testing.T) {
	blocked := &tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}
	api := &fakeAPI{sendErr: []error{blocked}}
	d := newTestDispatcher(t, 2)
	m := NewMessenger(api, d, NewKeyboards(session.DefaultLabels()))

	err := m.SendText(context.Background(), 7, session.Message{Text: "x"})
	require.Error(t, err)
	assert.Empty(t, api.texts)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestMessengerSendPhotosSplitsAlbums(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api, newTestDispatcher(t, 0), NewKeyboards(session.DefaultLabels()))

	photos := make([]string, 12)
	for i := range photos {
		photos[i] = "images/p.jpg"
	}
	require.NoError(t, m.SendPhotos(context.Background(), 5, photos, "caption"))

	require.Len(t, api.albums, 2)
	assert.Len(t, api.albums[0], 10)
	assert.Len(t, api.albums[1], 2)
	assert.Equal(t, "caption", api.albums[0][0].(*tele.Photo).Caption)
	assert.Empty(t, api.albums[0][1].(*tele.Photo).Caption)
	assert.Empty(t, api.albums[1][0].(*tele.Photo).Caption)
}
