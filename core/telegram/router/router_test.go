package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/pricebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]any
}

func newFakeContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: 1, Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
		}},
		store: map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update     { return f.update }
func (f *fakeContext) Sender() *tele.User      { return f.update.Message.Sender }
func (f *fakeContext) Chat() *tele.Chat        { return f.update.Message.Chat }
func (f *fakeContext) Text() string            { return f.update.Message.Text }
func (f *fakeContext) Get(key string) any      { return f.store[key] }
func (f *fakeContext) Set(key string, val any) { f.store[key] = val }

type codedError struct{}

func (codedError) Error() string { return "corrupted" }
func (codedError) Code() string  { return "store corrupted" }

func routeFor(t *testing.T, routes []tg.Route, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func TestCommandRoutesAdminCheck(t *testing.T) {
	reg := tg.NewRegistry()
	var opened, rejected []int64
	reg.RegisterCommand("/admin", tg.Command{
		Description: "Admin panel",
		AdminOnly:   true,
		Handler: func(c tele.Context) error {
			opened = append(opened, c.Sender().ID)
			return nil
		},
	})
	routes := CommandRoutes(reg, CommandRouteOptions{
		IsAdmin: func(id int64) bool { return id == 1 },
		OnAdminReject: func(c tele.Context) error {
			rejected = append(rejected, c.Sender().ID)
			return nil
		},
	})
	require.Len(t, routes, 1)
	h := routeFor(t, routes, "/admin")

	require.NoError(t, h(newFakeContext(1, "/admin")))
	require.NoError(t, h(newFakeContext(2, "/admin")))
	assert.Equal(t, []int64{1}, opened)
	assert.Equal(t, []int64{2}, rejected)
}

func TestTextRoutesReportErrors(t *testing.T) {
	boom := errors.New("boom")
	var reported error
	routes := TextRoutes(TextOptions{
		Handler: func(tele.Context) error { return boom },
		OnError: func(_ tele.Context, err error) { reported = err },
	})
	h := routeFor(t, routes, tele.OnText)

	require.NoError(t, h(newFakeContext(3, "12")))
	assert.ErrorIs(t, reported, boom)
}

func TestTextRoutesPassErrorWithoutHandler(t *testing.T) {
	boom := errors.New("boom")
	h := routeFor(t, TextRoutes(TextOptions{Handler: func(tele.Context) error { return boom }}), tele.OnText)
	assert.ErrorIs(t, h(newFakeContext(3, "12")), boom)

	h = routeFor(t, TextRoutes(TextOptions{}), tele.OnText)
	assert.NoError(t, h(newFakeContext(3, "12")))
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Equal(t, "", deriveErrorCode(nil))
	assert.Equal(t, "STORE_CORRUPTED", deriveErrorCode(fmt.Errorf("load: %w", codedError{})))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	assert.Equal(t, "start", normalizeHandlerName("/Start"))
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
}
