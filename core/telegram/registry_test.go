package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "Start"})
	reg.RegisterCommand("/admin", Command{Handler: noop, Description: "Admin panel", AdminOnly: true})
	reg.RegisterCommand("/start", Command{Handler: noop, Description: "dup"})
	reg.RegisterCommand("help", Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/empty", Command{Handler: noop})

	assert.Len(t, reg.Commands(), 2)
	assert.Equal(t, "Start", reg.Commands()["/start"].Description)

	assert.Equal(t, []tele.Command{{Text: "start", Description: "Start"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 2)

	cmd, ok := reg.LookupCommand("admin")
	assert.True(t, ok)
	assert.True(t, cmd.AdminOnly)
	_, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)
}
