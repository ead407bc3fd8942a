package bot

import (
	"github.com/m3rciful/pricebot/core/telegram/keyboard"
	"github.com/m3rciful/pricebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// Keyboards holds the prebuilt reply keyboards for each session.Menu.
type Keyboards struct {
	main      *tele.ReplyMarkup
	mainAdmin *tele.ReplyMarkup
	admin     *tele.ReplyMarkup
	cancel    *tele.ReplyMarkup
}

// NewKeyboards lays out one button per row, like the menus users already know.
func NewKeyboards(l session.Labels) Keyboards {
	return Keyboards{
		main:      keyboard.ReplyButtons([]string{l.Calculate}, []string{l.Instructions}),
		mainAdmin: keyboard.ReplyButtons([]string{l.Calculate}, []string{l.Instructions}, []string{l.Admin}),
		admin: keyboard.ReplyButtons(
			[]string{l.Statistics},
			[]string{l.ChangeRate},
			[]string{l.Broadcast},
			[]string{l.Back},
		),
		cancel: keyboard.ReplyButtons([]string{l.Cancel}),
	}
}

// Markup returns the keyboard for m, or nil to keep the current one.
func (k Keyboards) Markup(m session.Menu) *tele.ReplyMarkup {
	switch m {
	case session.MenuMain:
		return k.main
	case session.MenuMainAdmin:
		return k.mainAdmin
	case session.MenuAdmin:
		return k.admin
	case session.MenuCancel:
		return k.cancel
	}
	return nil
}
