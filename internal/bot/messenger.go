package bot

import (
	"context"

	"github.com/m3rciful/pricebot/core/telegram/middleware"
	"github.com/m3rciful/pricebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// albumLimit is the Telegram cap on photos per media group.
const albumLimit = 10

// botAPI is the part of *tele.Bot the messenger uses.
type botAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	SendAlbum(to tele.Recipient, a tele.Album, opts ...interface{}) ([]tele.Message, error)
}

// Deliverer runs one outbound call with retries. *sender.Dispatcher implements it.
type Deliverer interface {
	Deliver(ctx context.Context, action, endpoint string, run func() error) error
}

// Messenger sends session replies through the Telegram Bot API.
type Messenger struct {
	api       botAPI
	deliver   Deliverer
	keyboards Keyboards
}

// NewMessenger wires the bot, the retrying dispatcher and the menus together.
func NewMessenger(api botAPI, deliver Deliverer, keyboards Keyboards) *Messenger {
	return &Messenger{api: api, deliver: deliver, keyboards: keyboards}
}

// SendText sends msg to the user's private chat.
func (m *Messenger) SendText(ctx context.Context, userID int64, msg session.Message) error {
	opts := &tele.SendOptions{}
	if markup := m.keyboards.Markup(msg.Menu); markup != nil {
		opts.ReplyMarkup = markup
	}
	if msg.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	err := m.deliver.Deliver(ctx, "send_message", "sendMessage", func() error {
		_, err := m.api.Send(tele.ChatID(userID), msg.Text, opts)
		return err
	})
	if err == nil {
		middleware.RecordSent(ctx, opts.ReplyMarkup != nil)
	}
	return err
}

// SendPhotos sends the files as media groups; only the first photo carries the caption.
func (m *Messenger) SendPhotos(ctx context.Context, userID int64, photos []string, caption string) error {
	for start := 0; start < len(photos); start += albumLimit {
		end := min(start+albumLimit, len(photos))
		album := make(tele.Album, 0, end-start)
		for i, path := range photos[start:end] {
			p := &tele.Photo{File: tele.FromDisk(path)}
			if start == 0 && i == 0 {
				p.Caption = caption
			}
			album = append(album, p)
		}
		err := m.deliver.Deliver(ctx, "send_album", "sendMediaGroup", func() error {
			_, err := m.api.SendAlbum(tele.ChatID(userID), album)
			return err
		})
		if err != nil {
			return err
		}
		middleware.RecordSent(ctx, false)
	}
	return nil
}
