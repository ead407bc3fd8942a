package bot

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

type sentText struct {
	to   string
	text string
	opts *tele.SendOptions
}

type fakeAPI struct {
	mu      sync.Mutex
	texts   []sentText
	albums  []tele.Album
	sendErr []error
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sendErr) > 0 {
		err := f.sendErr[0]
		f.sendErr = f.sendErr[1:]
		if err != nil {
			return nil, err
		}
	}
	st := sentText{to: to.Recipient(), text: what.(string)}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			st.opts = so
		}
	}
	f.texts = append(f.texts, st)
	return &tele.Message{}, nil
}

func (f *fakeAPI) SendAlbum(_ tele.Recipient, a tele.Album, _ ...interface{}) ([]tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.albums = append(f.albums, a)
	return make([]tele.Message, len(a)), nil
}

func (f *fakeAPI) lastText() sentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return sentText{}
	}
	return f.texts[len(f.texts)-1]
}

type fakeContext struct {
	tele.Context
	update tele.Update
	store  map[string]any
}

func newFakeContext(updateID int, userID int64, text string) *fakeContext {
	return &fakeContext{
		update: tele.Update{ID: updateID, Message: &tele.Message{
			Text:   text,
			Sender: &tele.User{ID: userID, Username: "buyer", FirstName: "Ivan"},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
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

// buttonTexts flattens a reply keyboard into its button texts, row by row.
func buttonTexts(markup *tele.ReplyMarkup) [][]string {
	if markup == nil {
		return nil
	}
	out := make([][]string, 0, len(markup.ReplyKeyboard))
	for _, row := range markup.ReplyKeyboard {
		labels := make([]string, 0, len(row))
		for _, btn := range row {
			labels = append(labels, btn.Text)
		}
		out = append(out, labels)
	}
	return out
}
