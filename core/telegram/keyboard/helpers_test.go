package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestReplyButtons(t *testing.T) {
	markup := ReplyButtons([]string{"a", "b"}, nil, []string{"c"})

	assert.True(t, markup.ResizeKeyboard)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, buttonTexts(markup))
}

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
