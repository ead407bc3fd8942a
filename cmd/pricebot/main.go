// Command pricebot runs the yuan to ruble price bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/m3rciful/pricebot/core/bootstrap"
	"github.com/m3rciful/pricebot/core/cmd"
	coreconfig "github.com/m3rciful/pricebot/core/config"
	coretelegram "github.com/m3rciful/pricebot/core/telegram"
	"github.com/m3rciful/pricebot/internal/bot"
	"github.com/m3rciful/pricebot/internal/store"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{Bootstrap: bootstrapApp})
	if err == nil {
		return
	}
	var missing *coreconfig.MissingError
	if errors.As(err, &missing) {
		writeMissing(os.Stderr, missing)
	} else {
		fmt.Fprintf(os.Stderr, "pricebot: %v\n", err)
	}
	os.Exit(1)
}

func bootstrapApp(ctx context.Context, cfg *coreconfig.Config) (cmd.TelegramApp, error) {
	res, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Storage, res.DB)
	if err != nil {
		return nil, err
	}
	tb, err := coretelegram.NewBot(cfg)
	if err != nil {
		return nil, err
	}
	return bot.New(bot.Options{Config: cfg, Bot: tb, Store: st})
}

func writeMissing(w io.Writer, err *coreconfig.MissingError) {
	fmt.Fprintf(w, "❌ Ошибка: не заданы обязательные параметры: %s\n", strings.Join(err.Keys, ", "))
	fmt.Fprintln(w, "Создайте файл .env с содержимым:")
	fmt.Fprintln(w, "BOT_TOKEN=your_bot_token_here")
	fmt.Fprintln(w, "ADMIN_IDS=123456789,987654321")
}
