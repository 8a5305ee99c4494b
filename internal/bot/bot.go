package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"zentari/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// GameBot serves the player commands over the Telegram Bot API.
type GameBot struct {
	bot       *tgbotapi.BotAPI
	commands  *Commands
	webAppURL string
	wg        sync.WaitGroup
	log       *slog.Logger
}

// NewGameBot authorizes with Telegram.
func NewGameBot(token string, commands *Commands, webAppURL string) (*GameBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "game_bot")
	log.Info("game bot authorized", "username", bot.Self.UserName)

	return &GameBot{
		bot:       bot,
		commands:  commands,
		webAppURL: webAppURL,
		log:       log,
	}, nil
}

// Username is the bot's Telegram username.
func (b *GameBot) Username() string { return b.bot.Self.UserName }

// Run polls for updates until ctx is done, then waits for in-flight
// commands.
func (b *GameBot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	defer b.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() || update.Message.From == nil {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handle(ctx, msg)
			}(update.Message)
		}
	}
}

func (b *GameBot) shutdown() {
	b.log.Info("stopping game bot...")
	b.bot.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("game bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("game bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *GameBot) handle(ctx context.Context, msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	from := Sender{ID: msg.From.ID, Username: msg.From.UserName}
	command := strings.ToLower(msg.Command())
	response := b.commands.Handle(ctx, from, command, msg.CommandArguments())
	b.log.Debug("command handled", "command", command, "tg_id", from.ID)

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID
	if command == "start" && b.webAppURL != "" {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("▶️ Play", b.webAppURL)),
		)
	}

	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err, "tg_id", from.ID)
	}
}
