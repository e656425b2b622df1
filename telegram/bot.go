package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/custody_bot/service"
)

const (
	callbackTopUp    = "top_up"
	callbackWithdraw = "withdraw"
)

// Bot adapts Telegram updates to wallet intents and renders outcomes back
// as messages. All wallet semantics live in the service; this layer only
// translates.
type Bot struct {
	api *tgbotapi.BotAPI
	svc *service.WalletService
	log *slog.Logger
	seq *sequencer
}

func New(token string, svc *service.WalletService, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram api: %w", err)
	}
	return &Bot{api: api, svc: svc, log: log, seq: newSequencer()}, nil
}

// Run polls for updates until ctx is cancelled. Updates from the same
// user are handled in arrival order through a per-user queue, so tapping
// "withdraw" and immediately sending the destination cannot be reordered;
// different users fan out concurrently.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot polling", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("telegram bot stopped")
			return
		case update := <-updates:
			if userID := updateUserID(update); userID != 0 {
				b.seq.Do(ctx, userID, func() { b.handleUpdate(ctx, update) })
			} else {
				go b.handleUpdate(ctx, update)
			}
		}
	}
}

func updateUserID(update tgbotapi.Update) int64 {
	switch {
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	}
	return 0
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID

	if msg.IsCommand() && msg.Command() == "start" {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Choose an option:")
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("1. Top up", callbackTopUp),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("2. Withdraw", callbackWithdraw),
			),
		)
		b.send(reply)
		return
	}

	// Free text is only meaningful as a destination address while a
	// withdrawal session is waiting for one.
	if msg.Text == "" || !b.svc.HasActiveSession(userID) {
		return
	}
	out, err := b.svc.SubmitDestination(ctx, userID, msg.Text)
	if err != nil {
		b.log.Error("destination input failed", "user_id", userID, "err", err)
		b.send(tgbotapi.NewMessage(msg.Chat.ID, "Something went wrong, please try again."))
		return
	}
	if text := Render(out); text != "" {
		b.send(tgbotapi.NewMessage(msg.Chat.ID, text))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		b.answer(cb)
		return
	}
	userID := cb.From.ID
	chatID := cb.Message.Chat.ID

	var (
		out service.Outcome
		err error
	)
	switch cb.Data {
	case callbackTopUp:
		out, err = b.svc.Deposit(ctx, userID)
	case callbackWithdraw:
		out, err = b.svc.Withdraw(ctx, userID)
	default:
		b.answer(cb)
		return
	}
	if err != nil {
		b.log.Error("intent failed", "user_id", userID, "data", cb.Data, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Something went wrong, please try again."))
		b.answer(cb)
		return
	}
	if text := Render(out); text != "" {
		b.send(tgbotapi.NewMessage(chatID, text))
	}
	b.answer(cb)
}

// NotifyDeposit tells a user their balance increased. Private-chat ids
// equal user ids, so the callback can message the user directly.
func (b *Bot) NotifyDeposit(userID int64, delta *big.Int, display string) {
	b.send(tgbotapi.NewMessage(userID, fmt.Sprintf("Deposit received: %s", display)))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message failed", "chat_id", msg.ChatID, "err", err)
	}
}

func (b *Bot) answer(cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("answer callback failed", "err", err)
	}
}
