// Package notify pushes order lifecycle events to an operator channel.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"algotrader/internal/logger"
	"algotrader/internal/types"
)

// Notifier receives terminal order transitions. Implementations must
// not block the coordinator; slow transports should buffer internally.
type Notifier interface {
	OrderUpdate(ctx context.Context, o types.Order)
}

type noop struct{}

func (noop) OrderUpdate(context.Context, types.Order) {}

// NewNoop returns a notifier that discards everything.
func NewNoop() Notifier { return noop{} }

type telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	queue  chan types.Order
}

// NewTelegram creates a Telegram notifier. Messages are sent from a
// single background goroutine so the coordinator never waits on the
// Telegram API.
func NewTelegram(token string, chatID int64) (Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	t := &telegram{bot: bot, chatID: chatID, queue: make(chan types.Order, 64)}
	go t.run()
	return t, nil
}

func (t *telegram) OrderUpdate(ctx context.Context, o types.Order) {
	select {
	case t.queue <- o:
	default:
		logger.Warn(ctx, "Notification dropped, queue full", "order_id", o.ID)
	}
}

func (t *telegram) run() {
	for o := range t.queue {
		text := fmt.Sprintf("%s %s %s qty=%d", o.Status, o.Side, o.Symbol, o.Qty)
		if o.Status == types.StatusComplete {
			text = fmt.Sprintf("%s filled=%d avg=%.2f", text, o.FilledQty, o.AvgFillPrice)
		} else if o.Message != "" {
			text = text + " " + o.Message
		}
		msg := tgbotapi.NewMessage(t.chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			logger.ErrorWithErr(context.Background(), "Failed to send notification", err, "order_id", o.ID)
		}
	}
}
