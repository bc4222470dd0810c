package notify

import (
	"context"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"linkgarden/internal/downloader"
	"linkgarden/internal/storage"
)

// TelegramNotifier reports download completions to a Telegram chat. It is
// an optional observer; delivery failures are logged and never affect the
// download worker.
type TelegramNotifier struct {
	bot    *tgbot.Bot
	chatID int64
	links  storage.LinkRepository
	log    logrus.FieldLogger
}

// NewTelegramNotifier creates the notifier for the given bot token and
// target chat.
func NewTelegramNotifier(token string, chatID int64, links storage.LinkRepository, logger logrus.FieldLogger) (*TelegramNotifier, error) {
	log := logger.WithField("component", "notify")

	b, err := tgbot.New(token)
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    b,
		chatID: chatID,
		links:  links,
		log:    log,
	}, nil
}

// Attach subscribes the notifier to the orchestrator's completion events.
// The returned function unsubscribes.
func (n *TelegramNotifier) Attach(ctx context.Context, svc *downloader.Service) (cancel func()) {
	return svc.OnCompletion(func(linkID string, success bool) {
		n.NotifyCompletion(ctx, linkID, success)
	})
}

// NotifyCompletion sends a per-link result message.
func (n *TelegramNotifier) NotifyCompletion(ctx context.Context, linkID string, success bool) {
	link, err := n.links.GetByID(ctx, linkID)
	if err != nil {
		n.log.WithError(err).WithField("link_id", linkID).Warn("Completed link not found for notification")
		return
	}

	var text string
	if success {
		text = fmt.Sprintf("Downloaded %s (%d files)", link.URL, link.ImagesCount)
	} else {
		text = fmt.Sprintf("Failed %s: %s", link.URL, link.ErrorMessage)
	}
	n.send(ctx, text)
}

// NotifyBatchDone sends a summary after a batch returns to idle.
func (n *TelegramNotifier) NotifyBatchDone(ctx context.Context, completed, failed int) {
	n.send(ctx, fmt.Sprintf("Batch finished: %d downloaded, %d failed", completed, failed))
}

func (n *TelegramNotifier) send(ctx context.Context, text string) {
	_, err := n.bot.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		n.log.WithError(err).Error("Failed to send Telegram notification")
	}
}
