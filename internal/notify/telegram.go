package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/tender-monitor/internal/entities"
	log "github.com/sirupsen/logrus"
)

const maxMessageLength = 4096

type messageSender interface {
	Send(c botApi.Chattable) (botApi.Message, error)
}

type TelegramNotifier struct {
	api messageSender
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	if err = botApi.SetLogger(log.StandardLogger()); err != nil {
		return nil, err
	}

	return &TelegramNotifier{api: api}, nil
}

func NewTelegramNotifierWithSender(api messageSender) *TelegramNotifier {
	return &TelegramNotifier{api: api}
}

func (n *TelegramNotifier) Channel() entities.NotificationChannel {
	return entities.ChannelTelegram
}

func (n *TelegramNotifier) Recipients(profile entities.MonitoringProfile) []string {
	chats := make([]string, 0, len(profile.TelegramChatIDs))
	for _, id := range profile.TelegramChatIDs {
		chats = append(chats, strconv.FormatInt(id, 10))
	}
	return chats
}

// Notify sends one message per chat and keeps going when a chat fails.
func (n *TelegramNotifier) Notify(ctx context.Context, digest Digest) error {
	if len(digest.Profile.TelegramChatIDs) == 0 {
		return ErrNoRecipients
	}

	text := telegramText(digest)
	var errs []error
	for _, chatID := range digest.Profile.TelegramChatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := botApi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		if _, err := n.api.Send(msg); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

func telegramText(digest Digest) string {
	var b strings.Builder
	b.WriteString(digest.Subject())
	b.WriteString("\n")

	if len(digest.Tenders) == 0 {
		fmt.Fprintf(&b, "Sources scanned: %d, nothing new.", digest.SourcesScanned)
		return b.String()
	}

	for i, t := range digest.Tenders {
		var entry strings.Builder
		fmt.Fprintf(&entry, "\n%d. %s (%s, %d%%)", i+1, t.Title, t.Source, int(t.RelevanceScore*100+0.5))
		if t.ResponseDeadline != nil {
			fmt.Fprintf(&entry, "\nDeadline: %s", t.ResponseDeadline.Format("2006-01-02"))
		}
		if url := t.URL(); url != "" {
			fmt.Fprintf(&entry, "\n%s", url)
		}
		entry.WriteString("\n")

		if b.Len()+entry.Len() > maxMessageLength-32 {
			fmt.Fprintf(&b, "\n...and %d more", len(digest.Tenders)-i)
			break
		}
		b.WriteString(entry.String())
	}
	return b.String()
}
