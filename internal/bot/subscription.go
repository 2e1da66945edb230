package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/events"
	"github.com/maxaizer/tender-monitor/internal/logger"
	log "github.com/sirupsen/logrus"
)

var errNoProfiles = errors.New("no monitoring profiles")

// subscriptionDialog waits for the number of the profile to (un)subscribe from
// the list shown to the chat.
type subscriptionDialog struct {
	subscribe bool
	profiles  []entities.MonitoringProfile
}

func (b *Bot) startSubscription(ctx context.Context, chatID int64, subscribe bool) (botApi.Chattable, error) {
	profiles, err := b.loadProfiles(ctx)
	if err != nil {
		return nil, err
	}
	b.dialogs[chatID] = &subscriptionDialog{subscribe: subscribe, profiles: profiles}

	var text strings.Builder
	text.WriteString("Enter the profile number:\n")
	for i, profile := range profiles {
		text.WriteString(strconv.Itoa(i+1) + ": \"" + profile.Name + "\", keywords: " +
			strings.Join(profile.Keywords, ", ") + "\n")
	}

	msg := botApi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = backKeyboard()
	return msg, nil
}

// completeSubscription handles free text. The dialog stays open until a valid
// number arrives.
func (b *Bot) completeSubscription(ctx context.Context, chatID int64, input string) botApi.Chattable {
	dialog := b.dialogs[chatID]
	if dialog == nil {
		return botApi.NewMessage(chatID, "A command is expected.")
	}

	number, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return botApi.NewMessage(chatID, "Enter a number!")
	}
	if number < 1 || number > len(dialog.profiles) {
		return botApi.NewMessage(chatID, "There is no profile with this number.")
	}
	delete(b.dialogs, chatID)

	profile := dialog.profiles[number-1].Name
	update, done := b.profiles.RemoveTelegramChat, "Unsubscribed from "+profile+"."
	if dialog.subscribe {
		update, done = b.profiles.AddTelegramChat, "Subscribed to "+profile+"."
	}

	msg := botApi.NewMessage(chatID, "")
	msg.ReplyMarkup = menuKeyboard()

	found, err := update(ctx, profile, chatID)
	switch {
	case err != nil:
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to update chats of %s: %v", profile, err)
		msg.Text = "Internal error!"
	case !found:
		msg.Text = "Profile " + profile + " no longer exists."
	default:
		b.bus.Publish(events.ProfileChangedTopic, events.ProfileChanged{Name: profile})
		msg.Text = done
	}
	return msg
}
