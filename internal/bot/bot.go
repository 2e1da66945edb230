package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/logger"
	log "github.com/sirupsen/logrus"
)

type profileRepository interface {
	List(ctx context.Context) ([]entities.MonitoringProfile, error)
	AddTelegramChat(ctx context.Context, name string, chatID int64) (bool, error)
	RemoveTelegramChat(ctx context.Context, name string, chatID int64) (bool, error)
}

type telegramAPI interface {
	Send(chattable botApi.Chattable) (botApi.Message, error)
	GetUpdatesChan(config botApi.UpdateConfig) botApi.UpdatesChannel
	StopReceivingUpdates()
}

const (
	subscribeButton    = "Subscribe to profile"
	unsubscribeButton  = "Unsubscribe from profile"
	listProfilesButton = "Profiles"
	backToMenuButton   = "Back to menu"
)

var menuButtons = []string{subscribeButton, unsubscribeButton, listProfilesButton, backToMenuButton}

// Bot lets Telegram users subscribe their chat to monitoring profiles.
// Updates are handled on the Run goroutine only.
type Bot struct {
	api      telegramAPI
	bus      EventBus.Bus
	profiles profileRepository
	dialogs  map[int64]*subscriptionDialog
}

func NewBot(token string, bus EventBus.Bus, profiles profileRepository) (*Bot, error) {

	if bus == nil {
		return nil, errors.New("bus is nil")
	}
	if profiles == nil {
		return nil, errors.New("profile repository is nil")
	}

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Infof("Authorized on account %s", api.Self.UserName)

	if err = botApi.SetLogger(log.StandardLogger()); err != nil {
		return nil, err
	}

	return newBot(api, bus, profiles), nil
}

func newBot(api telegramAPI, bus EventBus.Bus, profiles profileRepository) *Bot {
	return &Bot{api: api, bus: bus, profiles: profiles, dialogs: make(map[int64]*subscriptionDialog)}
}

func (b *Bot) Run(ctx context.Context) {

	updateConfig := botApi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Chat == nil {
				continue
			}
			// digests go to private chats only
			if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleMessage(ctx context.Context, message *botApi.Message) {

	chatID := message.Chat.ID
	command := message.Command()
	if command == "" && slices.Contains(menuButtons, message.Text) {
		command = message.Text
	}

	if command == "" {
		b.send(b.completeSubscription(ctx, chatID, message.Text))
		return
	}

	var response botApi.Chattable
	var err error

	switch command {
	case "start", backToMenuButton:
		delete(b.dialogs, chatID)
		msg := botApi.NewMessage(chatID, "Subscribe this chat to a monitoring profile to get tender digests here.")
		msg.ReplyMarkup = menuKeyboard()
		response = msg
	case "profiles", listProfilesButton:
		response, err = b.listProfiles(ctx, chatID)
	case "subscribe", subscribeButton:
		response, err = b.startSubscription(ctx, chatID, true)
	case "unsubscribe", unsubscribeButton:
		response, err = b.startSubscription(ctx, chatID, false)
	default:
		response = botApi.NewMessage(chatID, "Unknown command!")
	}

	if err != nil {
		if errors.Is(err, errNoProfiles) {
			response = botApi.NewMessage(chatID, "There are no monitoring profiles yet.")
		} else {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Error(err)
			response = botApi.NewMessage(chatID, "Internal error!")
		}
	}

	b.send(response)
}

func (b *Bot) listProfiles(ctx context.Context, chatID int64) (botApi.Chattable, error) {
	profiles, err := b.loadProfiles(ctx)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, p := range profiles {
		mark := " "
		if slices.Contains(p.TelegramChatIDs, chatID) {
			mark = "✓"
		}
		fmt.Fprintf(&text, "%s %s: %s\n", mark, p.Name, strings.Join(p.Keywords, ", "))
	}
	return botApi.NewMessage(chatID, text.String()), nil
}

func (b *Bot) loadProfiles(ctx context.Context) ([]entities.MonitoringProfile, error) {
	profiles, err := b.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, errNoProfiles
	}
	return profiles, nil
}

func (b *Bot) send(chattable botApi.Chattable) {
	if chattable == nil {
		return
	}
	if _, err := b.api.Send(chattable); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("failed to send telegram message: %v", err)
	}
}

func menuKeyboard() botApi.ReplyKeyboardMarkup {
	return botApi.NewReplyKeyboard(
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(subscribeButton),
			botApi.NewKeyboardButton(unsubscribeButton),
		),
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(listProfilesButton),
		),
	)
}

func backKeyboard() botApi.ReplyKeyboardMarkup {
	return botApi.NewReplyKeyboard(
		botApi.NewKeyboardButtonRow(
			botApi.NewKeyboardButton(backToMenuButton),
		),
	)
}
