package bot

import (
	"context"
	"slices"
	"testing"

	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/events"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type mockProfileRepo struct {
	Profiles []entities.MonitoringProfile
	Err      error
}

func (m *mockProfileRepo) List(_ context.Context) ([]entities.MonitoringProfile, error) {
	return m.Profiles, m.Err
}

func (m *mockProfileRepo) AddTelegramChat(_ context.Context, name string, chatID int64) (bool, error) {
	for i := range m.Profiles {
		if m.Profiles[i].Name == name {
			if !slices.Contains(m.Profiles[i].TelegramChatIDs, chatID) {
				m.Profiles[i].TelegramChatIDs = append(m.Profiles[i].TelegramChatIDs, chatID)
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *mockProfileRepo) RemoveTelegramChat(_ context.Context, name string, chatID int64) (bool, error) {
	for i := range m.Profiles {
		if m.Profiles[i].Name == name {
			m.Profiles[i].TelegramChatIDs = slices.DeleteFunc(m.Profiles[i].TelegramChatIDs,
				func(id int64) bool { return id == chatID })
			return true, nil
		}
	}
	return false, nil
}

type mockApi struct {
	SentMessages []botApi.Chattable
}

func (m *mockApi) Send(chattable botApi.Chattable) (botApi.Message, error) {
	m.SentMessages = append(m.SentMessages, chattable)
	return botApi.Message{}, nil
}

func (m *mockApi) GetUpdatesChan(_ botApi.UpdateConfig) botApi.UpdatesChannel {
	return make(chan botApi.Update)
}

func (m *mockApi) StopReceivingUpdates() {}

func (m *mockApi) lastText() string {
	if len(m.SentMessages) == 0 {
		return ""
	}
	msg, _ := m.SentMessages[len(m.SentMessages)-1].(botApi.MessageConfig)
	return msg.Text
}

func testProfiles() *mockProfileRepo {
	return &mockProfileRepo{Profiles: []entities.MonitoringProfile{
		{Name: "nyc-windows", Keywords: []string{"window"}},
		{Name: "dodge-doors", Keywords: []string{"door"}, TelegramChatIDs: []int64{5}},
	}}
}

func simulateUserInput(b *Bot, chatID int64, inputs ...string) {
	for _, input := range inputs {
		b.handleMessage(context.Background(), &botApi.Message{
			Text: input,
			Chat: &botApi.Chat{ID: chatID, Type: "private"},
			From: &botApi.User{ID: chatID},
		})
	}
}

func Test_Subscribe_WhenValidData_ShouldBeSuccessful(t *testing.T) {

	assert := assert.New(t)

	profiles := testProfiles()
	api := &mockApi{}
	eventPublished := false
	bus := EventBus.New()
	_ = bus.Subscribe(events.ProfileChangedTopic, func(event events.ProfileChanged) {
		eventPublished = event.Name == "nyc-windows"
	})
	b := newBot(api, bus, profiles)

	simulateUserInput(b, 5, subscribeButton)
	assert.Contains(api.lastText(), "1: \"nyc-windows\", keywords: window")

	simulateUserInput(b, 5, "1")

	assert.True(eventPublished)
	assert.Equal([]int64{5}, profiles.Profiles[0].TelegramChatIDs)
	assert.Equal("Subscribed to nyc-windows.", api.lastText())
	assert.Empty(b.dialogs)
}

func Test_Subscribe_WhenInvalidInput_ShouldWaitForValid(t *testing.T) {

	assert := assert.New(t)

	profiles := testProfiles()
	api := &mockApi{}
	b := newBot(api, EventBus.New(), profiles)

	simulateUserInput(b, 7, subscribeButton, "abc")
	assert.Equal("Enter a number!", api.lastText())

	simulateUserInput(b, 7, "-1", "3")
	assert.Equal("There is no profile with this number.", api.lastText())
	assert.Contains(b.dialogs, int64(7))

	simulateUserInput(b, 7, "2")

	assert.Equal([]int64{5, 7}, profiles.Profiles[1].TelegramChatIDs)
	assert.NotContains(b.dialogs, int64(7))
}

func Test_Unsubscribe_RemovesChat(t *testing.T) {

	assert := assert.New(t)

	profiles := testProfiles()
	api := &mockApi{}
	b := newBot(api, EventBus.New(), profiles)

	simulateUserInput(b, 5, unsubscribeButton, "2")

	assert.Empty(profiles.Profiles[1].TelegramChatIDs)
	assert.Equal("Unsubscribed from dodge-doors.", api.lastText())
}

func Test_BackToMenu_CancelsDialog(t *testing.T) {
	api := &mockApi{}
	profiles := testProfiles()
	b := newBot(api, EventBus.New(), profiles)

	simulateUserInput(b, 5, subscribeButton, backToMenuButton, "1")

	assert.Equal(t, "A command is expected.", api.lastText())
	assert.Empty(t, profiles.Profiles[0].TelegramChatIDs)
}

func Test_ListProfiles_MarksSubscribed(t *testing.T) {
	api := &mockApi{}
	b := newBot(api, EventBus.New(), testProfiles())

	simulateUserInput(b, 5, listProfilesButton)

	assert.Equal(t, "  nyc-windows: window\n✓ dodge-doors: door\n", api.lastText())
}

func Test_Subscribe_WhenNoProfiles_ShouldReply(t *testing.T) {
	api := &mockApi{}
	b := newBot(api, EventBus.New(), &mockProfileRepo{})

	simulateUserInput(b, 5, subscribeButton)

	assert.Equal(t, "There are no monitoring profiles yet.", api.lastText())
	assert.Empty(t, b.dialogs)
}

func Test_Subscribe_WhenRepositoryFails_ShouldReplyWithError(t *testing.T) {
	api := &mockApi{}
	b := newBot(api, EventBus.New(), &mockProfileRepo{Err: errors.New("db is down")})

	simulateUserInput(b, 5, listProfilesButton)

	assert.Equal(t, "Internal error!", api.lastText())
}
