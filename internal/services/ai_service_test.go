package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAiClient struct {
	mock.Mock
}

func (m *mockAiClient) GenerateResponse(ctx context.Context, request string) (string, error) {
	args := m.Called(ctx, request)
	return args.String(0), args.Error(1)
}

func outreachTender() entities.StoredTender {
	value := 480000.0
	deadline := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	return entities.StoredTender{
		ID:               "t-1",
		Title:            "Window replacement at PS 123",
		Description:      strings.Repeat("Replace aluminium windows. ", 20),
		Source:           entities.NYCOpenData,
		Location:         "Brooklyn, NY",
		EstimatedValue:   &value,
		ResponseDeadline: &deadline,
		Keywords:         []string{"window", "replacement"},
		ContactInfo:      map[string]string{"email": "buyer@schools.nyc.gov"},
	}
}

func Test_DraftOutreachEmail_ParsesSubject(t *testing.T) {
	client := new(mockAiClient)
	client.On("GenerateResponse", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "- Title: Window replacement at PS 123") &&
			strings.Contains(prompt, "- Estimated value: $480000") &&
			strings.Contains(prompt, "- Deadline: 2026-12-01") &&
			strings.Contains(prompt, "- Contact email: buyer@schools.nyc.gov") &&
			strings.Contains(prompt, "Jane Doe, Acme Windows") &&
			!strings.Contains(prompt, strings.Repeat("Replace aluminium windows. ", 10))
	})).Return("**Subject: Windows for PS 123**\n\nDear buyer,\nwe would like to help.", nil)

	service := NewAIService(client, "Jane Doe, Acme Windows")
	draft, err := service.DraftOutreachEmail(context.Background(), outreachTender())

	require.NoError(t, err)
	assert.Equal(t, "t-1", draft.TenderID)
	assert.Equal(t, "Windows for PS 123", draft.Subject)
	assert.Equal(t, "Dear buyer,\nwe would like to help.", draft.Body)
	client.AssertExpectations(t)
}

func Test_DraftOutreachEmail_DefaultSubject(t *testing.T) {
	client := new(mockAiClient)
	client.On("GenerateResponse", mock.Anything, mock.Anything).Return("Dear buyer,\nhello.", nil)

	draft, err := NewAIService(client, "").DraftOutreachEmail(context.Background(), outreachTender())

	require.NoError(t, err)
	assert.Equal(t, "Regarding: Window replacement at PS 123", draft.Subject)
	assert.Equal(t, "Dear buyer,\nhello.", draft.Body)
}

func Test_DraftOutreachEmail_Errors(t *testing.T) {
	client := new(mockAiClient)
	client.On("GenerateResponse", mock.Anything, mock.Anything).Return("", errors.New("quota exceeded")).Once()
	client.On("GenerateResponse", mock.Anything, mock.Anything).Return("   ", nil).Once()

	service := NewAIService(client, "")

	_, err := service.DraftOutreachEmail(context.Background(), outreachTender())
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = service.DraftOutreachEmail(context.Background(), outreachTender())
	assert.ErrorContains(t, err, "empty draft")
}

func Test_MissingInformation(t *testing.T) {
	service := NewAIService(nil, "")

	complete := service.MissingInformation(outreachTender())
	assert.Contains(t, complete, "Contact phone")
	assert.NotContains(t, complete, "Contact email")
	assert.NotContains(t, complete, "Estimated contract value")

	bare := service.MissingInformation(entities.StoredTender{Title: "Door supply"})
	assert.Contains(t, bare, "Estimated contract value")
	assert.Contains(t, bare, "Response deadline")
	assert.Contains(t, bare, "Exact project location")
}
