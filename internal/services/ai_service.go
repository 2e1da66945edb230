package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const maxPromptDescription = 200

// OutreachInstruction is the system instruction for the model that writes drafts.
const OutreachInstruction = "You write short, factual business emails for a construction supplier " +
	"replying to public tenders. Never invent prices, dates or certifications."

type aiClient interface {
	GenerateResponse(ctx context.Context, request string) (string, error)
}

type AIService struct {
	aiClient  aiClient
	signature string
}

func NewAIService(aiClient aiClient, signature string) *AIService {
	return &AIService{aiClient: aiClient, signature: strings.TrimSpace(signature)}
}

func (a *AIService) DraftOutreachEmail(ctx context.Context, tender entities.StoredTender) (entities.OutreachDraft, error) {
	response, err := a.aiClient.GenerateResponse(ctx, a.outreachRequest(tender))
	if err != nil {
		return entities.OutreachDraft{}, errors.Wrapf(err, "failed to draft email for tender %s", tender.ID)
	}

	body := strings.TrimSpace(response)
	if body == "" {
		return entities.OutreachDraft{}, fmt.Errorf("empty draft for tender %s", tender.ID)
	}

	subject, body := splitSubject(body)
	if subject == "" {
		subject = "Regarding: " + tender.Title
	}
	log.Debugf("drafted outreach email for tender %s", tender.ID)

	return entities.OutreachDraft{TenderID: tender.ID, Subject: subject, Body: body}, nil
}

// MissingInformation lists what a proposal would still need from the buyer.
func (a *AIService) MissingInformation(tender entities.StoredTender) []string {
	var missing []string

	if tender.EstimatedValue == nil {
		missing = append(missing, "Estimated contract value")
	}
	if tender.ResponseDeadline == nil {
		missing = append(missing, "Response deadline")
	}
	if tender.ContactInfo["email"] == "" {
		missing = append(missing, "Contact email")
	}
	if tender.ContactInfo["phone"] == "" {
		missing = append(missing, "Contact phone")
	}
	if strings.TrimSpace(tender.Location) == "" {
		missing = append(missing, "Exact project location")
	}

	return append(missing,
		"Technical specifications of windows and doors",
		"Dimensions and quantities",
		"Material requirements",
		"Energy efficiency class",
		"Installation timeline",
	)
}

func (a *AIService) outreachRequest(tender entities.StoredTender) string {
	var b strings.Builder

	b.WriteString("I found this tender opportunity:\n")
	fmt.Fprintf(&b, "- Title: %s\n", tender.Title)
	fmt.Fprintf(&b, "- Source: %s\n", tender.Source)
	if tender.Location != "" {
		fmt.Fprintf(&b, "- Location: %s\n", tender.Location)
	}
	if tender.EstimatedValue != nil {
		fmt.Fprintf(&b, "- Estimated value: $%.0f\n", *tender.EstimatedValue)
	}
	if description := truncateRunes(tender.Description, maxPromptDescription); description != "" {
		fmt.Fprintf(&b, "- Description: %s\n", description)
	}
	if len(tender.Keywords) > 0 {
		fmt.Fprintf(&b, "- Keywords: %s\n", strings.Join(tender.Keywords, ", "))
	}
	if tender.ResponseDeadline != nil {
		fmt.Fprintf(&b, "- Deadline: %s\n", tender.ResponseDeadline.Format("2006-01-02"))
	}
	for _, key := range []string{"name", "organization", "email", "phone"} {
		if value := tender.ContactInfo[key]; value != "" {
			fmt.Fprintf(&b, "- Contact %s: %s\n", key, value)
		}
	}

	b.WriteString("\nWrite a business email to the buyer that introduces our company, " +
		"references this opportunity, asks for the technical information needed for a proposal " +
		"and suggests a remote consultation as the next step. Do not suggest site visits. " +
		"Keep it under 250 words, professional and friendly. Start with a line \"Subject: ...\". " +
		"Do not use placeholders.")
	if a.signature != "" {
		b.WriteString(" End with this signature exactly:\n")
		b.WriteString(a.signature)
	}
	return b.String()
}

func splitSubject(text string) (string, string) {
	first, rest, found := strings.Cut(text, "\n")
	trimmed := strings.TrimSpace(strings.ReplaceAll(first, "*", ""))
	if !found || !strings.HasPrefix(strings.ToLower(trimmed), "subject:") {
		return "", text
	}
	return strings.TrimSpace(trimmed[len("subject:"):]), strings.TrimSpace(rest)
}

func truncateRunes(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
