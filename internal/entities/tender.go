package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrMissingTitle = errors.New("candidate has no title")

// Candidate is a freshly scraped opportunity that has not been checked against storage yet.
type Candidate struct {
	ExternalID       string            `json:"tender_id,omitempty"`
	Title            string            `json:"title" validate:"required"`
	Description      string            `json:"description"`
	Source           Source            `json:"source" validate:"required,tender_source"`
	SourceURL        string            `json:"source_url"`
	PostingDate      *time.Time        `json:"posting_date,omitempty"`
	ResponseDeadline *time.Time        `json:"response_deadline,omitempty"`
	EstimatedValue   *float64          `json:"estimated_value,omitempty"`
	Location         string            `json:"location,omitempty"`
	NAICSCodes       []string          `json:"naics_codes,omitempty"`
	Keywords         []string          `json:"keywords_found,omitempty"`
	RelevanceScore   float64           `json:"relevance_score"`
	ContactInfo      map[string]string `json:"contact_info,omitempty"`
	ExtractedData    map[string]any    `json:"extracted_data,omitempty"`
	Profile          string            `json:"-"`
}

func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrMissingTitle
	}
	return validate.Struct(c)
}

// StoredTender is a persisted, deduplicated opportunity.
type StoredTender struct {
	ID               string            `gorm:"primaryKey;size:36"`
	ExternalID       *string           `gorm:"size:255;uniqueIndex"`
	Title            string            `gorm:"not null"`
	TitleFolded      string            `gorm:"index"`
	Description      string
	Source           Source            `gorm:"size:50;not null;uniqueIndex:idx_source_url,priority:1"`
	SourceURL        *string           `gorm:"uniqueIndex:idx_source_url,priority:2"`
	PostingDate      *time.Time        `gorm:"index:idx_relevance_posting,priority:2"`
	ResponseDeadline *time.Time
	EstimatedValue   *float64
	Location         string            `gorm:"size:500"`
	NAICSCodes       []string          `gorm:"serializer:json;type:text"`
	Keywords         []string          `gorm:"serializer:json;type:text;index"`
	RelevanceScore   float64           `gorm:"index:idx_relevance_posting,priority:1"`
	ContactInfo      map[string]string `gorm:"serializer:json;type:text"`
	ExtractedData    map[string]any    `gorm:"serializer:json;type:text"`
	Profile          string            `gorm:"size:255;index"`
	Notified         bool              `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FoldTitle lowercases a title the same way fuzzy tokens are lowercased, so
// non-ASCII titles can be matched by database LIKE queries.
func FoldTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func NewStoredTender(c Candidate) StoredTender {
	return StoredTender{
		ID:               uuid.NewString(),
		ExternalID:       optionalString(c.ExternalID),
		Title:            strings.TrimSpace(c.Title),
		TitleFolded:      FoldTitle(c.Title),
		Description:      c.Description,
		Source:           c.Source,
		SourceURL:        optionalString(c.SourceURL),
		PostingDate:      c.PostingDate,
		ResponseDeadline: c.ResponseDeadline,
		EstimatedValue:   c.EstimatedValue,
		Location:         c.Location,
		NAICSCodes:       c.NAICSCodes,
		Keywords:         c.Keywords,
		RelevanceScore:   c.RelevanceScore,
		ContactInfo:      c.ContactInfo,
		ExtractedData:    c.ExtractedData,
		Profile:          c.Profile,
		Notified:         false,
	}
}

func (t StoredTender) URL() string {
	if t.SourceURL == nil {
		return ""
	}
	return *t.SourceURL
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// TenderFilter narrows QueryStored results. Zero values mean "no restriction".
type TenderFilter struct {
	Source       Source
	MinRelevance float64
	Notified     *bool
	Profile      string
	Limit        int
}

type TenderStatistics struct {
	Total                 int64
	Notified              int64
	PendingNotifications  int64
	AverageRelevanceScore float64
	BySource              map[Source]int64
}
