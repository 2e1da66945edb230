package scraper

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

func (s JobStatus) Finished() bool {
	return s == StatusCompleted || s == StatusFailed
}

type JobRequest struct {
	Source     string         `json:"source"`
	Keywords   []string       `json:"keywords"`
	MaxResults int            `json:"max_results"`
	Filters    map[string]any `json:"filters"`
}

type Job struct {
	ID           string    `json:"job_id"`
	Source       string    `json:"source"`
	Status       JobStatus `json:"status"`
	ResultsCount int       `json:"results_count"`
	ErrorMessage string    `json:"error_message"`
}

type jobResults struct {
	JobID   string   `json:"job_id"`
	Tenders []Tender `json:"tenders"`
}

// Tender is a scraped opportunity as returned by the scraper service.
type Tender struct {
	TenderID         string         `json:"tender_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Source           string         `json:"source"`
	SourceURL        string         `json:"source_url"`
	PostingDate      *Time          `json:"posting_date"`
	ResponseDeadline *Time          `json:"response_deadline"`
	EstimatedValue   *float64       `json:"estimated_value"`
	Location         string         `json:"location"`
	NAICSCodes       []string       `json:"naics_codes"`
	KeywordsFound    []string       `json:"keywords_found"`
	RelevanceScore   *float64       `json:"relevance_score"`
	ContactInfo      map[string]any `json:"contact_info"`
	Requirements     []string       `json:"requirements"`
	ExtractedData    map[string]any `json:"extracted_data"`
}

// Time accepts the ISO layouts the scraper service emits, with or without a
// zone and fractional seconds.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported time format %q", raw)
}

func (t *Time) Ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	value := t.Time
	return &value
}
