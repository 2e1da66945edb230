package entities

// OutreachDraft is a suggested first email to the buyer of a tender.
type OutreachDraft struct {
	TenderID string
	Subject  string
	Body     string
}
