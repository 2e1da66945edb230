package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
)

var ErrNoRecipients = errors.New("no recipients configured")

// Notifier delivers a digest over one channel.
type Notifier interface {
	Channel() entities.NotificationChannel
	Recipients(profile entities.MonitoringProfile) []string
	Notify(ctx context.Context, digest Digest) error
}

// Digest is what a profile's recipients get after a scan.
type Digest struct {
	Profile        entities.MonitoringProfile
	Tenders        []entities.StoredTender
	Drafts         map[string]entities.OutreachDraft
	SourcesScanned int
	GeneratedAt    time.Time
}

func (d Digest) Subject() string {
	switch len(d.Tenders) {
	case 0:
		return fmt.Sprintf("[tender-monitor] No new tenders for %s", d.Profile.Name)
	case 1:
		return fmt.Sprintf("[tender-monitor] 1 new tender for %s", d.Profile.Name)
	default:
		return fmt.Sprintf("[tender-monitor] %d new tenders for %s", len(d.Tenders), d.Profile.Name)
	}
}

func (d Digest) TenderIDs() []string {
	ids := make([]string, 0, len(d.Tenders))
	for _, t := range d.Tenders {
		ids = append(ids, t.ID)
	}
	return ids
}

// DraftFor returns nil when no draft was generated for the tender.
func (d Digest) DraftFor(tenderID string) *entities.OutreachDraft {
	draft, ok := d.Drafts[tenderID]
	if !ok {
		return nil
	}
	return &draft
}
