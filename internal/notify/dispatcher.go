package notify

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/tender-monitor/internal/entities"
	"github.com/maxaizer/tender-monitor/internal/events"
	"github.com/maxaizer/tender-monitor/internal/logger"
	"github.com/maxaizer/tender-monitor/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type notificationLogRepository interface {
	Add(ctx context.Context, entry entities.NotificationLog) error
}

type drafter interface {
	DraftOutreachEmail(ctx context.Context, tender entities.StoredTender) (entities.OutreachDraft, error)
}

type Dispatcher struct {
	notifiers []Notifier
	logs      notificationLogRepository
	drafter   drafter
	maxDrafts int
	now       func() time.Time
}

func NewDispatcher(logs notificationLogRepository, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, logs: logs, now: time.Now}
}

// WithDrafter attaches AI email drafts for the most relevant tenders of each digest.
func (d *Dispatcher) WithDrafter(drafter drafter, maxDrafts int) *Dispatcher {
	d.drafter = drafter
	d.maxDrafts = maxDrafts
	return d
}

// Subscribe makes the dispatcher handle events synchronously, so a publisher
// knows delivery was attempted once Publish returns.
func (d *Dispatcher) Subscribe(bus EventBus.Bus) error {
	return bus.Subscribe(events.TendersFoundTopic, d.onTendersFound)
}

func (d *Dispatcher) onTendersFound(event events.TendersFound) {
	d.Dispatch(context.Background(), event)
}

// Dispatch sends the digest through every notifier that has recipients for
// the profile. It returns how many channels delivered successfully.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.TendersFound) int {
	digest := Digest{
		Profile:        event.Profile,
		Tenders:        event.Tenders,
		SourcesScanned: event.SourcesScanned,
		GeneratedAt:    d.now(),
	}
	digest.Drafts = d.drafts(ctx, digest.Tenders)

	delivered := 0
	for _, notifier := range d.notifiers {
		recipients := notifier.Recipients(digest.Profile)
		if len(recipients) == 0 {
			log.Debugf("no %s recipients for profile %s", notifier.Channel(), digest.Profile.Name)
			continue
		}

		err := notifier.Notify(ctx, digest)
		if errors.Is(err, ErrNoRecipients) {
			continue
		}
		d.record(ctx, notifier.Channel(), recipients, digest, err)
		if err == nil {
			delivered++
		}
	}
	return delivered
}

func (d *Dispatcher) drafts(ctx context.Context, tenders []entities.StoredTender) map[string]entities.OutreachDraft {
	if d.drafter == nil || d.maxDrafts <= 0 || len(tenders) == 0 {
		return nil
	}

	ranked := make([]entities.StoredTender, len(tenders))
	copy(ranked, tenders)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})
	if len(ranked) > d.maxDrafts {
		ranked = ranked[:d.maxDrafts]
	}

	drafts := make(map[string]entities.OutreachDraft, len(ranked))
	for _, tender := range ranked {
		start := time.Now()
		draft, err := d.drafter.DraftOutreachEmail(ctx, tender)
		metrics.ScanStepDuration.WithLabelValues("ai_draft").Observe(time.Since(start).Seconds())
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).
					Errorf("failed to draft email for tender %s: %v", tender.ID, err)
			}
			continue
		}
		drafts[tender.ID] = draft
	}
	return drafts
}

func (d *Dispatcher) record(ctx context.Context, channel entities.NotificationChannel, recipients []string,
	digest Digest, sendErr error) {

	entry := entities.NotificationLog{
		Profile:    digest.Profile.Name,
		Channel:    channel,
		TenderIDs:  digest.TenderIDs(),
		Recipients: recipients,
		Subject:    digest.Subject(),
		Success:    sendErr == nil,
		SentAt:     d.now(),
	}

	if sendErr != nil {
		entry.Error = sendErr.Error()
		metrics.NotificationsCounter.WithLabelValues(string(channel), "failure").Inc()
		log.WithField(logger.ErrorTypeField, errorType(channel)).
			Errorf("failed to send %s digest for profile %s: %v", channel, digest.Profile.Name, sendErr)
	} else {
		metrics.NotificationsCounter.WithLabelValues(string(channel), "success").Inc()
		log.Infof("sent %s digest with %d tenders for profile %s", channel, len(digest.Tenders), digest.Profile.Name)
	}

	if d.logs == nil {
		return
	}
	if err := d.logs.Add(ctx, entry); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to record notification: %v", err)
	}
}

func errorType(channel entities.NotificationChannel) string {
	if channel == entities.ChannelTelegram {
		return logger.ErrorTypeTgApi
	}
	return logger.ErrorTypeSmtp
}
