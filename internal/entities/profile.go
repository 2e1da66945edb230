package entities

import (
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

// MonitoringProfile describes what to scan for and whom to notify.
type MonitoringProfile struct {
	ID               int       `gorm:"primaryKey"`
	Name             string    `gorm:"size:255;not null;uniqueIndex" validate:"required"`
	Keywords         []string  `gorm:"serializer:json;type:text" validate:"required,min=1,dive,required"`
	Sources          []Source  `gorm:"serializer:json;type:text" validate:"required,min=1,dive,tender_source"`
	Recipients       []string  `gorm:"serializer:json;type:text" validate:"dive,email"`
	TelegramChatIDs  []int64   `gorm:"serializer:json;type:text"`
	SendEmptyReports bool
	Active           bool `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a copy that shares no slices with the receiver.
func (p MonitoringProfile) Clone() MonitoringProfile {
	p.Keywords = slices.Clone(p.Keywords)
	p.Sources = slices.Clone(p.Sources)
	p.Recipients = slices.Clone(p.Recipients)
	p.TelegramChatIDs = slices.Clone(p.TelegramChatIDs)
	return p
}

func NewMonitoringProfile(name string, keywords []string, sources []Source, recipients []string) *MonitoringProfile {
	clean := func(items []string) []string {
		trimmed := lo.Map(items, func(item string, _ int) string { return strings.TrimSpace(item) })
		return lo.Uniq(lo.Compact(trimmed))
	}

	return &MonitoringProfile{
		Name:       strings.TrimSpace(name),
		Keywords:   clean(keywords),
		Sources:    lo.Uniq(sources),
		Recipients: clean(recipients),
		Active:     true,
	}
}

func (p MonitoringProfile) Validate() error {
	return validate.Struct(p)
}

func (p MonitoringProfile) HasRecipients() bool {
	return len(p.Recipients) > 0 || len(p.TelegramChatIDs) > 0
}
