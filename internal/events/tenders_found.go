package events

import "github.com/maxaizer/tender-monitor/internal/entities"

var TendersFoundTopic = "TendersFoundEvent"

// TendersFound is published after a profile scan stored new tenders, or with
// no tenders when the profile asks for empty reports.
type TendersFound struct {
	Profile        entities.MonitoringProfile
	Tenders        []entities.StoredTender
	SourcesScanned int
}

func (e TendersFound) Empty() bool {
	return len(e.Tenders) == 0
}
