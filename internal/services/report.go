package services

import (
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
)

type SourceResult struct {
	Source  entities.Source
	Status  entities.ScanStatus
	Fetched int
	Err     error
}

type ProfileReport struct {
	Profile   string
	Sources   []SourceResult
	Fetched   int
	Relevant  int
	Stored    int
	Recovered int
	Skipped   bool
	Err       error
}

// FailedSources lists sources that contributed nothing because of an error or timeout.
func (r ProfileReport) FailedSources() []entities.Source {
	var failed []entities.Source
	for _, result := range r.Sources {
		if result.Status != entities.ScanCompleted {
			failed = append(failed, result.Source)
		}
	}
	return failed
}

type ScanReport struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Profiles   []ProfileReport
}

func (r ScanReport) Stored() int {
	total := 0
	for _, p := range r.Profiles {
		total += p.Stored
	}
	return total
}
