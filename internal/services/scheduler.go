package services

import (
	"context"
	"errors"
	"sync"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type scanner interface {
	ScanAll(ctx context.Context) (ScanReport, error)
}

// Scheduler runs the scan cycle on a cron schedule. A cycle that is still
// running when the next one is due makes the next one skip.
type Scheduler struct {
	scanner scanner
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

func NewScheduler(scanner scanner, schedule string) (*Scheduler, error) {
	if scanner == nil {
		return nil, errors.New("scanner is nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		scanner: scanner,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger())))),
		ctx:     ctx,
		cancel:  cancel,
	}

	if _, err := s.cron.AddFunc(schedule, s.runScan); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Infof("scan scheduler started, next scan at %v", s.cron.Entries()[0].Next)
}

// Stop cancels a running scan and waits for it to return.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.cron.Stop().Done()
	})
}

// RunNow triggers a cycle outside the schedule, e.g. on startup.
func (s *Scheduler) RunNow() {
	go s.runScan()
}

func (s *Scheduler) runScan() {
	report, err := s.scanner.ScanAll(s.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("scan cycle failed: %v", err)
		return
	}

	for _, p := range report.Profiles {
		if failed := p.FailedSources(); len(failed) > 0 {
			log.Warnf("profile %s: sources without results: %v", p.Profile, failed)
		}
	}
}
