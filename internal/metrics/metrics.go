package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_monitor_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tender_monitor_scan_duration_seconds",
			Help:    "Duration of each profile scan in seconds.",
			Buckets: []float64{10, 60, 300, 900, 1800, 3600},
		},
	)
	ScanStepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "tender_monitor_scan_step_duration_seconds",
			Help:       "Duration of each step of a profile scan.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	FetchedCandidatesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_monitor_candidates_fetched_total",
			Help: "Total number of candidates returned by sources.",
		},
		[]string{"source"},
	)
	RejectedCandidatesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tender_monitor_candidates_low_relevance_total",
			Help: "Total number of candidates dropped for low relevance.",
		},
	)
	DuplicatesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_monitor_duplicates_total",
			Help: "Total number of candidates identified as duplicates.",
		},
		[]string{"reason"},
	)
	StoredTendersCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tender_monitor_tenders_stored_total",
			Help: "Total number of newly stored tenders.",
		},
	)
	NotificationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_monitor_notifications_total",
			Help: "Total number of notification attempts.",
		},
		[]string{"channel", "status"},
	)
	SweptRecordsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tender_monitor_swept_records_total",
			Help: "Total number of records removed by retention sweeps.",
		},
		[]string{"kind"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			ErrorsCounter,
			ScanDuration,
			ScanStepDuration,
			FetchedCandidatesCounter,
			RejectedCandidatesCounter,
			DuplicatesCounter,
			StoredTendersCounter,
			NotificationsCounter,
			SweptRecordsCounter,
		)
	})
}

func StartMetricsServer(port int) *http.Server {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()
	return server
}
