package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/maxaizer/tender-monitor/internal/config"
	"github.com/maxaizer/tender-monitor/internal/metrics"
	"github.com/maxaizer/tender-monitor/pkg/loki"
	log "github.com/sirupsen/logrus"
)

const ErrorTypeField = "error_type"

const (
	ErrorTypeDb      = "db"
	ErrorTypeSource  = "source"
	ErrorTypeScraper = "scraper_api"
	ErrorTypeSmtp    = "smtp"
	ErrorTypeTgApi   = "tg_api"
	ErrorTypeAiApi   = "ai_api"
	ErrorTypeCache   = "cache"
)

var (
	logFile *os.File
	pusher  *loki.Pusher
)

type prometheusHook struct{}

func (h *prometheusHook) Fire(entry *log.Entry) error {
	errorType, ok := entry.Data[ErrorTypeField].(string)
	if !ok {
		errorType = "unknown"
	}

	metrics.ErrorsCounter.WithLabelValues(errorType).Inc()
	return nil
}

func (h *prometheusHook) Levels() []log.Level {
	return []log.Level{
		log.ErrorLevel,
		log.FatalLevel,
		log.PanicLevel,
	}
}

func Setup(ctx context.Context, cfg config.LoggerConfig) {
	if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	var err error
	logFile, err = os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000 -0700",
	})
	log.SetReportCaller(true)

	level := parseLevel(cfg.LogLevel)
	log.SetLevel(level)
	log.AddHook(&prometheusHook{})

	if cfg.LokiURL == "" {
		return
	}

	lokiCfg := loki.Config{
		Url:      cfg.LokiURL,
		Username: cfg.LokiUser,
		Password: cfg.LokiPassword,
		Labels:   map[string]string{"app": cfg.AppName},
	}
	if err := addLokiHook(ctx, lokiCfg, level); err != nil {
		log.WithField(ErrorTypeField, "loki").Errorf("failed to enable loki logging: %v", err)
	}
}

func parseLevel(level config.LogLevel) log.Level {
	switch level {
	case config.LevelDebug:
		return log.DebugLevel
	case config.LevelWarning:
		return log.WarnLevel
	case config.LevelError:
		return log.ErrorLevel
	case config.LevelFatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

func Cleanup() {
	if pusher != nil {
		pusher.Stop()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}
