package logger

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/maxaizer/tender-monitor/pkg/loki"
	log "github.com/sirupsen/logrus"
)

type logrusAdapter struct{}

func (l *logrusAdapter) Error(msg string, args ...any) {
	log.WithFields(log.Fields{"args": args, "source": "loki"}).Error(msg)
}

type lokiHook struct {
	pusher   *loki.Pusher
	minLevel log.Level
}

func (h *lokiHook) Fire(entry *log.Entry) error {
	if entry.Data["source"] == "loki" {
		return nil
	}

	caller := ""
	if entry.Caller != nil {
		caller = filepath.Base(entry.Caller.Function) + ":" + strconv.Itoa(entry.Caller.Line)
	}

	component, _ := entry.Data[ErrorTypeField].(string)
	fields := make(map[string]any, len(entry.Data))
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields[k] = v
	}

	// a full buffer only drops the remote copy, the line is still written locally
	_ = h.pusher.Push(loki.LogEntry{
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Caller:    caller,
		Component: component,
		Fields:    fields,
		Time:      entry.Time,
	})
	return nil
}

func (h *lokiHook) Levels() []log.Level {
	var levels []log.Level
	for _, level := range log.AllLevels {
		if level <= h.minLevel {
			levels = append(levels, level)
		}
	}
	return levels
}

func addLokiHook(ctx context.Context, cfg loki.Config, minLevel log.Level) error {
	p, err := loki.New(ctx, cfg, &logrusAdapter{})
	if err != nil {
		return err
	}
	pusher = p
	log.AddHook(&lokiHook{pusher: p, minLevel: minLevel})
	log.Info("Loki logging enabled")
	return nil
}
