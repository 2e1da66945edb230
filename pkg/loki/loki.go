package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrBufferFull is returned by Push when the pusher cannot keep up and the
// entry was dropped.
var ErrBufferFull = errors.New("loki: entry buffer is full")

type Logger interface {
	Error(msg string, args ...any)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// Url of the push endpoint, e.g. https://example.grafana.net/loki/api/v1/push
	Url string `validate:"required,url"`

	// TenantKey and TenantValue set an optional multi-tenant header.
	TenantKey   string
	TenantValue string `validate:"required_with=TenantKey"`

	BatchMaxSize int           `validate:"gte=1"`
	BatchMaxWait time.Duration `validate:"gte=1"`

	// BufferSize bounds the number of entries waiting for the batch loop.
	BufferSize int `validate:"gte=1"`

	// Labels are attached to every stream.
	Labels map[string]string

	Username string
	Password string `validate:"required_with=Username"`
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 500
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 4 * cfg.BatchMaxSize
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

// LogEntry is one line shipped to Loki. Component ends up as a stream label so
// that errors of the scanner, notifiers and storage can be queried apart.
type LogEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	Caller    string         `json:"caller,omitempty"`
	Component string         `json:"-"`
	Fields    map[string]any `json:"fields,omitempty"`
	Time      time.Time      `json:"-"`
}

type Pusher struct {
	config    Config
	ctx       context.Context
	cancel    context.CancelFunc
	client    HTTPClient
	entries   chan LogEntry
	quit      chan struct{}
	stopOnce  sync.Once
	waitGroup sync.WaitGroup
	batch     map[string][]streamValue
	batchSize int
	logger    Logger
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values []streamValue     `json:"values"`
}

type streamValue []string

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {
	return NewWithClient(ctx, cfg, logger, &http.Client{Timeout: 10 * time.Second})
}

func NewWithClient(ctx context.Context, cfg Config, logger Logger, client HTTPClient) (*Pusher, error) {
	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		client:  client,
		entries: make(chan LogEntry, cfg.BufferSize),
		quit:    make(chan struct{}),
		batch:   map[string][]streamValue{},
		logger:  logger,
	}

	p.waitGroup.Add(1)
	go p.run()
	return p, nil
}

// Push queues an entry without blocking the caller.
func (p *Pusher) Push(e LogEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case p.entries <- e:
		return nil
	default:
		return ErrBufferFull
	}
}

// Stop flushes what was already queued and stops the batch loop.
func (p *Pusher) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.waitGroup.Wait()
		p.cancel()
	})
}

func (p *Pusher) run() {
	defer p.waitGroup.Done()

	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.quit:
			p.drain()
			p.flush()
			return
		case entry := <-p.entries:
			p.add(entry)
			if p.batchSize >= p.config.BatchMaxSize {
				p.flush()
			}
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Pusher) drain() {
	for {
		select {
		case entry := <-p.entries:
			p.add(entry)
		default:
			return
		}
	}
}

func (p *Pusher) add(entry LogEntry) {
	line, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error("failed to encode log entry", "error", err)
		return
	}
	timestamp := strconv.FormatInt(entry.Time.UnixNano(), 10)
	p.batch[entry.Component] = append(p.batch[entry.Component], streamValue{timestamp, string(line)})
	p.batchSize++
}

func (p *Pusher) flush() {
	if p.batchSize == 0 {
		return
	}
	if err := p.send(); err != nil {
		p.logger.Error("failed to send logs", "error", err)
	}
	p.batch = map[string][]streamValue{}
	p.batchSize = 0
}

func (p *Pusher) streams() []stream {
	streams := make([]stream, 0, len(p.batch))
	for component, values := range p.batch {
		labels := make(map[string]string, len(p.config.Labels)+1)
		for k, v := range p.config.Labels {
			labels[k] = v
		}
		if component != "" {
			labels["component"] = component
		}
		streams = append(streams, stream{Stream: labels, Values: values})
	}
	return streams
}

func (p *Pusher) send() error {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)

	if err := json.NewEncoder(gz).Encode(pushRequest{Streams: p.streams()}); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(p.ctx, http.MethodPost, p.config.Url, buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if p.config.TenantKey != "" {
		req.Header.Set(p.config.TenantKey, p.config.TenantValue)
	}
	if p.config.Username != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected response code from Loki: %s, body: %s", resp.Status, string(body))
	}

	return nil
}
