package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

var (
	ErrEmptyResponse = errors.New("gemini returned no content")
	ErrNotText       = errors.New("gemini response has no text parts")
)

type Model string

const (
	//Model15Flash is fastest multimodal model with great performance for diverse, repetitive tasks
	Model15Flash Model = "gemini-1.5-flash"
	//Model15Flash8b is the smallest model for lower intelligence use cases
	Model15Flash8b Model = "gemini-1.5-flash-8b"
	//Model15Pro is next-generation model with a breakthrough 2 million context window
	Model15Pro Model = "gemini-1.5-pro"
)

const (
	generateAttempts = 3
	retryDelay       = 2 * time.Second
)

type Config struct {
	APIKey            string
	Model             Model
	Temperature       float32
	MaxOutputTokens   int32
	SystemInstruction string
	// Zero disables the corresponding limiter.
	RequestsPerMinute float64
	RequestsPerDay    float64
}

// Client generates short texts with a single Gemini model, throttled to the
// account's per-minute and per-day quotas.
type Client struct {
	client            *genai.Client
	model             *genai.GenerativeModel
	minuteRateLimiter *rate.Limiter
	dayRateLimiter    *rate.Limiter
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if cfg.Model == "" {
		cfg.Model = Model15Flash
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(string(cfg.Model))
	model.SetTemperature(cfg.Temperature)
	if cfg.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(cfg.MaxOutputTokens)
	}
	if cfg.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(cfg.SystemInstruction))
	}

	c := &Client{client: client, model: model}
	if cfg.RequestsPerMinute > 0 {
		c.minuteRateLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), 1)
	}
	if cfg.RequestsPerDay > 0 {
		c.dayRateLimiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerDay/86400), int(cfg.RequestsPerDay))
	}
	return c, nil
}

// GenerateResponse retries server-side failures (500, 503) a few times; quota
// and validation errors are returned right away.
func (c *Client) GenerateResponse(ctx context.Context, text string) (string, error) {
	var resp string
	var err error

	_, _, _ = lo.AttemptWhileWithDelay(generateAttempts, retryDelay, func(i int, _ time.Duration) (error, bool) {
		if i > 0 {
			log.Warnf("gemini api failed with %v, retrying...", err)
		}
		resp, err = c.waitAndGenerateResponse(ctx, text)
		return err, isRetryable(err) && ctx.Err() == nil
	})

	return resp, err
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) waitAndGenerateResponse(ctx context.Context, text string) (string, error) {
	for _, limiter := range []*rate.Limiter{c.minuteRateLimiter, c.dayRateLimiter} {
		if limiter == nil {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	response, err := c.model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", err
	}
	return responseText(response)
}

func responseText(response *genai.GenerateContentResponse) (string, error) {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	found := false
	for _, part := range response.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			text.WriteString(string(textPart))
			found = true
		}
	}
	if !found {
		return "", ErrNotText
	}
	return text.String(), nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 500") || strings.Contains(msg, "Error 503")
}
