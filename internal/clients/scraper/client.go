package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrJobFailed  = errors.New("scrape job failed")
	ErrJobTimeout = errors.New("scrape job timed out")
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the scraper service, which runs the per-source scrapers as
// asynchronous jobs.
type Client struct {
	baseURL      string
	httpClient   HTTPClient
	rateLimiter  *rate.Limiter
	pollInterval time.Duration
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: 5 * time.Second,
	}
}

func (c *Client) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

func (c *Client) SetRateLimit(maxRequestsPerSecond float64) {
	c.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
}

func (c *Client) SetPollInterval(interval time.Duration) {
	c.pollInterval = interval
}

func (c *Client) Health(ctx context.Context) error {
	_, err := c.sendRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("scraper service is unhealthy: %w", err)
	}
	return nil
}

func (c *Client) StartJob(ctx context.Context, request JobRequest) (Job, error) {
	if request.Filters == nil {
		request.Filters = map[string]any{}
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return Job{}, err
	}

	body, err := c.sendRequest(ctx, http.MethodPost, "/scrape/start", bytes.NewReader(payload))
	if err != nil {
		return Job{}, err
	}

	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("error decoding JSON response: %w", err)
	}
	if job.ID == "" {
		return Job{}, fmt.Errorf("scraper service returned no job id for source %s", request.Source)
	}
	return job, nil
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (Job, error) {
	body, err := c.sendRequest(ctx, http.MethodGet, "/scrape/status/"+url.PathEscape(jobID), nil)
	if err != nil {
		return Job{}, err
	}

	var job Job
	if err := json.Unmarshal(body, &job); err != nil {
		return Job{}, fmt.Errorf("error decoding JSON response: %w", err)
	}
	return job, nil
}

func (c *Client) JobResults(ctx context.Context, jobID string) ([]Tender, error) {
	body, err := c.sendRequest(ctx, http.MethodGet, "/scrape/results/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, err
	}

	var results jobResults
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("error decoding JSON response: %w", err)
	}
	return results.Tenders, nil
}

// WaitForJob polls the job until it finishes, the timeout elapses or ctx is done.
func (c *Client) WaitForJob(ctx context.Context, jobID string, timeout time.Duration) (Job, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		job, err := c.JobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, fmt.Errorf("%w: %s", ErrJobTimeout, jobID)
			}
			return Job{}, err
		}

		if job.Status.Finished() {
			if job.Status == StatusCompleted {
				return job, nil
			}
			message := job.ErrorMessage
			if message == "" {
				message = "unknown error"
			}
			return job, fmt.Errorf("%w: %s: %s", ErrJobFailed, jobID, message)
		}

		select {
		case <-ctx.Done():
			return job, fmt.Errorf("%w: %s", ErrJobTimeout, jobID)
		case <-ticker.C:
		}
	}
}

func (c *Client) sendRequest(ctx context.Context, method string, path string, body io.Reader) ([]byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %v, body: %v", resp.StatusCode, string(body))
	}

	return body, nil
}
