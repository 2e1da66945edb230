package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockLogger struct{}

func (m *MockLogger) Error(msg string, args ...any) {}

type recordingClient struct {
	mu       sync.Mutex
	requests []pushRequest
	headers  []http.Header
}

func (c *recordingClient) Do(req *http.Request) (*http.Response, error) {
	gz, err := gzip.NewReader(req.Body)
	if err != nil {
		return nil, err
	}
	var body pushRequest
	if err := json.NewDecoder(gz).Decode(&body); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.requests = append(c.requests, body)
	c.headers = append(c.headers, req.Header.Clone())
	c.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusNoContent,
		Body:       io.NopCloser(bytes.NewReader(nil)),
	}, nil
}

func Test_ConfigValidation(t *testing.T) {
	cfg := Config{}
	_, err := New(context.Background(), cfg, &MockLogger{})
	assert.Error(t, err)

	cfg.Url = "http://loki:3100/loki/api/v1/push"
	pusher, err := New(context.Background(), cfg, &MockLogger{})
	require.NoError(t, err)
	defer pusher.Stop()

	assert.Equal(t, cfg.Url, pusher.config.Url)
	assert.Equal(t, 500, pusher.config.BatchMaxSize)
	assert.Equal(t, 2000, pusher.config.BufferSize)
	assert.Equal(t, 5*time.Second, pusher.config.BatchMaxWait)
	assert.Equal(t, map[string]string{}, pusher.config.Labels)
}

func Test_Config_PasswordRequiredWithUsername(t *testing.T) {
	cfg := Config{Url: "http://loki:3100/loki/api/v1/push", Username: "user"}
	_, err := New(context.Background(), cfg, &MockLogger{})
	assert.Error(t, err)
}

func Test_Stop_FlushesEntriesGroupedByComponent(t *testing.T) {
	client := &recordingClient{}
	cfg := Config{
		Url:          "http://loki:3100/loki/api/v1/push",
		BatchMaxWait: time.Hour,
		Labels:       map[string]string{"app": "tender-monitor"},
		Username:     "user",
		Password:     "secret",
	}
	pusher, err := NewWithClient(context.Background(), cfg, &MockLogger{}, client)
	require.NoError(t, err)

	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "smtp down", Component: "smtp"}))
	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "db locked", Component: "db"}))
	require.NoError(t, pusher.Push(LogEntry{Level: "error", Message: "db again", Component: "db"}))
	pusher.Stop()
	pusher.Stop()

	require.Len(t, client.requests, 1)
	streams := client.requests[0].Streams
	require.Len(t, streams, 2)

	counts := map[string]int{}
	for _, s := range streams {
		assert.Equal(t, "tender-monitor", s.Stream["app"])
		counts[s.Stream["component"]] = len(s.Values)
	}
	assert.Equal(t, map[string]int{"smtp": 1, "db": 2}, counts)

	user, password, ok := (&http.Request{Header: client.headers[0]}).BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "secret", password)
}

func Test_Push_ReturnsErrBufferFullInsteadOfBlocking(t *testing.T) {
	p := &Pusher{entries: make(chan LogEntry, 1)}

	assert.NoError(t, p.Push(LogEntry{Message: "first"}))
	assert.ErrorIs(t, p.Push(LogEntry{Message: "second"}), ErrBufferFull)
}
