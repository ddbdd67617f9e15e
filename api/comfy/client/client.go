// Package client implements the HTTP + WebSocket client for the remote
// generation engine: prompt submission, event tracking, history resolution
// and asset transfer.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pixelforge/generation-engine/pkg/logger"
	"pixelforge/generation-engine/pkg/types"
)

// json is std-compatible so graphs marshal with sorted keys.
var json = sonic.ConfigStd

// Config holds the configuration for the engine client.
type Config struct {
	// BaseURL is the engine's HTTP base URL (e.g. "http://localhost:8188").
	BaseURL string

	// APIKey is an optional bearer token attached to every request and
	// connection.
	APIKey string

	// EventTimeout bounds a single event-channel read; expiry just re-arms
	// the read, the run deadline is enforced separately.
	EventTimeout time.Duration

	// RunTimeout bounds the whole submit-to-completion wait.
	RunTimeout time.Duration

	// RequestTimeout bounds individual HTTP requests.
	RequestTimeout time.Duration
}

// DefaultConfig returns a default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "http://localhost:8188",
		EventTimeout:   120 * time.Second,
		RunTimeout:     300 * time.Second,
		RequestTimeout: 300 * time.Second,
	}
}

// Client talks to one remote generation engine instance. It is safe for
// concurrent use; each tracked submission runs its own event channel.
type Client struct {
	config *Config
	agent  *fiber.Client

	// now and dial are injection points for tests.
	now  func() time.Time
	dial func(ctx context.Context, wsURL string, header http.Header) (eventConn, error)
}

// NewClient creates a client for the given engine.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	c := &Client{
		config: config,
		agent:  fiber.AcquireClient(),
		now:    time.Now,
	}
	c.dial = c.dialWebSocket
	return c
}

// HealthCheck probes the engine's /object_info endpoint. Best effort:
// every failure collapses to false.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req := c.agent.Get(c.config.BaseURL + "/object_info")
	c.applyHeaders(req)
	req.Timeout(c.config.RequestTimeout)

	status, _, errs := req.Bytes()
	if len(errs) > 0 {
		logger.Warn("engine health check failed: %v", errs[0])
		return false
	}
	return status == fiber.StatusOK
}

// SubmitAndTrack submits a concrete graph, follows the event stream to a
// terminal state and reconstructs the typed result from the history query.
// It fails with *ProtocolError on a remote execution error and ErrTimeout
// when the run timeout elapses. The event channel is closed on every exit
// path.
func (c *Client) SubmitAndTrack(ctx context.Context, graph types.NodeGraph) (*types.GenerationResult, error) {
	sessionID := uuid.NewString()

	conn, err := c.dial(ctx, c.wsURL(sessionID), c.header())
	if err != nil {
		return nil, fmt.Errorf("event channel connect: %w", err)
	}
	defer conn.Close()

	// Tear the channel down when the caller gives up so a blocked read
	// unwinds promptly.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	promptID, err := c.submitPrompt(graph, sessionID)
	if err != nil {
		return nil, err
	}
	submitted := c.now()
	logger.Debug("prompt queued: prompt_id=%s session=%s", promptID, sessionID)

	tr := &tracker{
		promptID: promptID,
		src:      conn,
		now:      c.now,
		deadline: submitted.Add(c.config.RunTimeout),
	}
	marks, err := tr.run(ctx)
	if err != nil {
		return nil, err
	}

	outputs, err := c.fetchOutputs(promptID)
	if err != nil {
		return nil, err
	}
	artifacts := extractArtifacts(c.config.BaseURL, graph, outputs)

	result := &types.GenerationResult{Artifacts: artifacts}
	result.QueueSeconds, result.ExecSeconds = deriveTimings(submitted, marks)
	logger.Debug("prompt done: prompt_id=%s artifacts=%d queue=%.3fs exec=%.3fs",
		promptID, len(artifacts), result.QueueSeconds, result.ExecSeconds)
	return result, nil
}

// deriveTimings turns the submit/start/done marks into non-negative queue
// and execution durations. If execution never visibly started, the whole
// wait counts as queue time.
func deriveTimings(submitted time.Time, m marks) (queueSec, execSec float64) {
	if m.execStart.IsZero() {
		queueSec = m.execDone.Sub(submitted).Seconds()
		execSec = 0
	} else {
		queueSec = m.execStart.Sub(submitted).Seconds()
		execSec = m.execDone.Sub(m.execStart).Seconds()
	}
	if queueSec < 0 {
		queueSec = 0
	}
	if execSec < 0 {
		execSec = 0
	}
	return queueSec, execSec
}

// UploadInputAsset uploads one input image and returns the filename the
// engine saved it under. Callers upload sequentially, never concurrently.
func (c *Client) UploadInputAsset(data []byte, filename string) (string, error) {
	req := c.agent.Post(c.config.BaseURL + "/upload/image")
	c.applyHeaders(req)
	req.Timeout(c.config.RequestTimeout)

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("type", "input")

	req.FileData(&fiber.FormFile{
		Fieldname: "image",
		Name:      filename,
		Content:   data,
	})
	req.MultipartForm(args)

	status, body, errs := req.Bytes()
	if len(errs) > 0 {
		return "", &UploadError{Filename: filename, Err: errs[0]}
	}
	if status != fiber.StatusOK {
		return "", &UploadError{Filename: filename, Err: fmt.Errorf("status %d", status)}
	}

	var resp struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &UploadError{Filename: filename, Err: err}
	}
	if resp.Name == "" {
		return filename, nil
	}
	return resp.Name, nil
}

// FetchArtifactBytes downloads raw artifact bytes by a /view URL.
func (c *Client) FetchArtifactBytes(rawURL string) ([]byte, error) {
	req := c.agent.Get(rawURL)
	c.applyHeaders(req)
	req.Timeout(c.config.RequestTimeout)

	status, body, errs := req.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("fetch artifact: %w", errs[0])
	}
	if status != fiber.StatusOK {
		return nil, fmt.Errorf("fetch artifact: status %d", status)
	}
	return body, nil
}

func (c *Client) submitPrompt(graph types.NodeGraph, sessionID string) (string, error) {
	payload := struct {
		Prompt   types.NodeGraph `json:"prompt"`
		ClientID string          `json:"client_id"`
	}{Prompt: graph, ClientID: sessionID}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal prompt: %w", err)
	}

	req := c.agent.Post(c.config.BaseURL + "/prompt")
	c.applyHeaders(req)
	req.Timeout(c.config.RequestTimeout)
	req.ContentType(fiber.MIMEApplicationJSON)
	req.Body(body)

	status, respBody, errs := req.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("submit prompt: %w", errs[0])
	}
	if status != fiber.StatusOK {
		return "", &ProtocolError{Message: fmt.Sprintf("prompt rejected: status %d: %s", status, strings.TrimSpace(string(respBody)))}
	}

	var resp struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parse prompt response: %w", err)
	}
	if resp.PromptID == "" {
		return "", &ProtocolError{Message: "prompt response missing prompt_id"}
	}
	return resp.PromptID, nil
}

func (c *Client) fetchOutputs(promptID string) (map[string]*NodeOutput, error) {
	req := c.agent.Get(c.config.BaseURL + "/history/" + url.PathEscape(promptID))
	c.applyHeaders(req)
	req.Timeout(c.config.RequestTimeout)

	status, body, errs := req.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("fetch history: %w", errs[0])
	}
	if status != fiber.StatusOK {
		return nil, fmt.Errorf("fetch history: status %d", status)
	}

	var hist map[string]historyEntry
	if err := json.Unmarshal(body, &hist); err != nil {
		return nil, fmt.Errorf("parse history: %w", err)
	}
	entry, ok := hist[promptID]
	if !ok {
		return nil, &ProtocolError{Message: fmt.Sprintf("history has no entry for prompt %s", promptID)}
	}
	return entry.Outputs, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.config.APIKey != "" {
		h.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	return h
}

func (c *Client) applyHeaders(a *fiber.Agent) {
	if c.config.APIKey != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.config.APIKey)
	}
}

func (c *Client) wsURL(sessionID string) string {
	base := c.config.BaseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws?clientId=" + url.QueryEscape(sessionID)
}

func (c *Client) dialWebSocket(ctx context.Context, wsURL string, header http.Header) (eventConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.RequestTimeout}
	ws, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: ws, pollTimeout: c.config.EventTimeout}, nil
}
