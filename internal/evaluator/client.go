// Package evaluator talks to the remote resume/job fit evaluation service.
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/fitcheck/internal/logger"
	"github.com/spigell/fitcheck/internal/utils"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://turtil-project.onrender.com"
	DefaultEvaluatePath = "/evaluate"
	DefaultHealthPath   = "/health"

	defaultTimeout       = 30 * time.Second
	defaultHealthTimeout = 5 * time.Second
	defaultMaxLogLength  = 200
	userAgent            = "spigell/fitcheck"

	requestIDHeader = "X-Request-ID"
)

// Config describes one evaluation backend deployment.
type Config struct {
	BaseURL       string
	EvaluatePath  string
	HealthPath    string
	Timeout       time.Duration
	HealthTimeout time.Duration
	UserAgent     string
	// LearningPathFields lists response keys that may hold the learning path,
	// in order of preference.
	LearningPathFields []string
	MaxLogLength       int
}

type Client struct {
	logger *zap.Logger
	// HTTPClient carries evaluation calls. HealthClient is a separate client
	// so a slow ping never shares limits with an evaluation.
	HTTPClient   *http.Client
	HealthClient *http.Client

	BaseURL      string
	EvaluatePath string
	HealthPath   string
	UserAgent    string

	learningPathFields []string
	maxLogLen          int
	newRequestID       func() string
}

func New(cfg *Config, log *zap.Logger) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	healthTimeout := cfg.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}

	fields := cfg.LearningPathFields
	if len(fields) == 0 {
		fields = DefaultLearningPathFields
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Client{
		logger:             log,
		HTTPClient:         &http.Client{Timeout: timeout},
		HealthClient:       &http.Client{Timeout: healthTimeout},
		BaseURL:            baseURL,
		EvaluatePath:       orDefault(cfg.EvaluatePath, DefaultEvaluatePath),
		HealthPath:         orDefault(cfg.HealthPath, DefaultHealthPath),
		UserAgent:          orDefault(cfg.UserAgent, userAgent),
		learningPathFields: fields,
		maxLogLen:          maxLogLen,
		newRequestID:       uuid.NewString,
	}
}

// Evaluate posts one resume/job description pair and normalizes the answer.
// Blank input fails with a *ValidationError before any network call. There
// are no retries.
func (c *Client) Evaluate(ctx context.Context, req Request) (*Result, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation request: %w", err)
	}

	requestID := c.newRequestID()
	log := logger.WithBackendFields(c.logger, c.BaseURL, requestID)
	target := c.url(c.EvaluatePath)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build evaluation request: %w", err)
	}

	httpReq = c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set(requestIDHeader, requestID)

	log.Debug("posting evaluation",
		zap.Int("resume_chars", len(req.ResumeText)),
		zap.Int("job_description_chars", len(req.JobDescription)),
	)

	body, err := c.do(c.HTTPClient, httpReq)
	if err != nil {
		return nil, err
	}

	log.Debug("got evaluation response",
		zap.Int("response_length", len(body)),
		zap.String("response_preview", utils.TruncateForLog(string(body), c.maxLogLen)),
	)

	raw, err := decodeObject(body)
	if err != nil {
		return nil, err
	}

	return normalize(raw, c.learningPathFields), nil
}

// Ping checks the health endpoint. Any 2xx means the backend is up.
func (c *Client) Ping(ctx context.Context) error {
	target := c.url(c.HealthPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}

	_, err = c.do(c.HealthClient, c.setHeaders(req))
	return err
}

// Endpoint returns the full evaluation URL.
func (c *Client) Endpoint() string {
	return c.url(c.EvaluatePath)
}

func (c *Client) url(path string) string {
	return c.BaseURL + "/" + strings.TrimLeft(path, "/")
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}
