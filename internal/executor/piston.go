package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jjudge-oj/contestjudge/config"
	"go.uber.org/zap"
)

const (
	defaultVersion     = "*"
	defaultTimeout     = 30 * time.Second
	defaultFileName    = "main"
	maxErrorBodyBytes  = 64 << 10
	maxResultBodyBytes = 16 << 20
)

// PistonClient talks to a Piston-compatible execute endpoint.
type PistonClient struct {
	url     string
	timeout time.Duration
	http    *http.Client
	log     *zap.Logger
}

type executeRequest struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Files    []executeFile `json:"files"`
	Stdin    string        `json:"stdin"`
}

type executeFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewPistonClient constructs a client from config.
func NewPistonClient(cfg config.ExecutorConfig, log *zap.Logger) (*PistonClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("executor url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PistonClient{
		url:     cfg.URL,
		timeout: timeout,
		http:    &http.Client{},
		log:     log,
	}, nil
}

// Execute performs one round trip to the executor. It never retries.
func (c *PistonClient) Execute(ctx context.Context, req Request) (Result, error) {
	version := req.Version
	if version == "" {
		version = defaultVersion
	}
	body, err := json.Marshal(executeRequest{
		Language: req.Language,
		Version:  version,
		Files:    []executeFile{{Name: defaultFileName, Content: req.Source}},
		Stdin:    req.Stdin,
	})
	if err != nil {
		return Result{}, &ExecutionError{Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, &ExecutionError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.log.Warn("executor deadline expired",
				zap.String("language", req.Language),
				zap.Duration("timeout", c.timeout))
			return Result{}, &ExecutionError{Err: fmt.Errorf("%w after %s", ErrExecutionTimeout, c.timeout)}
		}
		return Result{}, &ExecutionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		details := strings.TrimSpace(string(raw))
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil {
			if env.Message != "" {
				details = env.Message
			} else if env.Error != "" {
				details = env.Error
			}
		}
		c.log.Warn("executor returned failure",
			zap.Int("status", resp.StatusCode),
			zap.String("language", req.Language),
			zap.String("details", details))
		return Result{}, &ExecutorError{StatusCode: resp.StatusCode, Details: details}
	}

	var result Result
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBodyBytes))
	if err != nil {
		return Result{}, &ExecutionError{Err: err}
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		c.log.Warn("malformed executor response, treating as empty output", zap.Error(err))
		return Result{}, nil
	}

	c.log.Debug("executed program",
		zap.String("language", req.Language),
		zap.Duration("elapsed", time.Since(started)))
	return result, nil
}
