package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dimasergei/agentiq/internal/domain"
)

const (
	defaultRemoteRetries      = 2
	defaultRemoteRetryBackoff = 1500 * time.Millisecond
	defaultRemoteTimeout      = 30 * time.Second
	maxErrorBodyReadSize      = 64 * 1024
)

type RemoteConfig struct {
	Endpoint     string
	Timeout      time.Duration
	Retries      int
	RetryBackoff time.Duration
	Logger       *log.Logger
	Client       *http.Client
}

// RemotePlanner requests execution plans from an upstream agent service
// instead of the local template generator.
type RemotePlanner struct {
	endpoint     string
	retries      int
	retryBackoff time.Duration
	logger       *log.Logger
	client       *http.Client
}

func NewRemotePlanner(cfg RemoteConfig) (*RemotePlanner, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("empty planner endpoint")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid planner endpoint %q: %w", endpoint, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRemoteRetries
	}
	retryBackoff := cfg.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRemoteRetryBackoff
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: timeout,
		}
	}
	return &RemotePlanner{
		endpoint:     strings.TrimRight(endpoint, "/"),
		retries:      retries,
		retryBackoff: retryBackoff,
		logger:       cfg.Logger,
		client:       client,
	}, nil
}

func (p *RemotePlanner) Generate(ctx context.Context, task, role string) (domain.ExecutionPlan, error) {
	if strings.TrimSpace(role) == "" {
		role = DefaultRole
	}
	var lastErr error
	for attempt := 1; attempt <= p.retries+1; attempt++ {
		plan, err := p.generateOnce(ctx, task, role)
		if err == nil {
			return plan, nil
		}
		lastErr = err
		if !isRetryableRemoteError(err) || attempt == p.retries+1 {
			break
		}
		wait := time.Duration(attempt) * p.retryBackoff
		p.logger.Printf("remote plan retry attempt=%d wait=%s reason=%v", attempt, wait, err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.ExecutionPlan{}, ctx.Err()
		case <-timer.C:
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown remote planner error")
	}
	return domain.ExecutionPlan{}, lastErr
}

type executeRequest struct {
	Task      string `json:"task"`
	AgentRole string `json:"agentRole"`
}

func (p *RemotePlanner) generateOnce(ctx context.Context, task, role string) (domain.ExecutionPlan, error) {
	body, err := json.Marshal(executeRequest{Task: task, AgentRole: role})
	if err != nil {
		return domain.ExecutionPlan{}, fmt.Errorf("marshal execute request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/api/agents/execute", bytes.NewReader(body))
	if err != nil {
		return domain.ExecutionPlan{}, fmt.Errorf("create execute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return domain.ExecutionPlan{}, fmt.Errorf("execute request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyReadSize))
		if readErr != nil {
			return domain.ExecutionPlan{}, fmt.Errorf("execute status=%d and read body failed: %w", resp.StatusCode, readErr)
		}
		return domain.ExecutionPlan{}, remoteHTTPError{
			statusCode: resp.StatusCode,
			body:       strings.TrimSpace(string(raw)),
		}
	}

	var plan domain.ExecutionPlan
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		return domain.ExecutionPlan{}, fmt.Errorf("decode execution plan: %w", err)
	}
	if len(plan.Steps) == 0 {
		return domain.ExecutionPlan{}, fmt.Errorf("remote planner returned empty plan")
	}
	return plan, nil
}

func isRetryableRemoteError(err error) bool {
	var statusErr remoteHTTPError
	if errors.As(err, &statusErr) {
		return statusErr.statusCode == http.StatusTooManyRequests || statusErr.statusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

type remoteHTTPError struct {
	statusCode int
	body       string
}

func (e remoteHTTPError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("execute api status=%d", e.statusCode)
	}
	return fmt.Sprintf("execute api status=%d body=%s", e.statusCode, e.body)
}
