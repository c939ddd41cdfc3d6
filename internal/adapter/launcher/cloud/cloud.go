// Package cloud implements broker.LauncherPort against a provisioning HTTP
// API, retrying transient failures with an exponential backoff.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/routerfleet/regional-broker/internal/domain"
)

// Config configures the cloud launcher's HTTP endpoint and retry behavior.
type Config struct {
	BaseURL         string
	APIKey          string
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
}

// Launcher calls a provisioning API to start workers of a given category.
type Launcher struct {
	cfg        Config
	httpClient *http.Client
}

// New constructs a cloud Launcher. The HTTP client is wrapped with
// otelhttp so provisioning calls appear in the same trace pipeline as
// everything else the broker does.
func New(cfg Config) *Launcher {
	return &Launcher{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type provisionRequest struct {
	GraphID      string `json:"graphId"`
	Version      string `json:"version"`
	DesiredCount int    `json:"desiredCount"`
}

func (l *Launcher) backoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.MaxElapsedTime = l.cfg.MaxElapsedTime
	expo.InitialInterval = l.cfg.InitialInterval
	return expo
}

// EnsureCapacity posts a provisioning request and retries transient
// failures (5xx, connection errors) with backoff. 4xx responses are treated
// as permanent: retrying a malformed request forever would just stampede
// the provisioning API.
func (l *Launcher) EnsureCapacity(ctx context.Context, cat domain.WorkerCategory, desiredCount int) error {
	body, err := json.Marshal(provisionRequest{GraphID: cat.GraphID, Version: cat.Version, DesiredCount: desiredCount})
	if err != nil {
		return fmt.Errorf("%w: marshal provision request: %v", domain.ErrInvalidArgument, err)
	}

	bo := backoff.WithContext(l.backoffConfig(), ctx)
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.BaseURL+"/v1/workers/provision", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if l.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
		}

		resp, err := l.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return backoff.Permanent(fmt.Errorf("%w: provisioning API returned %d", domain.ErrLauncherUnavailable, resp.StatusCode))
		default:
			return fmt.Errorf("%w: provisioning API returned %d", domain.ErrLauncherUnavailable, resp.StatusCode)
		}
	}

	if err := backoff.Retry(op, bo); err != nil {
		slog.Error("cloud launcher failed to provision capacity",
			slog.String("category", cat.String()), slog.Any("error", err))
		return err
	}
	return nil
}
