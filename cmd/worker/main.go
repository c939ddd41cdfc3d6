// Command worker is a demo short-poll client for the regional broker: it
// polls for tasks of one worker category, "executes" them, and reports
// completion. It exists to exercise the broker end to end; a real worker
// would run the transport-network computation the broker never sees.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/routerfleet/regional-broker/internal/adapter/observability"
	"github.com/routerfleet/regional-broker/internal/config"
	"github.com/routerfleet/regional-broker/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	brokerURL := envOr("BROKER_URL", "http://localhost:8080")
	graphID := envOr("WORKER_GRAPH_ID", "default-graph")
	version := envOr("WORKER_VERSION", "v1")
	workerID := envOr("WORKER_ID", uuid.NewString())
	pollInterval := envDurationOr("WORKER_POLL_INTERVAL", 10*time.Second)

	slog.Info("starting demo worker",
		slog.String("worker_id", workerID), slog.String("graph_id", graphID), slog.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: 15 * time.Second}

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker shutting down")
			return
		default:
		}

		tasks, err := dequeue(ctx, client, brokerURL, domain.WorkerStatus{
			WorkerID: workerID, GraphID: graphID, Version: version,
		})
		if err != nil {
			slog.Error("dequeue failed", slog.Any("error", err))
			sleep(ctx, pollInterval)
			continue
		}

		if len(tasks) == 0 {
			sleep(ctx, pollInterval)
			continue
		}

		slog.Info("received tasks", slog.Int("count", len(tasks)))
		for _, t := range tasks {
			// A real worker would run the transport-network computation
			// here; the demo client just reports completion immediately.
			if err := complete(ctx, client, brokerURL, t.JobID, t.Index); err != nil {
				slog.Error("complete failed", slog.String("job_id", t.JobID), slog.Int("index", t.Index), slog.Any("error", err))
			}
		}
	}
}

func dequeue(ctx context.Context, client *http.Client, brokerURL string, status domain.WorkerStatus) ([]domain.Task, error) {
	body, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brokerURL+"/dequeue/regional", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dequeue returned %d", resp.StatusCode)
	}
	var tasks []domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func complete(ctx context.Context, client *http.Client, brokerURL, jobID string, index int) error {
	url := fmt.Sprintf("%s/complete/%s/%d", brokerURL, jobID, index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("complete returned %d", resp.StatusCode)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
