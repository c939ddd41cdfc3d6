// Command loadgen submits a batch of jobs described by a YAML fleet
// template to a running broker, for local load testing and demos.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/routerfleet/regional-broker/internal/fleet"
)

func main() {
	brokerURL := flag.String("broker-url", "http://localhost:8080", "base URL of the broker HTTP API")
	baseDir := flag.String("base-dir", ".", "directory the --file flag is resolved relative to")
	file := flag.String("file", "", "path (relative to --base-dir) of the fleet-template YAML file")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: loadgen --file <template.yaml> [--broker-url URL] [--base-dir DIR]")
		os.Exit(2)
	}

	tmpl, err := fleet.Load(*baseDir, *file)
	if err != nil {
		slog.Error("failed to load fleet template", slog.Any("error", err))
		os.Exit(1)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	var failed int
	for _, job := range tmpl.Jobs {
		jobID := job.JobID
		if jobID == "" {
			jobID = uuid.NewString()
		}
		body, err := json.Marshal(map[string]any{
			"jobId":   jobID,
			"graphId": job.GraphID,
			"version": job.Version,
			"width":   job.Width,
			"height":  job.Height,
			"minLon":  job.MinLon,
			"minLat":  job.MinLat,
			"maxLon":  job.MaxLon,
			"maxLat":  job.MaxLat,
			"payload": job.Payload,
		})
		if err != nil {
			slog.Error("failed to marshal job", slog.String("job_id", jobID), slog.Any("error", err))
			failed++
			continue
		}

		resp, err := client.Post(*brokerURL+"/enqueue/regional", "application/json", bytes.NewReader(body))
		if err != nil {
			slog.Error("enqueue request failed", slog.String("job_id", jobID), slog.Any("error", err))
			failed++
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			slog.Warn("enqueue rejected", slog.String("job_id", jobID), slog.Int("status", resp.StatusCode))
			failed++
			continue
		}
		slog.Info("job submitted", slog.String("job_id", jobID), slog.Int("tasks", job.Width*job.Height))
	}

	slog.Info("fleet submission complete", slog.Int("total", len(tmpl.Jobs)), slog.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}
