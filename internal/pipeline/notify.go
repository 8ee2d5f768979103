package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

var webhookClient = &http.Client{Timeout: 10 * time.Second}

// Summary aggregates one batch for the ops webhook.
type Summary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int64     `json:"processed"`
	Matched    int64     `json:"matched"`
	Delivered  int64     `json:"delivered"`
	Review     int64     `json:"review"`
	Ineligible int64     `json:"ineligible"`
	Failed     int64     `json:"failed"`
	Parked     int64     `json:"parked"`
	Counties   []string  `json:"counties,omitempty"`
}

// Notify posts the batch summary to the ops webhook. An empty URL disables
// the notification.
func Notify(ctx context.Context, webhookURL string, summary Summary) error {
	if webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal summary")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "pipeline: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := webhookClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "pipeline: webhook request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("pipeline: webhook returned status %d", resp.StatusCode)
	}

	return nil
}
