package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"github.com/lcalzada-xor/threatwatch/internal/telemetry"
)

// WebhookNotifier posts high-severity findings to the platform's alert
// dispatcher. When no webhook URL is configured it degrades to structured
// logging, so scheduled scans never lose alerts silently.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// NotifyHighSeverityMatches sends one payload per client. Formatting and
// downstream delivery are owned by the dispatcher.
func (n *WebhookNotifier) NotifyHighSeverityMatches(ctx context.Context, clientID string, findings []ports.AlertFinding) error {
	if len(findings) == 0 {
		return nil
	}

	if n.url == "" {
		for _, f := range findings {
			slog.Warn("high severity match",
				"client_id", clientID,
				"cve_id", f.CVEID,
				"asset", f.AssetName,
				"cvss", f.CVSSScore,
				"kev", f.IsKEV,
			)
		}
		telemetry.AlertsDispatched.Inc()
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"client_id": clientID,
		"findings":  findings,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("alert dispatch failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert dispatcher returned HTTP %d", resp.StatusCode)
	}

	telemetry.AlertsDispatched.Inc()
	return nil
}

var _ ports.AlertNotifier = (*WebhookNotifier)(nil)
