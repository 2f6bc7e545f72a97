// Package notify delivers engine notifications to a relay running in
// another process.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

type HTTPNotifier struct {
	url    string
	secret string
	client *http.Client
}

func NewHTTPNotifier(url, secret string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify posts n as JSON. Anything but a 200 is ErrUpstreamUnavailable.
func (h *HTTPNotifier) Notify(ctx context.Context, n core.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", h.secret)

	resp, err := h.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("module", "adapters.notify").Str("action", string(n.Action)).Str("game", n.GameName).Msg("notify failed")
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Warn().Str("module", "adapters.notify").Int("status", resp.StatusCode).Str("action", string(n.Action)).Str("game", n.GameName).Msg("notify rejected")
		return fmt.Errorf("%w: relay answered %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	log.Debug().Str("module", "adapters.notify").Str("action", string(n.Action)).Str("game", n.GameName).Msg("notified")
	return nil
}
