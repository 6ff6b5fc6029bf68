// Package remote is the thin client for the care-service REST API: the
// authenticated upcoming-reminders fetch and the generic binary download
// used for voice messages. Requests are rate-limited; there is no retry
// layer, callers re-run the sync instead.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/caredose/caredose/internal/models"
)

// DefaultRateLimit is requests per minute against the care service.
const DefaultRateLimit = 30

// Client talks to the care-service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the given API base URL. ratePerMinute
// bounds outgoing requests; zero or negative uses the default.
func NewClient(baseURL string, ratePerMinute int) *Client {
	if ratePerMinute <= 0 {
		ratePerMinute = DefaultRateLimit
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), ratePerMinute),
	}
}

// remindersResponse is the wire envelope of the upcoming-reminders call.
type remindersResponse struct {
	Reminders []models.Reminder `json:"reminders"`
}

// FetchUpcomingReminders returns the authoritative reminder set bounded to
// daysAhead days.
func (c *Client) FetchUpcomingReminders(ctx context.Context, token string, daysAhead int) ([]models.Reminder, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/reminders/upcoming?days=%d", c.baseURL, daysAhead)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch upcoming reminders: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch upcoming reminders: unexpected status %d", resp.StatusCode)
	}

	var envelope remindersResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode reminders: %w", err)
	}
	return envelope.Reminders, nil
}

// DownloadBinary fetches a binary resource to dest. The file is written to
// a temporary sibling first and renamed into place, so a failed download
// never leaves a truncated file behind.
func (c *Client) DownloadBinary(ctx context.Context, url, dest string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("move into place: %w", err)
	}
	return nil
}
