// Package steam talks to the Steam Web API (owned games) and the storefront
// appdetails endpoint (per-title genres and description). All storefront
// requests pass through a shared cadence gate and carry a bounded retry
// policy, since the storefront rate-limits aggressively.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gamebot/internal/domain"
	"gamebot/internal/ratelimit"
)

const (
	defaultAPIBase   = "https://api.steampowered.com"
	defaultStoreBase = "https://store.steampowered.com"
	defaultTimeout   = 10 * time.Second
	userAgent        = "gamebot/1.0"
)

// Config holds client credentials and tuning.
type Config struct {
	APIKey     string
	UserID     string
	APIBase    string        // Override for tests
	StoreBase  string        // Override for tests
	Timeout    time.Duration // Per-request timeout
	MaxRetries int           // Attempts per storefront request
	RetryDelay time.Duration // Base backoff, multiplied by attempt number
}

// Client implements domain.CatalogClient against Steam.
type Client struct {
	cfg        Config
	gate       *ratelimit.Gate
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Steam catalog client. The gate is shared across all
// callers so the aggregate storefront request rate stays under the ceiling
// regardless of how many fetch workers are running.
func NewClient(cfg Config, gate *ratelimit.Gate, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.StoreBase == "" {
		cfg.StoreBase = defaultStoreBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	return &Client{
		cfg:  cfg,
		gate: gate,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// OwnedGames returns the user's owned titles from the Web API.
func (c *Client) OwnedGames(ctx context.Context) ([]domain.LibraryItem, error) {
	query := url.Values{}
	query.Set("key", c.cfg.APIKey)
	query.Set("steamid", c.cfg.UserID)
	query.Set("include_appinfo", "true")
	query.Set("format", "json")

	body, err := c.doRequest(ctx, c.cfg.APIBase+"/IPlayerService/GetOwnedGames/v1/", query)
	if err != nil {
		return nil, fmt.Errorf("fetch owned games: %w", err)
	}

	var resp ownedGamesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse owned games response: %w", err)
	}

	items := make([]domain.LibraryItem, 0, len(resp.Response.Games))
	for _, g := range resp.Response.Games {
		items = append(items, domain.LibraryItem{AppID: g.AppID, Name: g.Name})
	}
	c.logger.Debug("fetched owned games", "count", len(items))
	return items, nil
}

// AppDetails fetches genres and description for one app id from the
// storefront, honoring the cadence gate and the retry policy.
func (c *Client) AppDetails(ctx context.Context, appID int64) (*domain.EntryUpdate, error) {
	query := url.Values{}
	query.Set("appids", strconv.FormatInt(appID, 10))

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.gate.Wait(ctx); err != nil {
			return nil, err
		}

		update, err := c.fetchDetails(ctx, appID, query)
		if err == nil {
			return update, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
		if attempt == c.cfg.MaxRetries {
			break
		}

		// Linear backoff: base delay scaled by attempt number
		delay := c.cfg.RetryDelay * time.Duration(attempt)
		c.logger.Warn("retrying app details", "appid", appID, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// fetchDetails performs one storefront request.
func (c *Client) fetchDetails(ctx context.Context, appID int64, query url.Values) (*domain.EntryUpdate, error) {
	reqURL := fmt.Sprintf("%s/api/appdetails?%s", c.cfg.StoreBase, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("steam request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("appid %d: %w", appID, domain.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("steam request error", "appid", appID, "status", resp.StatusCode)
		return nil, &transientError{err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	// Envelope is keyed by the app id as a string
	var envelope map[string]appDetailsResult
	if err := json.Unmarshal(body, &envelope); err != nil {
		// Malformed payloads are not retried
		return nil, fmt.Errorf("parse app details: %w", err)
	}

	result, ok := envelope[strconv.FormatInt(appID, 10)]
	if !ok || !result.Success {
		return nil, fmt.Errorf("appid %d: %w", appID, domain.ErrNoDetail)
	}

	genres := make([]string, 0, len(result.Data.Genres))
	for _, g := range result.Data.Genres {
		genres = append(genres, strings.ToLower(g.Description))
	}
	description := strings.TrimSpace(result.Data.ShortDescription)
	if description == "" {
		description = domain.NoDescription
	}

	return &domain.EntryUpdate{
		Name:        result.Data.Name,
		Genres:      genres,
		Description: description,
	}, nil
}

// doRequest performs one GET and returns the body for 200 responses.
func (c *Client) doRequest(ctx context.Context, base string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return body, nil
}

// transientError marks failures worth retrying (network, 5xx).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// retryable reports whether the fetch should be attempted again.
// Rate limits and transient transport failures retry; malformed payloads
// and missing detail pages do not.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, domain.ErrRateLimited)
}
