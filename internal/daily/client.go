// Package daily is a minimal client for the Daily.co REST API, covering
// only what transcript reconciliation needs: listing transcript entries,
// resolving the room id used as the join key, and downloading finished
// WebVTT artifacts through short-lived access links.
package daily

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrNotFound is returned for 404 responses at any step. Daily answers
// 404 both for "no transcripts exist yet" and for expired access links,
// so callers treat it as "not yet available", never as a hard failure.
var ErrNotFound = errors.New("daily: not found")

// statusFinished is Daily's terminal transcript processing status.
const statusFinished = "t_finished"

const (
	defaultTimeout         = 10 * time.Second
	defaultDownloadTimeout = 30 * time.Second
	defaultMaxConcurrent   = 8
)

// Entry is one item in Daily's transcript index.
type Entry struct {
	ID               string `json:"id"`
	RoomID           string `json:"room_id"`
	MeetingSessionID string `json:"meeting_session_id"`
	Status           string `json:"status"`
	VTTAvailable     bool   `json:"is_vtt_available"`
}

// Ready reports whether the entry's VTT artifact can be fetched.
func (e Entry) Ready() bool {
	return e.Status == statusFinished && e.VTTAvailable
}

// Options tune client timeouts and the outbound concurrency cap. Zero
// values take defaults.
type Options struct {
	Timeout         time.Duration
	DownloadTimeout time.Duration
	MaxConcurrent   int64
}

// Client talks to the Daily.co API. All exported methods respect the
// configured concurrency cap so bursts of reconciliations across rooms
// stay inside Daily's rate limits.
type Client struct {
	apiKey   string
	baseURL  string
	api      *http.Client
	download *http.Client
	sem      *semaphore.Weighted
}

// NewClient creates a Daily API client.
func NewClient(apiKey, baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = defaultDownloadTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	return &Client{
		apiKey:   apiKey,
		baseURL:  baseURL,
		api:      &http.Client{Timeout: opts.Timeout},
		download: &http.Client{Timeout: opts.DownloadTimeout},
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
	}
}

// Locate finds the transcript entry for a room. It prefers a finished
// entry with an available VTT artifact; failing that it returns the first
// matching entry as a not-yet-ready handle, and (nil, nil) when Daily has
// no entry for the room at all.
func (c *Client) Locate(ctx context.Context, roomName string) (*Entry, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	var list struct {
		Data []Entry `json:"data"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/transcript", &list); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, nil
	}

	// Room id is the stable join key; the lookup is best effort and a
	// failure just narrows matching to the name-based heuristics.
	roomID := c.roomID(ctx, roomName)

	var fallback *Entry
	for i := range list.Data {
		entry := &list.Data[i]
		if !matchesRoom(entry, roomName, roomID) {
			continue
		}
		if entry.Ready() {
			return entry, nil
		}
		if fallback == nil {
			fallback = entry
		}
	}
	return fallback, nil
}

// matchesRoom decides whether a transcript entry belongs to a room. The
// provider-assigned room id is the preferred key; matching the raw room
// name, or finding either inside the meeting session id, are best-effort
// heuristics for deployments where the id join key is missing. Tighten
// here, not in the reconciler, if the heuristics prove too loose.
func matchesRoom(entry *Entry, roomName, roomID string) bool {
	if roomID != "" && entry.RoomID == roomID {
		return true
	}
	if entry.RoomID == roomName {
		return true
	}
	if entry.MeetingSessionID != "" {
		if roomName != "" && strings.Contains(entry.MeetingSessionID, roomName) {
			return true
		}
		if roomID != "" && strings.Contains(entry.MeetingSessionID, roomID) {
			return true
		}
	}
	return false
}

// FetchVTT resolves the short-lived access link for a transcript entry
// and downloads the WebVTT content.
func (c *Client) FetchVTT(ctx context.Context, entryID string) (string, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.sem.Release(1)

	var link struct {
		DownloadLink string `json:"download_link"`
		URL          string `json:"url"`
		AccessLink   string `json:"access_link"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/transcript/"+entryID+"/access-link", &link); err != nil {
		return "", err
	}

	vttURL := link.DownloadLink
	if vttURL == "" {
		vttURL = link.URL
	}
	if vttURL == "" {
		vttURL = link.AccessLink
	}
	if vttURL == "" {
		return "", fmt.Errorf("daily: access-link response for %s carries no link", entryID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, vttURL, nil)
	if err != nil {
		return "", fmt.Errorf("daily: create download request: %w", err)
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return "", fmt.Errorf("daily: download vtt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("daily: vtt download returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("daily: read vtt body: %w", err)
	}
	return string(body), nil
}

// roomID resolves the provider-assigned id for a room name. Best effort:
// any failure yields "" and matching falls back to name heuristics.
func (c *Client) roomID(ctx context.Context, roomName string) string {
	var room struct {
		ID string `json:"id"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/rooms/"+roomName, &room); err != nil {
		return ""
	}
	return room.ID
}

// getJSON performs an authenticated GET and decodes the JSON response.
// 404 maps to ErrNotFound; other non-2xx statuses are plain errors.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("daily: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("daily: request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("daily: %s returned %d: %s", url, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("daily: decode response from %s: %w", url, err)
	}
	return nil
}
