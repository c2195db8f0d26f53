package radio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	logx "menubot/pkg/logx"
)

const DefaultBaseURL = "https://api-1.wbor.org/api"

// Client talks to a Spinitron API proxy. All methods are read-only GETs.
type Client struct {
	baseURL string
	http    *http.Client
	log     logx.Logger
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Spin is one logged play with timing data.
type Spin struct {
	Song    string
	Artist  string
	Start   time.Time
	Elapsed time.Duration
}

// Playlist is the show currently on the books.
type Playlist struct {
	Title     string
	PersonaID int
	Automated bool
}

type spinsPayload struct {
	Items []struct {
		Song     string `json:"song"`
		Artist   string `json:"artist"`
		Start    string `json:"start"`
		Duration int    `json:"duration"`
	} `json:"items"`
}

type playlistsPayload struct {
	Items []struct {
		Title     string `json:"title"`
		PersonaID int    `json:"persona_id"`
		Automated *bool  `json:"automation"`
	} `json:"items"`
}

type personaPayload struct {
	Name string `json:"name"`
}

// CurrentSpin returns the most recent spin, or (nil, nil) when the station
// has no logged spins.
func (c *Client) CurrentSpin(ctx context.Context) (*Spin, error) {
	var payload spinsPayload
	if err := c.getJSON(ctx, "/spins", &payload); err != nil {
		return nil, err
	}
	if len(payload.Items) == 0 {
		return nil, nil
	}
	it := payload.Items[0]
	if it.Song == "" || it.Artist == "" {
		return nil, nil
	}
	start, err := time.Parse("2006-01-02T15:04:05Z07:00", it.Start)
	if err != nil {
		return nil, fmt.Errorf("radio api: spin start %q: %w", it.Start, err)
	}
	return &Spin{
		Song:    it.Song,
		Artist:  it.Artist,
		Start:   start,
		Elapsed: time.Since(start),
	}, nil
}

// CurrentPlaylist returns the most recent playlist, or (nil, nil) when none
// is active or the payload lacks the fields we rely on.
func (c *Client) CurrentPlaylist(ctx context.Context) (*Playlist, error) {
	var payload playlistsPayload
	if err := c.getJSON(ctx, "/playlists", &payload); err != nil {
		return nil, err
	}
	if len(payload.Items) == 0 {
		return nil, nil
	}
	it := payload.Items[0]
	if it.Title == "" || it.Automated == nil {
		return nil, nil
	}
	return &Playlist{
		Title:     it.Title,
		PersonaID: it.PersonaID,
		Automated: *it.Automated,
	}, nil
}

// PersonaName resolves a persona (DJ) id to a display name.
func (c *Client) PersonaName(ctx context.Context, id int) (string, error) {
	if id <= 0 {
		return "", nil
	}
	var payload personaPayload
	if err := c.getJSON(ctx, "/personas/"+strconv.Itoa(id), &payload); err != nil {
		return "", err
	}
	return payload.Name, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("radio api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("radio api: unexpected status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("radio api: decode %s: %w", path, err)
	}
	return nil
}
