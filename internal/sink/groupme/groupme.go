// Package groupme posts messages through a GroupMe bot webhook.
package groupme

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"menubot/internal/sink"
	logx "menubot/pkg/logx"
)

const DefaultAPIURL = "https://api.groupme.com/v3/bots/post"

type Config struct {
	BotID   string
	APIURL  string
	Timeout time.Duration
}

// Sink posts to the GroupMe bot endpoint. The API acknowledges accepted
// posts with 202; any 2xx is treated as delivered.
type Sink struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.BotID) == "" {
		return nil, errors.New("groupme bot id is empty")
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sink{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
	}, nil
}

func (s *Sink) Name() string { return "groupme" }

type botPost struct {
	BotID string `json:"bot_id"`
	Text  string `json:"text"`
}

func (s *Sink) Send(ctx context.Context, msg sink.Message) error {
	body, err := json.Marshal(botPost{BotID: s.cfg.BotID, Text: msg.Text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("groupme: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("groupme: unexpected status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusAccepted {
		s.log.Debug("groupme answered non-202 success", logx.Int("status", resp.StatusCode))
	}
	return nil
}
