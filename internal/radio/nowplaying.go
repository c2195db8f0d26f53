package radio

import (
	"context"
	"strings"
	"time"

	logx "menubot/pkg/logx"
)

// DefaultMaxSongAge drops spins older than this; a stale spin usually means
// the station is between songs or signed off.
const DefaultMaxSongAge = 15 * time.Minute

// NowPlaying is the optional on-air snippet appended after menu content.
// The zero value means "nothing to show".
type NowPlaying struct {
	Song   string
	Artist string
	Show   string
	DJ     string
}

func (n NowPlaying) IsZero() bool { return n.Song == "" }

// Line renders the snippet block placed after the last menu message.
func (n NowPlaying) Line() string {
	if n.IsZero() {
		return ""
	}
	var b strings.Builder
	b.WriteString("-------------------\n\n")
	b.WriteString("🎧 Now playing on WBOR(.org):\n\n")
	b.WriteString("🎤 " + n.Artist + " - " + n.Song)
	if n.Show != "" {
		b.WriteString("\n\n▶️ on the show " + n.Show)
		if n.DJ != "" {
			b.WriteString(" with 👤 " + n.DJ)
		}
	}
	return b.String()
}

// Source composes the proxy endpoints into a best-effort NowPlaying value.
//
// Every failure path maps to absence: the menu cycle must never be affected
// by the radio side.
type Source struct {
	client  *Client
	maxAge  time.Duration
	enabled bool
	log     logx.Logger
}

type SourceConfig struct {
	Enabled    bool
	MaxSongAge time.Duration
}

func NewSource(cfg SourceConfig, client *Client, log logx.Logger) *Source {
	maxAge := cfg.MaxSongAge
	if maxAge <= 0 {
		maxAge = DefaultMaxSongAge
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Source{client: client, maxAge: maxAge, enabled: cfg.Enabled, log: log}
}

// Fetch returns the current on-air snippet, or a zero value when disabled,
// automated, stale or unavailable. It never returns an error.
func (s *Source) Fetch(ctx context.Context) NowPlaying {
	if s == nil || !s.enabled || s.client == nil {
		return NowPlaying{}
	}

	spin, err := s.client.CurrentSpin(ctx)
	if err != nil {
		s.log.Warn("now playing unavailable", logx.Err(err))
		return NowPlaying{}
	}
	if spin == nil {
		s.log.Debug("no current spin")
		return NowPlaying{}
	}
	if spin.Elapsed > s.maxAge {
		s.log.Debug("current spin is stale", logx.Duration("elapsed", spin.Elapsed))
		return NowPlaying{}
	}

	playlist, err := s.client.CurrentPlaylist(ctx)
	if err != nil {
		s.log.Warn("playlist lookup failed", logx.Err(err))
		playlist = nil
	}
	if playlist != nil && playlist.Automated {
		// Automation playlists are canned rotation; not worth announcing.
		s.log.Debug("automation playlist active; skipping song info")
		return NowPlaying{}
	}

	np := NowPlaying{
		Song:   CleanField(spin.Song),
		Artist: CleanField(spin.Artist),
	}
	if np.Song == "" || np.Artist == "" {
		return NowPlaying{}
	}
	if playlist != nil {
		np.Show = playlist.Title
		if playlist.PersonaID > 0 {
			name, err := s.client.PersonaName(ctx, playlist.PersonaID)
			if err != nil {
				s.log.Warn("persona lookup failed", logx.Err(err))
			} else {
				np.DJ = name
			}
		}
	}
	return np
}
