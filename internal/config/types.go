package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	GroupMe  GroupMeConfig   `json:"groupme"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`

	Menu  MenuConfig  `json:"menu"`
	Radio RadioConfig `json:"radio"`

	// Scheduler controls when notification cycles fire (cron specs).
	Scheduler SchedulerConfig `json:"scheduler"`

	// Notifier controls delivery behavior (rate limit, retry, message cap).
	// If omitted, defaults apply.
	Notifier *NotifierConfig `json:"notifier,omitempty"`

	Logging LoggingConfig  `json:"logging"`
	Storage *StorageConfig `json:"storage,omitempty"`
}

// GroupMeConfig configures the primary delivery sink (GroupMe bot webhook).
//
// BotID may be left empty in the config file and provided via the
// GROUPME_BOT_ID environment variable instead (keeps secrets out of config).
type GroupMeConfig struct {
	BotID  string `json:"bot_id,omitempty"`
	APIURL string `json:"api_url,omitempty"` // default: https://api.groupme.com/v3/bots/post
	// Timeout is a Go duration string (e.g. "5s", "10s").
	Timeout string `json:"timeout,omitempty"`
}

// TelegramConfig configures the optional Telegram mirror sink.
// Token may come from the TELEGRAM_TOKEN environment variable.
type TelegramConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chat_id"`
}

// MenuConfig configures the dining-hall menu API and the hall list.
//
// Hall order is significant: messages are always sent in this order, so
// repeated cycles produce repeatable message ordering.
type MenuConfig struct {
	APIURL  string       `json:"api_url,omitempty"`
	Timeout string       `json:"timeout,omitempty"`
	Halls   []HallConfig `json:"halls"`
}

type HallConfig struct {
	// ID is the upstream menu API unit number for this hall.
	ID   int    `json:"id"`
	Name string `json:"name"`
	// Icon is an optional emoji shown before the hall name in headers.
	Icon string `json:"icon,omitempty"`
}

// RadioConfig configures the best-effort "now playing" source.
//
// MaxSongAge drops spins that started too long ago (default "15m"); a stale
// spin usually means the station is between songs or off the air.
type RadioConfig struct {
	Enabled    bool   `json:"enabled"`
	BaseURL    string `json:"base_url,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
	MaxSongAge string `json:"max_song_age,omitempty"`
}

// SchedulerConfig controls the trigger service.
//
// Each trigger is a cron spec (5-field, or 6-field with seconds); the meal
// period for a firing is derived from the clock, so triggers are normally
// placed an hour or so before each meal.
type SchedulerConfig struct {
	Enabled  bool     `json:"enabled"`
	Timezone string   `json:"timezone,omitempty"`
	Triggers []string `json:"triggers"`
}

// NotifierConfig controls the delivery pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s").
type NotifierConfig struct {
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
	// MaxMessageLen caps outbound text; GroupMe rejects posts over 1000 chars.
	MaxMessageLen int `json:"max_message_len,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional persistence layer
// (closed-state flag + delivery audit).
//
// Example:
//
//	"storage": { "driver": "file", "path": "./menubot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// applyEnvDefaults fills secret fields from the environment when the config
// file leaves them empty. Called on every parse so hot reloads behave the
// same as startup.
func (c *Config) applyEnvDefaults() {
	if strings.TrimSpace(c.GroupMe.BotID) == "" {
		c.GroupMe.BotID = strings.TrimSpace(os.Getenv("GROUPME_BOT_ID"))
	}
	if c.Telegram != nil && strings.TrimSpace(c.Telegram.Token) == "" {
		c.Telegram.Token = strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	}
}

// Validate checks startup-fatal conditions (ConfigurationError class).
// It does not dial anything; network failures are runtime concerns.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GroupMe.BotID) == "" {
		return fmt.Errorf("groupme.bot_id is required (config or GROUPME_BOT_ID)")
	}
	if len(c.Menu.Halls) == 0 {
		return fmt.Errorf("menu.halls must list at least one dining hall")
	}
	seen := map[int]bool{}
	for i, h := range c.Menu.Halls {
		if strings.TrimSpace(h.Name) == "" {
			return fmt.Errorf("menu.halls[%d].name is required", i)
		}
		if h.ID <= 0 {
			return fmt.Errorf("menu.halls[%d].id must be > 0", i)
		}
		if seen[h.ID] {
			return fmt.Errorf("menu.halls[%d].id %d is duplicated", i, h.ID)
		}
		seen[h.ID] = true
	}
	if c.Telegram != nil && c.Telegram.Enabled {
		if strings.TrimSpace(c.Telegram.Token) == "" {
			return fmt.Errorf("telegram.token is required when telegram.enabled (config or TELEGRAM_TOKEN)")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram.enabled")
		}
	}
	for _, f := range []struct{ path, raw string }{
		{"groupme.timeout", c.GroupMe.Timeout},
		{"menu.timeout", c.Menu.Timeout},
		{"radio.timeout", c.Radio.Timeout},
		{"radio.max_song_age", c.Radio.MaxSongAge},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if c.Notifier != nil {
		if c.Notifier.RetryMax < 0 {
			return fmt.Errorf("notifier.retry_max must be >= 0")
		}
		if c.Notifier.RatePerSec < 0 {
			return fmt.Errorf("notifier.rate_per_sec must be >= 0")
		}
		if _, err := ParseDurationField("notifier.retry_base", c.Notifier.RetryBase); err != nil {
			return err
		}
		if _, err := ParseDurationField("notifier.retry_max_delay", c.Notifier.RetryMaxDelay); err != nil {
			return err
		}
	}
	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: invalid %q: %w", tz, err)
		}
	}
	if c.Scheduler.Enabled && len(c.Scheduler.Triggers) == 0 {
		return fmt.Errorf("scheduler.triggers must not be empty while scheduler.enabled is true")
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}
