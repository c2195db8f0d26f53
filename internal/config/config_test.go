package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalYAML = `
groupme:
  bot_id: "abc123"
menu:
  halls:
    - id: 48
      name: Moulton
    - id: 49
      name: Thorne
      icon: "🌲"
scheduler:
  enabled: false
logging:
  level: info
  console: true
`

func TestParseYAML(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", minimalYAML))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.GroupMe.BotID != "abc123" {
		t.Fatalf("bot_id = %q", cfg.GroupMe.BotID)
	}
	if len(cfg.Menu.Halls) != 2 || cfg.Menu.Halls[1].Icon != "🌲" {
		t.Fatalf("halls = %+v", cfg.Menu.Halls)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", minimalYAML+"\nsurprise: true\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.json",
		`{"groupme":{"bot_id":"x"},"menu":{"halls":[{"id":48,"name":"Moulton"}]},"scheduler":{"enabled":false},"logging":{"level":"debug","console":true,"file":{"enabled":false,"path":""}}}`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
}

func TestParseEnvFallback(t *testing.T) {
	t.Setenv("GROUPME_BOT_ID", "from-env")

	yaml := strings.Replace(minimalYAML, `bot_id: "abc123"`, `bot_id: ""`, 1)
	m := NewManager(writeConfig(t, "config.yaml", yaml))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.GroupMe.BotID != "from-env" {
		t.Fatalf("bot_id = %q, want env fallback", cfg.GroupMe.BotID)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			GroupMe: GroupMeConfig{BotID: "x"},
			Menu: MenuConfig{Halls: []HallConfig{
				{ID: 48, Name: "Moulton"},
			}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing bot id", func(c *Config) { c.GroupMe.BotID = " " }, "bot_id"},
		{"no halls", func(c *Config) { c.Menu.Halls = nil }, "halls"},
		{"hall without name", func(c *Config) { c.Menu.Halls[0].Name = "" }, "name"},
		{"non-positive hall id", func(c *Config) { c.Menu.Halls[0].ID = 0 }, "id"},
		{"duplicate hall id", func(c *Config) {
			c.Menu.Halls = append(c.Menu.Halls, HallConfig{ID: 48, Name: "Again"})
		}, "duplicated"},
		{"telegram enabled without token", func(c *Config) {
			c.Telegram = &TelegramConfig{Enabled: true, ChatID: 1}
		}, "telegram.token"},
		{"telegram enabled without chat", func(c *Config) {
			c.Telegram = &TelegramConfig{Enabled: true, Token: "t"}
		}, "chat_id"},
		{"bad duration", func(c *Config) { c.Menu.Timeout = "soon" }, "menu.timeout"},
		{"negative retry", func(c *Config) {
			c.Notifier = &NotifierConfig{RetryMax: -1}
		}, "retry_max"},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "timezone"},
		{"scheduler enabled without triggers", func(c *Config) {
			c.Scheduler.Enabled = true
		}, "triggers"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationField("x", "5s"); err != nil || d.Seconds() != 5 {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-2s"); err == nil {
		t.Fatal("negative duration accepted")
	}
	if _, err := ParseDurationField("x", "later"); err == nil {
		t.Fatal("garbage duration accepted")
	}
}

func TestLoadCommitAndGet(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", minimalYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get() should return the committed config")
	}
}

func TestSubscribePublishUnsubscribe(t *testing.T) {
	t.Parallel()

	m := NewManager(writeConfig(t, "config.yaml", minimalYAML))
	ch := m.Subscribe(1)

	cfg := &Config{}
	m.publish(cfg)
	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("received wrong config")
		}
	default:
		t.Fatal("no config published")
	}

	// Full buffer: oldest dropped, newest delivered.
	m.publish(&Config{})
	newest := &Config{}
	m.publish(newest)
	if got := <-ch; got != newest {
		t.Fatal("expected the newest config after overflow")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after Unsubscribe")
	}
}
