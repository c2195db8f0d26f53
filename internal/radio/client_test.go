package radio

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "menubot/pkg/logx"
)

func spinBody(song, artist string, start time.Time) string {
	return fmt.Sprintf(`{"items":[{"song":%q,"artist":%q,"start":%q,"duration":180}]}`,
		song, artist, start.Format(time.RFC3339))
}

func TestCurrentSpin(t *testing.T) {
	t.Parallel()

	start := time.Now().Add(-2 * time.Minute).Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/spins" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, spinBody("Karma Police", "Radiohead", start))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL}, logx.Nop())
	spin, err := c.CurrentSpin(context.Background())
	if err != nil {
		t.Fatalf("CurrentSpin: %v", err)
	}
	if spin == nil {
		t.Fatal("expected a spin")
	}
	if spin.Song != "Karma Police" || spin.Artist != "Radiohead" {
		t.Fatalf("spin = %+v", spin)
	}
	if spin.Elapsed < 2*time.Minute || spin.Elapsed > 3*time.Minute {
		t.Fatalf("elapsed = %v, want about 2m", spin.Elapsed)
	}
}

func TestCurrentSpinAbsence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"no items", `{"items":[]}`},
		{"missing artist", `{"items":[{"song":"X","artist":"","start":"2026-08-30T10:00:00Z"}]}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(ClientConfig{BaseURL: srv.URL}, logx.Nop())
			spin, err := c.CurrentSpin(context.Background())
			if err != nil {
				t.Fatalf("CurrentSpin: %v", err)
			}
			if spin != nil {
				t.Fatalf("expected nil spin, got %+v", spin)
			}
		})
	}
}

func TestCurrentPlaylist(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/playlists" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"items":[{"title":"The Graveyard Shift","persona_id":7,"automation":false}]}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL}, logx.Nop())
	pl, err := c.CurrentPlaylist(context.Background())
	if err != nil {
		t.Fatalf("CurrentPlaylist: %v", err)
	}
	if pl == nil || pl.Title != "The Graveyard Shift" || pl.PersonaID != 7 || pl.Automated {
		t.Fatalf("playlist = %+v", pl)
	}
}

func TestCurrentPlaylistMissingAutomationField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"title":"Show","persona_id":7}]}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL}, logx.Nop())
	pl, err := c.CurrentPlaylist(context.Background())
	if err != nil {
		t.Fatalf("CurrentPlaylist: %v", err)
	}
	if pl != nil {
		t.Fatalf("expected nil playlist without automation field, got %+v", pl)
	}
}

func TestPersonaName(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/personas/7" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"name":"DJ Moss"}`)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL}, logx.Nop())
	name, err := c.PersonaName(context.Background(), 7)
	if err != nil {
		t.Fatalf("PersonaName: %v", err)
	}
	if name != "DJ Moss" {
		t.Fatalf("name = %q", name)
	}

	// Non-positive ids resolve to nothing without a request.
	if name, err := c.PersonaName(context.Background(), 0); err != nil || name != "" {
		t.Fatalf("PersonaName(0) = %q, %v", name, err)
	}
}
