package groupme

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"menubot/internal/sink"
	logx "menubot/pkg/logx"
)

func TestNewRequiresBotID(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty bot id")
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	var got botPost
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s, err := New(Config{BotID: "bot-1", APIURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Send(context.Background(), sink.Message{Hall: "Moulton", Text: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.BotID != "bot-1" || got.Text != "hello" {
		t.Fatalf("posted = %+v", got)
	}
}

func TestSendStatuses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status  int
		wantErr bool
	}{
		{http.StatusAccepted, false},
		{http.StatusOK, false}, // any 2xx counts as delivered
		{http.StatusBadRequest, true},
		{http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		s, err := New(Config{BotID: "b", APIURL: srv.URL}, logx.Nop())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		err = s.Send(context.Background(), sink.Message{Text: "x"})
		if (err != nil) != tt.wantErr {
			t.Fatalf("status %d: err = %v, wantErr %v", tt.status, err, tt.wantErr)
		}
		srv.Close()
	}
}
