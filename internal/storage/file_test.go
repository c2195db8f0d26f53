package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "menubot/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if st != nil {
			t.Fatalf("Open(%q) returned a store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreClosedFlagRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "menubot")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if v, err := st.ClosedFlag(ctx); err != nil || v {
		t.Fatalf("fresh store ClosedFlag = %v, %v", v, err)
	}
	if err := st.SetClosedFlag(ctx, true); err != nil {
		t.Fatalf("SetClosedFlag: %v", err)
	}
	if v, _ := st.ClosedFlag(ctx); !v {
		t.Fatal("flag not set")
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Flag survives a reopen.
	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	if v, err := st2.ClosedFlag(ctx); err != nil || !v {
		t.Fatalf("reopened ClosedFlag = %v, %v", v, err)
	}
	if err := st2.SetClosedFlag(ctx, false); err != nil {
		t.Fatalf("clear flag: %v", err)
	}
	if v, _ := st2.ClosedFlag(ctx); v {
		t.Fatal("flag not cleared")
	}
}

func TestFileStoreAppendDelivery(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "menubot")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	entries := []DeliveryEntry{
		{Hall: "Moulton", Meal: "breakfast", Sink: "groupme", OK: true, TookMS: 120},
		{Hall: "Thorne", Meal: "breakfast", Sink: "groupme", OK: false, Error: "status 500"},
	}
	for _, e := range entries {
		if err := st.AppendDelivery(ctx, e); err != nil {
			t.Fatalf("AppendDelivery: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "menubot.audit.jsonl"))
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	var got []DeliveryEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e DeliveryEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad audit line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != len(entries) {
		t.Fatalf("audit has %d lines, want %d", len(got), len(entries))
	}
	if got[0].Hall != "Moulton" || !got[0].OK || got[0].TookMS != 120 {
		t.Fatalf("entry[0] = %+v", got[0])
	}
	if got[1].Error != "status 500" || got[1].OK {
		t.Fatalf("entry[1] = %+v", got[1])
	}
	// At defaults to the append time when left zero.
	if got[0].At.IsZero() || time.Since(got[0].At) > time.Minute {
		t.Fatalf("entry[0].At = %v", got[0].At)
	}
}

func TestFileStoreTornStateIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "menubot")
	if err := os.WriteFile(filepath.Join(dir, "menubot.state.json"), []byte("{torn"), 0o600); err != nil {
		t.Fatalf("seed torn state: %v", err)
	}

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	if v, err := st.ClosedFlag(context.Background()); err != nil || v {
		t.Fatalf("ClosedFlag after torn state = %v, %v", v, err)
	}
}
