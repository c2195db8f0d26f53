package storage

import (
	"context"
	"errors"
	"strings"

	logx "menubot/pkg/logx"
)

// Store is the minimal persistence API used by the notifier.
type Store interface {
	// ClosedFlag reports whether the "halls closed" notice has been sent
	// and not yet cleared.
	ClosedFlag(ctx context.Context) (bool, error)
	SetClosedFlag(ctx context.Context, closed bool) error

	AppendDelivery(ctx context.Context, e DeliveryEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
