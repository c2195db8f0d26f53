// Package notifier orchestrates one end-to-end notification cycle:
// fetch menus per hall, format, append the on-air snippet, deliver.
package notifier

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"menubot/internal/dining"
	"menubot/internal/radio"
	"menubot/internal/sink"
	"menubot/internal/storage"
	logx "menubot/pkg/logx"
)

// ErrCycleInFlight is returned when a trigger fires while the previous cycle
// is still running. The overlapping cycle is dropped, not queued.
var ErrCycleInFlight = errors.New("notification cycle already in progress")

// ClosedNotice is sent once when every hall reports an empty menu.
const ClosedNotice = "The campus dining halls seem to be closed."

// MenuFetcher is the menu API surface the notifier depends on.
type MenuFetcher interface {
	Fetch(ctx context.Context, hallID int, meal dining.Meal, date time.Time) (dining.Menu, error)
}

// NowPlayingSource yields the best-effort radio snippet. Implementations
// must map every failure to a zero value.
type NowPlayingSource interface {
	Fetch(ctx context.Context) radio.NowPlaying
}

// Config controls delivery behavior.
type Config struct {
	Halls []dining.Hall

	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration

	// MaxMessageLen caps outbound text (GroupMe rejects posts over 1000).
	MaxMessageLen int
}

// Service runs notification cycles. It is safe for concurrent use; at most
// one cycle runs at a time (overlapping triggers are dropped).
type Service struct {
	mu  sync.Mutex
	cfg Config

	log   logx.Logger
	menus MenuFetcher
	radio NowPlayingSource
	store storage.Store

	sinks   []sink.Sink
	limiter *rate.Limiter

	inFlight atomic.Bool

	// closedMem backs the closed flag when storage is disabled; suppression
	// then only holds for the process lifetime.
	closedMem atomic.Bool

	rng *rand.Rand
}

func New(cfg Config, menus MenuFetcher, np NowPlayingSource, store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		log:   log,
		menus: menus,
		radio: np,
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.applyLocked(cfg)
	return s
}

// Apply swaps delivery settings at runtime (config hot reload).
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 2 * time.Second
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.MaxMessageLen <= 0 {
		cfg.MaxMessageLen = 1000
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so a burst of hall messages doesn't stall.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// SetSinks replaces the delivery destinations (config hot reload).
func (s *Service) SetSinks(sinks []sink.Sink) {
	s.mu.Lock()
	s.sinks = append([]sink.Sink(nil), sinks...)
	s.mu.Unlock()
}

func (s *Service) snapshot() (Config, []sink.Sink, *rate.Limiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, s.sinks, s.limiter
}

// backoffDelay grows exponentially from RetryBase up to RetryMaxDelay with
// ±20% jitter. retry starts at 1 (first retry).
func (s *Service) backoffDelay(cfg Config, retry int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < retry; i++ {
		d *= 2
		if d > cfg.RetryMaxDelay {
			d = cfg.RetryMaxDelay
			break
		}
	}
	s.mu.Lock()
	j := s.rng.Float64()
	s.mu.Unlock()
	jitter := time.Duration(float64(d) * 0.2 * (j*2 - 1))
	d += jitter
	if d < 0 {
		d = 0
	}
	return d
}

func (s *Service) closedFlag(ctx context.Context) bool {
	if s.store != nil {
		v, err := s.store.ClosedFlag(ctx)
		if err != nil {
			s.log.Warn("closed flag read failed", logx.Err(err))
			return s.closedMem.Load()
		}
		return v
	}
	return s.closedMem.Load()
}

func (s *Service) setClosedFlag(ctx context.Context, closed bool) {
	s.closedMem.Store(closed)
	if s.store != nil {
		if err := s.store.SetClosedFlag(ctx, closed); err != nil {
			s.log.Warn("closed flag write failed", logx.Err(err), logx.Bool("closed", closed))
		}
	}
}

func (s *Service) audit(ctx context.Context, e storage.DeliveryEntry) {
	if s.store == nil {
		return
	}
	if err := s.store.AppendDelivery(ctx, e); err != nil {
		s.log.Warn("delivery audit append failed", logx.Err(err))
	}
}
