// Package scheduler fires notification cycles at configured times.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "menubot/pkg/logx"
)

// CycleFunc runs one notification cycle for the firing time.
type CycleFunc func(ctx context.Context, now time.Time) error

// defaultCycleTimeout bounds one cycle so a hung upstream can't block the
// next trigger indefinitely.
const defaultCycleTimeout = 3 * time.Minute

type Config struct {
	Enabled  bool
	Timezone string
	// Triggers are cron specs (5-field, or 6-field with seconds), normally
	// one per meal window, placed an hour or so before the meal.
	Triggers []string
}

// Service owns the cron runtime. Overlapping firings are handled by the
// notifier's single-flight guard, not here.
type Service struct {
	mu  sync.Mutex
	cfg Config

	log    logx.Logger
	run    CycleFunc
	parser cron.Parser

	c         *cron.Cron
	loc       *time.Location
	baseCtx   context.Context
	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(cfg Config, run CycleFunc, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		run: run,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Enabled reports the current config flag. (Thread-safe; Apply() may run concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

// ValidateTriggers checks that every spec parses; used by the config
// validator so bad hot-reloads are rejected before they reach Apply.
func (s *Service) ValidateTriggers(specs []string) error {
	for i, raw := range specs {
		if _, err := s.parser.Parse(strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("scheduler.triggers[%d]: invalid cron spec %q: %w", i, raw, err)
		}
	}
	return nil
}

// Apply swaps trigger config. If the service is running and the timezone or
// trigger set changed, the cron runtime is restarted in place.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.cfg.Timezone != cfg.Timezone || !equalSpecs(s.cfg.Triggers, cfg.Triggers)
	s.cfg = cfg

	if s.c == nil || !changed {
		return
	}
	s.stopCronLocked()
	s.startCronLocked(s.baseCtx)
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.startCronLocked(ctx)
}

func (s *Service) startCronLocked(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.baseCtx = ctx
	s.runCtx, s.runCancel = context.WithCancel(ctx)

	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	registered := 0
	for _, raw := range s.cfg.Triggers {
		spec := strings.TrimSpace(raw)
		if spec == "" {
			continue
		}
		runCtx := s.runCtx
		if _, err := s.c.AddFunc(spec, func() { s.fire(runCtx) }); err != nil {
			s.log.Warn("trigger rejected", logx.String("spec", spec), logx.Err(err))
			continue
		}
		registered++
	}

	s.c.Start()
	s.log.Info("scheduler started",
		logx.Int("triggers", registered), logx.String("tz", loc.String()))
}

func (s *Service) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	now := time.Now().In(s.location())
	s.log.Info("trigger fired", logx.Time("at", now))

	cctx, cancel := context.WithTimeout(ctx, defaultCycleTimeout)
	defer cancel()
	if err := s.run(cctx, now); err != nil {
		s.log.Warn("cycle returned error", logx.Err(err))
	}
}

func (s *Service) location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc != nil {
		return s.loc
	}
	return time.Local
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.stopCronLocked()
	s.mu.Unlock()

	if c == nil {
		return
	}
	// Wait for any in-flight job, bounded by the caller's context.
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("scheduler stopped")
}

// stopCronLocked tears down the cron runtime without waiting for jobs.
func (s *Service) stopCronLocked() {
	if s.c != nil {
		s.c.Stop()
		s.c = nil
	}
	if s.runCancel != nil {
		s.runCancel()
		s.runCancel = nil
	}
	s.runCtx = nil
}

func equalSpecs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if strings.TrimSpace(a[i]) != strings.TrimSpace(b[i]) {
			return false
		}
	}
	return true
}
