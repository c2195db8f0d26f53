package notifier

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"menubot/internal/dining"
	"menubot/internal/sink"
	"menubot/internal/storage"
	logx "menubot/pkg/logx"
)

// CycleReport summarizes one cycle for logging; nothing else consumes it.
type CycleReport struct {
	Sent    int // messages delivered to at least the primary sink
	Skipped int // halls with empty menus
	Failed  int // halls whose fetch or delivery failed
	Closed  bool
}

// hallMessage pairs a formatted message with its source hall/meal.
type hallMessage struct {
	hall dining.Hall
	meal dining.Meal
	text string
}

// RunCycle runs one notification cycle for time now: the meal period is
// derived per hall from the clock (during a meal the current meal is still
// "upcoming"). Halls are processed in config order so repeated runs produce
// the same message ordering.
func (s *Service) RunCycle(ctx context.Context, now time.Time) (CycleReport, error) {
	return s.run(ctx, now, "")
}

// RunCycleMeal forces one meal period for every hall (the -once CLI path).
func (s *Service) RunCycleMeal(ctx context.Context, meal dining.Meal, now time.Time) (CycleReport, error) {
	return s.run(ctx, now, meal)
}

func (s *Service) run(ctx context.Context, now time.Time, forced dining.Meal) (CycleReport, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Warn("cycle trigger dropped; previous cycle still running")
		return CycleReport{}, ErrCycleInFlight
	}
	defer s.inFlight.Store(false)

	cfg, sinks, limiter := s.snapshot()
	start := time.Now()
	var rep CycleReport

	// 1. Fetch + format, one hall at a time. Per-hall failure only skips
	// that hall.
	var messages []hallMessage
	fetchFailures := 0
	for _, hall := range cfg.Halls {
		meal := forced
		if meal == "" {
			meal = dining.ScheduleFor(hall.ID).UpcomingMeal(now)
		}
		menu, err := s.menus.Fetch(ctx, hall.ID, meal, now)
		if err != nil {
			fetchFailures++
			rep.Failed++
			s.log.Error("menu fetch failed; skipping hall",
				logx.String("hall", hall.Name), logx.String("meal", string(meal)), logx.Err(err))
			continue
		}
		text := dining.Format(hall, meal, now, menu)
		if text == "" {
			rep.Skipped++
			s.log.Debug("no menu published", logx.String("hall", hall.Name), logx.String("meal", string(meal)))
			continue
		}
		messages = append(messages, hallMessage{hall: hall, meal: meal, text: text})
	}

	// 2. All halls empty (with the API answering) means the campus is
	// closed; announce it once. A total fetch outage is not "closed".
	if len(messages) == 0 {
		if fetchFailures > 0 {
			s.log.Warn("cycle produced no messages", logx.Int("fetch_failures", fetchFailures))
			return rep, nil
		}
		rep.Closed = true
		if s.closedFlag(ctx) {
			s.log.Info("halls still closed; notice already sent")
			return rep, nil
		}
		s.log.Info("all dining halls appear closed; sending notice")
		if s.deliver(ctx, cfg, sinks, limiter, sink.Message{Text: ClosedNotice}, "", "") {
			s.setClosedFlag(ctx, true)
			rep.Sent++
		} else {
			rep.Failed++
		}
		return rep, nil
	}
	s.setClosedFlag(ctx, false)

	// 3. Best-effort radio snippet, appended to the LAST hall message so it
	// never precedes menu content. Skipped when it would push the message
	// over the length cap.
	if s.radio != nil {
		if np := s.radio.Fetch(ctx); !np.IsZero() {
			last := &messages[len(messages)-1]
			combined := last.text + "\n\n" + np.Line()
			if utf8.RuneCountInString(combined) <= cfg.MaxMessageLen {
				last.text = combined
			} else {
				s.log.Debug("song info dropped; message would exceed length cap",
					logx.String("hall", last.hall.Name))
			}
		}
	}

	// 4. Deliver in hall order. A failed hall never blocks the rest.
	for _, m := range messages {
		if n := utf8.RuneCountInString(m.text); n > cfg.MaxMessageLen {
			rep.Failed++
			s.log.Error("message too long to send",
				logx.String("hall", m.hall.Name), logx.Int("len", n), logx.Int("cap", cfg.MaxMessageLen))
			continue
		}
		if s.deliver(ctx, cfg, sinks, limiter, sink.Message{Hall: m.hall.Name, Text: m.text}, m.hall.Name, string(m.meal)) {
			rep.Sent++
		} else {
			rep.Failed++
		}
	}

	s.log.Info("cycle finished",
		logx.Int("sent", rep.Sent), logx.Int("skipped", rep.Skipped), logx.Int("failed", rep.Failed),
		logx.Duration("took", time.Since(start)))
	return rep, nil
}

// deliver pushes one message through every sink. The first sink is the
// primary; its outcome decides the return value. Mirror sink failures are
// logged only.
func (s *Service) deliver(ctx context.Context, cfg Config, sinks []sink.Sink, limiter *rate.Limiter, msg sink.Message, hall, meal string) bool {
	if len(sinks) == 0 {
		s.log.Error("no delivery sinks configured")
		return false
	}

	ok := false
	for i, snk := range sinks {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				s.log.Warn("delivery aborted", logx.String("sink", snk.Name()), logx.Err(err))
				return ok
			}
		}

		att := time.Now()
		err := s.sendWithRetry(ctx, cfg, snk, msg)
		s.audit(ctx, storage.DeliveryEntry{
			At:     att,
			Hall:   hall,
			Meal:   meal,
			Sink:   snk.Name(),
			OK:     err == nil,
			Error:  errString(err),
			TookMS: time.Since(att).Milliseconds(),
		})

		if err != nil {
			s.log.Error("message delivery failed",
				logx.String("sink", snk.Name()), logx.String("hall", hall), logx.Err(err))
			continue
		}
		s.log.Debug("message delivered", logx.String("sink", snk.Name()), logx.String("hall", hall))
		if i == 0 {
			ok = true
		}
	}
	return ok
}

// sendWithRetry attempts one send with bounded exponential backoff.
func (s *Service) sendWithRetry(ctx context.Context, cfg Config, snk sink.Sink, msg sink.Message) error {
	maxAttempts := 1 + cfg.RetryMax
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = snk.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts {
			break
		}
		delay := s.backoffDelay(cfg, attempt)
		s.log.Debug("send retry scheduled",
			logx.String("sink", snk.Name()), logx.Int("attempt", attempt+1), logx.Duration("delay", delay), logx.Err(err))
		select {
		case <-ctx.Done():
			return fmt.Errorf("send aborted: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
