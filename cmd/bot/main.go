package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"

	"menubot/internal/app"
	"menubot/internal/dining"
	logx "menubot/pkg/logx"
)

func main() {
	var (
		cfgPath string
		once    string
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.StringVar(&once, "once", "", "run a single cycle for the given meal (breakfast, brunch, lunch, dinner) and exit")
	flag.Parse()

	// Secrets (GROUPME_BOT_ID, TELEGRAM_TOKEN) may live in a local .env.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if once != "" {
		os.Exit(runOnce(ctx, a, once))
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	_ = a.Stop(stopCtx)
	stopCancel()

	if err := a.Err(); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// runOnce forces a single notification cycle for one meal period. Useful for
// cron-driven setups and for testing a config by hand.
func runOnce(ctx context.Context, a *app.App, mealName string) int {
	meal, err := dining.ParseMeal(mealName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		return 2
	}

	cctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	rep, err := a.Notifier().RunCycleMeal(cctx, meal, time.Now())
	code := 0
	if err != nil {
		a.Logger().Error("cycle failed", logx.Err(err))
		code = 1
	} else {
		a.Logger().Info("cycle finished",
			logx.Int("sent", rep.Sent), logx.Int("skipped", rep.Skipped),
			logx.Int("failed", rep.Failed), logx.Bool("closed", rep.Closed))
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = a.Stop(stopCtx)
	stopCancel()
	return code
}
