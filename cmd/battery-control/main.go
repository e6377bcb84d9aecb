// Command battery-control keeps a permanently plugged-in laptop battery
// healthy by driving the TP-Link smart plug that feeds its charger.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-co-op/gocron/v2"

	"github.com/sweeney/battery-control/internal/announce"
	"github.com/sweeney/battery-control/internal/battery"
	"github.com/sweeney/battery-control/internal/config"
	"github.com/sweeney/battery-control/internal/control"
	"github.com/sweeney/battery-control/internal/journal"
	"github.com/sweeney/battery-control/internal/lock"
	"github.com/sweeney/battery-control/internal/plug"
	"github.com/sweeney/battery-control/internal/state"
	"github.com/sweeney/battery-control/internal/wifi"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path (default: ~/.config/battery-control/config.yaml)"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Info struct{} `cmd:"" aliases:"status" help:"Print the persisted controller state"`

	Poll struct{} `cmd:"" help:"Run one control cycle"`

	OverrideOn  struct{} `cmd:"" help:"Force the plug on for the override interval"`
	OverrideOff struct{} `cmd:"" help:"Clear a manual override"`

	Sleep struct{} `cmd:"" help:"Pick and pin the plug state before the host suspends"`

	Scan struct{} `cmd:"" help:"Resynchronize the record with the plug's live relay state"`

	Watch struct{} `cmd:"" help:"Poll continuously on the configured interval"`

	History struct {
		Limit int `short:"n" default:"20" help:"Number of transitions to show"`
	} `cmd:"" help:"Show recent relay transitions from the journal"`

	Init struct {
		Force bool `help:"Overwrite an existing configuration file"`
	} `cmd:"" help:"Write a starter configuration file"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("battery-control"),
		kong.Description("Keeps a plugged-in laptop battery healthy by switching the smart plug that feeds it."),
		kong.UsageOnError(),
	)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	configPath := CLI.Config
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	// init runs before config loading; there is nothing to load yet.
	if kctx.Command() == "init" {
		if err := config.Init(configPath, CLI.Init.Force); err != nil {
			slog.Error("failed to write configuration", "error", err)
			os.Exit(1)
		}
		slog.Info("configuration written", "path", configPath)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, kctx.Command(), cfg, logger); err != nil {
		if errors.Is(err, lock.ErrLocked) {
			// Another invocation is mid-cycle and will leave a consistent
			// record behind; the next cycle catches up.
			slog.Info("state lock held by another invocation, skipping", "command", kctx.Command())
			return
		}
		slog.Error("command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, cfg *config.Config, logger *slog.Logger) error {
	switch command {
	case "info", "status":
		return runInfo(cfg)
	case "poll":
		return withController(cfg, logger, func(ctrl *control.Controller) error {
			return ctrl.Poll(ctx)
		})
	case "override-on":
		return withController(cfg, logger, func(ctrl *control.Controller) error {
			return ctrl.EnableOverride(ctx)
		})
	case "override-off":
		return withController(cfg, logger, func(ctrl *control.Controller) error {
			return ctrl.DisableOverride(ctx)
		})
	case "sleep":
		return withController(cfg, logger, func(ctrl *control.Controller) error {
			return ctrl.PrepareForSleep(ctx)
		})
	case "scan":
		return withController(cfg, logger, func(ctrl *control.Controller) error {
			return ctrl.Scan(ctx)
		})
	case "watch":
		return runWatch(ctx, cfg, logger)
	case "history":
		return runHistory(ctx, cfg, CLI.History.Limit)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// runInfo prints the persisted record without touching hardware or the
// state lock, so it works while a poll is mid-flight.
func runInfo(cfg *config.Config) error {
	st, err := state.NewStore(cfg.StateFile).Load()
	if err != nil {
		return err
	}
	out, err := formatState(st)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runHistory(ctx context.Context, cfg *config.Config, limit int) error {
	if cfg.JournalFile == "" {
		return errors.New("history requires journal_file in the configuration")
	}
	j, err := journal.Open(cfg.JournalFile)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Recent(ctx, limit)
	if err != nil {
		return err
	}
	fmt.Print(formatHistory(entries))
	return nil
}

// runWatch polls on the configured interval until interrupted.
func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	return withController(cfg, logger, func(ctrl *control.Controller) error {
		interval := time.Duration(cfg.PollInterval)
		logger.Info("watching battery state", "interval", interval)
		return watchLoop(ctx, ctrl.Poll, interval, logger)
	})
}

// watchLoop runs poll immediately and then on every interval tick until
// the context is canceled. Cycle failures are logged, never fatal: a
// failed poll leaves the record unchanged and the next one catches up.
func watchLoop(ctx context.Context, poll func(context.Context) error, interval time.Duration, logger *slog.Logger) error {
	cycle := func() {
		err := poll(ctx)
		switch {
		case err == nil:
		case errors.Is(err, lock.ErrLocked):
			logger.Info("skipping cycle, state lock held elsewhere")
		default:
			logger.Error("poll failed", "error", err)
		}
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(cycle),
		gocron.WithName("battery-poll"),
	); err != nil {
		return fmt.Errorf("schedule poll job: %w", err)
	}

	cycle()
	sched.Start()
	<-ctx.Done()

	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	logger.Info("watch stopped")
	return nil
}

// withController wires the real plug, battery and wifi drivers behind a
// Controller, runs fn, and tears the optional journal and MQTT
// connections back down. Journal or broker trouble downgrades those
// features rather than failing the command.
func withController(cfg *config.Config, logger *slog.Logger, fn func(*control.Controller) error) error {
	opts := control.Options{
		Store:            state.NewStore(cfg.StateFile),
		Driver:           plug.NewKasa(cfg.PlugAddress),
		Sensor:           battery.NewRealSensor(),
		Detector:         wifi.NewRealDetector(),
		Logger:           logger,
		HomeNetwork:      cfg.HomeNetwork,
		Thresholds:       cfg.Thresholds.Policy(),
		OverrideInterval: time.Duration(cfg.OverrideInterval),
		SleepPinInterval: time.Duration(cfg.SleepPinInterval),
		LockTimeout:      time.Duration(cfg.LockTimeout),
	}

	var closers []func()
	if cfg.JournalFile != "" {
		j, err := journal.Open(cfg.JournalFile)
		if err != nil {
			logger.Warn("journal unavailable, transitions will not be recorded", "error", err)
		} else {
			opts.Journal = j
			closers = append(closers, func() { _ = j.Close() })
		}
	}
	if cfg.MQTTBroker != "" {
		pub, err := announce.NewRealPublisher(cfg.MQTTBroker)
		if err != nil {
			logger.Warn("broker unavailable, transitions will not be announced", "error", err)
		} else {
			opts.Announcer = pub
			closers = append(closers, func() { _ = pub.Close() })
		}
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	return fn(control.New(opts))
}

// formatState renders the record the way it is stored: indented JSON.
func formatState(st state.State) (string, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatHistory(entries []journal.Entry) string {
	if len(entries) == 0 {
		return "no transitions recorded\n"
	}
	var b strings.Builder
	for _, e := range entries {
		event := announce.EventOff
		if e.On {
			event = announce.EventOn
		}
		fmt.Fprintf(&b, "%s  %-8s %-12s", e.Timestamp.Local().Format("2006-01-02 15:04:05"), event, e.Operation)
		if e.Battery != nil {
			fmt.Fprintf(&b, " battery %.0f%%", *e.Battery)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
