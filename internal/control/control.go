// Package control implements the user-visible operations over the
// persisted record. Every mutating operation runs the same shape: take
// the state lock, load the record, apply its one mutation, then hand off
// to reconciliation, the single choke point where expiries, hysteresis,
// relay commands and persistence happen.
package control

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sweeney/battery-control/internal/announce"
	"github.com/sweeney/battery-control/internal/battery"
	"github.com/sweeney/battery-control/internal/journal"
	"github.com/sweeney/battery-control/internal/lock"
	"github.com/sweeney/battery-control/internal/plug"
	"github.com/sweeney/battery-control/internal/policy"
	"github.com/sweeney/battery-control/internal/state"
	"github.com/sweeney/battery-control/internal/wifi"
)

// Operation names as they appear in logs, the journal, and
// announcements.
const (
	OpPoll        = "poll"
	OpOverrideOn  = "override-on"
	OpOverrideOff = "override-off"
	OpSleep       = "sleep"
	OpScan        = "scan"
)

// Options configures a Controller. Store, Driver, Sensor and Detector
// are required; Announcer and Journal are optional extras that never
// gate an operation.
type Options struct {
	Store    *state.Store
	Driver   plug.Driver
	Sensor   battery.Sensor
	Detector wifi.Detector

	Announcer announce.Publisher
	Journal   *journal.Journal
	Logger    *slog.Logger

	// HomeNetwork is the Wi-Fi name that marks the laptop as plugged
	// into the controlled outlet.
	HomeNetwork string

	Thresholds policy.Thresholds

	// OverrideInterval is how long a manual override lasts.
	OverrideInterval time.Duration

	// SleepPinInterval is how long sleep preparation pins the state.
	SleepPinInterval time.Duration

	// LockTimeout bounds the lock wait for interactive operations.
	LockTimeout time.Duration

	// Now overrides the clock. Tests inject time here.
	Now func() time.Time
}

// Controller manages one plug, one battery, and one state file.
type Controller struct {
	store     *state.Store
	driver    plug.Driver
	sensor    battery.Sensor
	detector  wifi.Detector
	announcer announce.Publisher
	journal   *journal.Journal
	logger    *slog.Logger

	homeNetwork      string
	thresholds       policy.Thresholds
	overrideInterval time.Duration
	sleepPinInterval time.Duration
	lockTimeout      time.Duration

	now func() time.Time
}

// New creates a Controller, filling in default thresholds, intervals,
// clock and logger where the options leave them unset.
func New(opts Options) *Controller {
	c := &Controller{
		store:            opts.Store,
		driver:           opts.Driver,
		sensor:           opts.Sensor,
		detector:         opts.Detector,
		announcer:        opts.Announcer,
		journal:          opts.Journal,
		logger:           opts.Logger,
		homeNetwork:      opts.HomeNetwork,
		thresholds:       opts.Thresholds,
		overrideInterval: opts.OverrideInterval,
		sleepPinInterval: opts.SleepPinInterval,
		lockTimeout:      opts.LockTimeout,
		now:              opts.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.thresholds == (policy.Thresholds{}) {
		c.thresholds = policy.DefaultThresholds()
	}
	if c.overrideInterval == 0 {
		c.overrideInterval = 24 * time.Hour
	}
	if c.sleepPinInterval == 0 {
		c.sleepPinInterval = 2 * time.Minute
	}
	if c.lockTimeout == 0 {
		c.lockTimeout = 30 * time.Second
	}
	return c
}

// withLock runs fn on the loaded record while holding the state lock.
// A zero wait makes a single optimistic attempt (lock.ErrLocked if
// held); a positive wait retries up to that long (lock.ErrTimeout).
func (c *Controller) withLock(wait time.Duration, fn func(st *state.State) error) error {
	lk := lock.New(c.store.Path())
	if err := lk.Acquire(wait); err != nil {
		return err
	}
	defer lk.Release()

	st, err := c.store.Load()
	if err != nil {
		return err
	}
	return fn(&st)
}

// Poll runs one heartbeat cycle. If another invocation holds the lock,
// Poll returns lock.ErrLocked; callers treat that as a skipped cycle,
// not a failure, because the next scheduled poll catches up.
func (c *Controller) Poll(ctx context.Context) error {
	return c.withLock(0, func(st *state.State) error {
		return c.reconcile(ctx, st, OpPoll)
	})
}

// Status returns the current record without taking the lock. A stale
// read is acceptable for display.
func (c *Controller) Status() (state.State, error) {
	return c.store.Load()
}

// EnableOverride pins the plug on until the override interval elapses,
// regardless of battery level. Used before traveling, to leave with a
// full charge.
func (c *Controller) EnableOverride(ctx context.Context) error {
	return c.withLock(c.lockTimeout, func(st *state.State) error {
		st.SetOverride(true, c.now().Add(c.overrideInterval))
		return c.reconcile(ctx, st, OpOverrideOn)
	})
}

// DisableOverride removes a manual override. Clearing an override that
// is not set is not an error.
func (c *Controller) DisableOverride(ctx context.Context) error {
	return c.withLock(c.lockTimeout, func(st *state.State) error {
		st.ClearOverride()
		return c.reconcile(ctx, st, OpOverrideOff)
	})
}

// PrepareForSleep picks the relay state to hold while the host sleeps
// and pins it for the sleep window: the plug cannot be switched once the
// host suspends. The battery is read before taking the lock; sensor
// access needs no serialization.
func (c *Controller) PrepareForSleep(ctx context.Context) error {
	pct, err := c.sensor.Percent()
	if err != nil {
		return err
	}

	return c.withLock(c.lockTimeout, func(st *state.State) error {
		st.Default = c.thresholds.SleepDefault(pct)
		st.PinUntil(c.now().Add(c.sleepPinInterval))
		return c.reconcile(ctx, st, OpSleep)
	})
}

// Scan resynchronizes the record with the plug's live relay state.
// External agents may toggle the plug behind the controller's back;
// after syncing, reconciliation drives the relay back to the desired
// state. Probe and query run before the lock is taken.
func (c *Controller) Scan(ctx context.Context) error {
	if err := c.driver.Probe(); err != nil {
		return err
	}
	observed, err := c.driver.IsOn()
	if err != nil {
		return err
	}

	return c.withLock(c.lockTimeout, func(st *state.State) error {
		if st.Current != observed {
			c.logger.Info("relay state drifted", "recorded", st.Current, "observed", observed)
		}
		st.Current = observed
		return c.reconcile(ctx, st, OpScan)
	})
}

// History returns recent transitions from the journal, newest first.
func (c *Controller) History(ctx context.Context, n int) ([]journal.Entry, error) {
	if c.journal == nil {
		return nil, errors.New("no journal configured")
	}
	return c.journal.Recent(ctx, n)
}

// reconcile applies expiries and hysteresis, drives the relay toward the
// desired state, and persists the record. Hardware failures abort before
// persistence, so the record never claims a switch that did not happen.
// Away from the home network the record is persisted as-is and hardware
// is left alone.
func (c *Controller) reconcile(ctx context.Context, st *state.State, op string) error {
	network, ok := c.detector.CurrentNetwork()
	if !ok || network != c.homeNetwork {
		c.logger.Info("not on home network, skipping plug control", "network", network, "operation", op)
		return c.store.Save(*st)
	}

	now := c.now()
	if policy.ExpireOverride(st, now) {
		c.logger.Info("manual override expired", "operation", op)
	}
	policy.ExpireKeepWindow(st, now)

	// The battery is read only when the default may actually change.
	var batteryPct *float64
	if !st.Pinned() {
		pct, err := c.sensor.Percent()
		if err != nil {
			return err
		}
		batteryPct = &pct
		st.Default = c.thresholds.DefaultFor(st.Default, pct)
	}

	desired := policy.Desired(*st)
	switched := false
	if desired != st.Current {
		if err := c.drive(desired); err != nil {
			return err
		}
		st.Current = desired
		switched = true
	}

	if err := c.store.Save(*st); err != nil {
		return err
	}

	if switched {
		c.logger.Info("plug switched", "on", desired, "operation", op)
		c.recordTransition(ctx, now, desired, op, batteryPct)
	} else {
		c.logger.Debug("no relay change", "on", st.Current, "operation", op)
	}
	return nil
}

func (c *Controller) drive(on bool) error {
	if on {
		return c.driver.TurnOn()
	}
	return c.driver.TurnOff()
}

// recordTransition fans a completed switch out to the optional journal
// and announcer. Failures are logged and swallowed; the switch already
// happened and the record is already saved.
func (c *Controller) recordTransition(ctx context.Context, now time.Time, on bool, op string, batteryPct *float64) {
	if c.journal != nil {
		err := c.journal.Record(ctx, journal.Entry{
			Timestamp: now,
			On:        on,
			Operation: op,
			Battery:   batteryPct,
		})
		if err != nil {
			c.logger.Warn("journal write failed", "error", err)
		}
	}

	if c.announcer != nil {
		err := c.announcer.Publish(announce.Event{
			Timestamp: now,
			On:        on,
			Operation: op,
			Battery:   batteryPct,
		})
		if err != nil {
			c.logger.Warn("announce failed", "error", err)
		}
	}
}
