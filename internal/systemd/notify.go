// Package systemd reports the wall's lifecycle to the service manager with
// sd_notify. Without NOTIFY_SOCKET every call is a no-op, so the wall runs
// the same way outside systemd.
package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/smazurov/videowall/internal/events"
	"github.com/smazurov/videowall/internal/logging"
)

// Notifier sends readiness, status and watchdog messages.
type Notifier struct {
	logger logging.Logger
	notify func(state string) (bool, error)
}

// NewNotifier creates a notifier.
func NewNotifier(logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.GetLogger("systemd")
	}
	return &Notifier{
		logger: logger,
		notify: func(state string) (bool, error) {
			return daemon.SdNotify(false, state)
		},
	}
}

func (n *Notifier) send(state string) {
	sent, err := n.notify(state)
	if err != nil {
		n.logger.Warn("sd_notify failed", "state", state, "error", err)
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", "state", state)
	}
}

// Ready reports that the wall is up.
func (n *Notifier) Ready() {
	n.send(daemon.SdNotifyReady)
}

// Stopping reports that shutdown has begun.
func (n *Notifier) Stopping() {
	n.send(daemon.SdNotifyStopping)
}

// Status sets the one-line status shown by systemctl status.
func (n *Notifier) Status(format string, args ...any) {
	n.send("STATUS=" + fmt.Sprintf(format, args...))
}

// FollowEvents keeps the status line current from wall events until the
// returned function is called.
func (n *Notifier) FollowEvents(bus *events.Bus) func() {
	unsubReshuffle := bus.Subscribe(func(e events.ReshuffleEvent) {
		n.Status("Playing %d of %d slots from %d sources", e.Assigned, e.Slots, e.Sources)
	})
	unsubPause := bus.Subscribe(func(e events.PauseChangedEvent) {
		if e.Paused {
			n.Status("Paused")
		} else {
			n.Status("Playing")
		}
	})
	return func() {
		unsubReshuffle()
		unsubPause()
	}
}

// RunWatchdog pings the watchdog at half the configured interval until ctx
// is done. It returns at once when the unit has no WatchdogSec.
func (n *Notifier) RunWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("Watchdog configuration invalid", "error", err)
		return
	}
	if interval <= 0 {
		return
	}
	n.watchdogLoop(ctx, interval/2)
}

func (n *Notifier) watchdogLoop(ctx context.Context, every time.Duration) {
	n.logger.Info("Watchdog enabled", "interval", every)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
