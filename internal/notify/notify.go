// Package notify collects operator-facing notifications. Every message is
// logged and queued until the station drains it into a snapshot.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/OCAP2/dockyard/internal/queue"
	"github.com/OCAP2/dockyard/pkg/core"
)

// Notifier implements docking.Notifier. Safe for concurrent use.
type Notifier struct {
	log   *slog.Logger
	queue *queue.Queue[core.Notification]
	now   func() time.Time
}

// New creates a notifier logging through log (slog.Default when nil).
func New(log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		log:   log,
		queue: queue.New[core.Notification](),
		now:   time.Now,
	}
}

func (n *Notifier) Info(msg string)    { n.post(msg, core.SeverityInfo) }
func (n *Notifier) Warn(msg string)    { n.post(msg, core.SeverityWarning) }
func (n *Notifier) Success(msg string) { n.post(msg, core.SeveritySuccess) }

func (n *Notifier) post(msg string, sev core.Severity) {
	level := slog.LevelInfo
	if sev == core.SeverityWarning {
		level = slog.LevelWarn
	}
	n.log.Log(context.Background(), level, msg, "severity", string(sev))

	n.queue.Push(core.Notification{Message: msg, Severity: sev, Time: n.now()})
}

// Drain returns and removes every pending notification, oldest first.
func (n *Notifier) Drain() []core.Notification {
	return n.queue.Drain(0)
}

// Pending returns the number of notifications not yet drained.
func (n *Notifier) Pending() int {
	return n.queue.Len()
}
