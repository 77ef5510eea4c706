package worker

import (
	"context"
	"time"

	"github.com/Domenick1991/seatbook/internal/domain"
	"github.com/Domenick1991/seatbook/internal/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Auditor interface {
	Audit(ctx context.Context) ([]domain.SeatDrift, error)
}

type Notifier interface {
	Send(ctx context.Context, event kafka.BookingEvent) error
}

// Worker sends passenger notifications from booking events and periodically
// checks seat counters against booking rows.
type Worker struct {
	auditor   Auditor
	notifiers []Notifier
	interval  time.Duration
	log       logrus.FieldLogger
}

func New(auditor Auditor, interval time.Duration, log logrus.FieldLogger, notifiers ...Notifier) *Worker {
	return &Worker{auditor: auditor, notifiers: notifiers, interval: interval, log: log}
}

// HandleMessage never fails the consumer: a poison message is logged and skipped,
// and a failing channel does not stop the others.
func (w *Worker) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	event, err := kafka.DecodeBookingEvent(msg)
	if err != nil {
		w.log.WithError(err).WithField("topic", msg.Topic).Warn("skipping undecodable booking event")
		return nil
	}
	for _, n := range w.notifiers {
		if err := n.Send(ctx, event); err != nil {
			w.log.WithError(err).WithField("event_id", event.EventID).Warn("failed to notify passenger")
		}
	}
	return nil
}

// RunAudit audits once immediately and then on every tick until ctx is done.
func (w *Worker) RunAudit(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.auditOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.auditOnce(ctx)
		}
	}
}

func (w *Worker) auditOnce(ctx context.Context) {
	drift, err := w.auditor.Audit(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.WithError(err).Error("seat audit failed")
		}
		return
	}
	if len(drift) == 0 {
		w.log.Debug("seat audit clean")
		return
	}
	w.log.WithField("flights", len(drift)).Warn("seat audit found drift")
}
