package services

import (
	"github.com/sirupsen/logrus"

	"github.com/markettask/markettask-api/internal/models"
)

// Notifier delivers fire-and-forget notifications. Implementations must not
// block the caller; errors are logged and swallowed at the call site.
type Notifier interface {
	TaskPosted(task *models.Task) error
	OfferMade(offer *models.Offer) error
	OfferAccepted(offer *models.Offer) error
	TaskAssigned(task *models.Task) error
	TaskCompleted(task *models.Task) error
	ReceiptReady(receipt *models.Receipt) error
}

// LogNotifier is the default Notifier; it only writes structured log lines.
type LogNotifier struct {
	log *logrus.Logger
}

// NewLogNotifier creates a new LogNotifier
func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) TaskPosted(task *models.Task) error {
	n.log.WithFields(logrus.Fields{"task_id": task.ID, "poster_id": task.PosterID}).
		Info("notify: task posted")
	return nil
}

func (n *LogNotifier) OfferMade(offer *models.Offer) error {
	n.log.WithFields(logrus.Fields{"offer_id": offer.ID, "task_id": offer.TaskID}).
		Info("notify: offer made")
	return nil
}

func (n *LogNotifier) OfferAccepted(offer *models.Offer) error {
	n.log.WithFields(logrus.Fields{"offer_id": offer.ID, "task_id": offer.TaskID}).
		Info("notify: offer accepted")
	return nil
}

func (n *LogNotifier) TaskAssigned(task *models.Task) error {
	n.log.WithFields(logrus.Fields{"task_id": task.ID, "assigned_to": task.AssignedTo}).
		Info("notify: task assigned")
	return nil
}

func (n *LogNotifier) TaskCompleted(task *models.Task) error {
	n.log.WithFields(logrus.Fields{"task_id": task.ID}).
		Info("notify: task completed")
	return nil
}

func (n *LogNotifier) ReceiptReady(receipt *models.Receipt) error {
	n.log.WithFields(logrus.Fields{"receipt_id": receipt.ID, "receipt_number": receipt.ReceiptNumber}).
		Info("notify: receipt ready")
	return nil
}

// notify runs a notification call and logs a failure without surfacing it.
// Notification problems never fail the triggering state change.
func notify(log *logrus.Logger, event string, fn func() error) {
	if err := fn(); err != nil {
		log.WithError(err).WithField("event", event).Warn("notification delivery failed")
	}
}
