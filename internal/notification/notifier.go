package notification

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/association-treasury/internal/core/events"
)

// SlogNotifier is the in-process stand-in for the external notification
// service: it logs every event it is asked to deliver. Delivery transport is
// out of scope; the contract is fire-and-forget, so nothing here ever
// returns an error to the caller.
type SlogNotifier struct {
	logger *slog.Logger
}

func NewSlogNotifier(logger *slog.Logger) *SlogNotifier {
	return &SlogNotifier{logger: logger}
}

func (n *SlogNotifier) Notify(event string, requestID int64, fields map[string]interface{}) {
	n.logger.Info("notification dispatched",
		"event", event,
		"request_id", requestID,
		"fields", fields)
}

// RegisterEventHandlers subscribes the notifier to every workflow event so
// transitions published on the bus also fan out as notifications.
func (n *SlogNotifier) RegisterEventHandlers(eventBus *events.EventBus) {
	handler := func(ctx context.Context, event events.Event) error {
		n.logger.Info("event notification",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"payload", event.Payload())
		return nil
	}

	for _, eventType := range []string{
		events.EventTypeRequestCreated,
		events.EventTypeRequestUnderReview,
		events.EventTypeRequestApproved,
		events.EventTypeRequestRejected,
		events.EventTypeRequestInfoNeeded,
		events.EventTypeRequestCancelled,
		events.EventTypeRequestPaid,
		events.EventTypeRequestPaymentFail,
		events.EventTypeRepaymentValidated,
	} {
		eventBus.Subscribe(eventType, handler)
	}
}
