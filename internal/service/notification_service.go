package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/events"
	"github.com/robotcare/maintenance-service/internal/notification"
)

// NotificationService forwards workflow events to the notifier.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   notification.Notifier
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier notification.Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.notifier == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventEngineerAssigned, n.handleEngineerAssigned)
	n.dispatcher.Subscribe(events.EventSummaryCompleted, n.handleSummaryCompleted)
	n.dispatcher.Subscribe(events.EventCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventCustomerConfirmed, n.handleCustomerConfirmed)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	recipient := event.ProviderID
	if event.Actor.OrganizationID == event.ProviderID {
		recipient = event.CustomerID
	}
	return n.send(ctx, event, recipient, fmt.Sprintf("Ticket %s was reported", event.TicketNumber))
}

func (n *NotificationService) handleEngineerAssigned(ctx context.Context, event events.Event) error {
	return n.send(ctx, event, event.CustomerID, fmt.Sprintf("An engineer was assigned to ticket %s", event.TicketNumber))
}

// The customer is asked to confirm once the summary is complete.
func (n *NotificationService) handleSummaryCompleted(ctx context.Context, event events.Event) error {
	return n.send(ctx, event, event.CustomerID,
		fmt.Sprintf("Maintenance summary for ticket %s is ready for your confirmation", event.TicketNumber))
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	recipient := event.CustomerID
	if event.Actor.OrganizationID == event.CustomerID {
		recipient = event.ProviderID
	}
	return n.send(ctx, event, recipient, fmt.Sprintf("New comment on ticket %s", event.TicketNumber))
}

func (n *NotificationService) handleCustomerConfirmed(ctx context.Context, event events.Event) error {
	return n.send(ctx, event, event.ProviderID, fmt.Sprintf("Customer confirmed ticket %s", event.TicketNumber))
}

func (n *NotificationService) send(ctx context.Context, event events.Event, recipient, text string) error {
	msg := notification.Message{
		Kind:           string(event.Type),
		TicketID:       event.TicketID,
		TicketNumber:   event.TicketNumber,
		OrganizationID: recipient,
		Text:           text,
		Data:           event.Payload,
		SentAt:         n.now(),
	}
	if err := n.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("notify organization %s: %w", recipient, err)
	}
	n.logger.Debug("notification sent",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	return nil
}
