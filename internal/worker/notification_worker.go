package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/notification"
)

// ErrQueueFull is returned when a notification cannot be queued.
var ErrQueueFull = errors.New("notification queue full")

// ErrStopped is returned for notifications queued after Stop.
var ErrStopped = errors.New("notification worker stopped")

const deliveryTimeout = 5 * time.Second

// NotificationWorker queues notifications and delivers them on background
// goroutines, so a slow channel never holds up a workflow request.
type NotificationWorker struct {
	next   notification.Notifier
	logger *zap.Logger
	queue  chan notification.Message

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewNotificationWorker wraps next with a queue of the given size.
func NewNotificationWorker(next notification.Notifier, logger *zap.Logger, size int) *NotificationWorker {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		next:   next,
		logger: logger,
		queue:  make(chan notification.Message, size),
	}
}

// Notify queues msg without blocking.
func (w *NotificationWorker) Notify(_ context.Context, msg notification.Message) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start launches the delivery goroutines.
func (w *NotificationWorker) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		w.wg.Add(1)
		go w.run()
	}
}

func (w *NotificationWorker) run() {
	defer w.wg.Done()
	for msg := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := w.next.Notify(ctx, msg); err != nil {
			w.logger.Warn("notification delivery failed",
				zap.String("kind", msg.Kind),
				zap.String("ticket_id", msg.TicketID),
				zap.String("organization_id", msg.OrganizationID),
				zap.Error(err))
		}
		cancel()
	}
}

// Stop rejects new notifications and waits for queued ones to drain or for
// ctx to expire.
func (w *NotificationWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
