package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/notification"
)

type collectingNotifier struct {
	mu    sync.Mutex
	got   []notification.Message
	block chan struct{}
	err   error
}

func (n *collectingNotifier) Notify(_ context.Context, msg notification.Message) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, msg)
	return n.err
}

func (n *collectingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

func TestWorkerDeliversQueuedMessages(t *testing.T) {
	next := &collectingNotifier{}
	w := NewNotificationWorker(next, zap.NewNop(), 10)
	w.Start(2)

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Notify(context.Background(), notification.Message{Kind: "comment_added"}))
	}
	require.NoError(t, w.Stop(context.Background()))
	assert.Equal(t, 5, next.count())
}

func TestWorkerRejectsWhenFull(t *testing.T) {
	next := &collectingNotifier{block: make(chan struct{})}
	w := NewNotificationWorker(next, zap.NewNop(), 1)

	require.NoError(t, w.Notify(context.Background(), notification.Message{Kind: "a"}))
	assert.ErrorIs(t, w.Notify(context.Background(), notification.Message{Kind: "b"}), ErrQueueFull)

	w.Start(1)
	close(next.block)
	require.NoError(t, w.Stop(context.Background()))
	assert.Equal(t, 1, next.count())
}

func TestWorkerRejectsAfterStop(t *testing.T) {
	w := NewNotificationWorker(&collectingNotifier{}, zap.NewNop(), 1)
	w.Start(1)
	require.NoError(t, w.Stop(context.Background()))

	assert.ErrorIs(t, w.Notify(context.Background(), notification.Message{}), ErrStopped)
	require.NoError(t, w.Stop(context.Background()))
}

func TestWorkerSurvivesDeliveryErrors(t *testing.T) {
	next := &collectingNotifier{err: errors.New("redis down")}
	w := NewNotificationWorker(next, zap.NewNop(), 4)
	w.Start(1)

	require.NoError(t, w.Notify(context.Background(), notification.Message{Kind: "x"}))
	require.NoError(t, w.Notify(context.Background(), notification.Message{Kind: "y"}))
	require.NoError(t, w.Stop(context.Background()))
	assert.Equal(t, 2, next.count())
}

func TestStopHonoursContext(t *testing.T) {
	next := &collectingNotifier{block: make(chan struct{})}
	defer close(next.block)
	w := NewNotificationWorker(next, zap.NewNop(), 1)
	w.Start(1)
	require.NoError(t, w.Notify(context.Background(), notification.Message{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Stop(ctx), context.DeadlineExceeded)
}
