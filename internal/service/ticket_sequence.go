package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// fallbackSequence asks primary first and falls back to secondary when it fails.
type fallbackSequence struct {
	primary   TicketSequence
	secondary TicketSequence
	logger    *zap.Logger
}

// NewFallbackSequence keeps ticket creation available while primary is down.
// Numbers handed out by secondary may collide with primary's later; the
// duplicate retry in CreateTicket absorbs that.
func NewFallbackSequence(primary, secondary TicketSequence, logger *zap.Logger) TicketSequence {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fallbackSequence{primary: primary, secondary: secondary, logger: logger}
}

func (f *fallbackSequence) NextTicketSequence(ctx context.Context, day time.Time) (int64, error) {
	seq, err := f.primary.NextTicketSequence(ctx, day)
	if err == nil {
		return seq, nil
	}
	f.logger.Warn("primary ticket sequence failed; using fallback", zap.Error(err))
	return f.secondary.NextTicketSequence(ctx, day)
}
