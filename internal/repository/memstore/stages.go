package memstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/repository"
)

type stageRepo struct {
	s *Store
}

func cloneStage(st domain.Stage) *domain.Stage {
	if st.Attachments != nil {
		st.Attachments = append([]domain.Attachment(nil), st.Attachments...)
	} else {
		st.Attachments = []domain.Attachment{}
	}
	st.ExpectedDate = copyTime(st.ExpectedDate)
	st.CompletedAt = copyTime(st.CompletedAt)
	return &st
}

func (r *stageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Stage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []domain.Stage
	for _, stageType := range domain.StageTypes {
		if st, ok := r.s.stages[stageKey{ticketID, stageType}]; ok {
			result = append(result, *cloneStage(st))
		}
	}
	return result, nil
}

func (r *stageRepo) Get(_ context.Context, ticketID string, stageType domain.StageType) (*domain.Stage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.stages[stageKey{ticketID, stageType}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneStage(st), nil
}

func (r *stageRepo) Upsert(ctx context.Context, stage *domain.Stage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := stageKey{stage.TicketID, stage.StageType}
	now := r.s.now()
	prev, existed := r.s.stages[key]
	if existed && prev.StageType == domain.StageCustomerConfirmation && prev.Status == domain.StageStatusCompleted {
		return repository.ErrAlreadyCompleted
	}

	var next domain.Stage
	if existed {
		next = *cloneStage(prev)
	} else {
		next = domain.Stage{
			ID:        newID(),
			TicketID:  stage.TicketID,
			StageType: stage.StageType,
			Status:    domain.StageStatusInProgress,
			CreatedBy: stage.CreatedBy,
			CreatedAt: now,
		}
	}
	next.Content = stage.Content
	next.Attachments = stage.Attachments
	next.ExpectedDate = copyTime(stage.ExpectedDate)
	next.UpdatedAt = now

	r.s.stages[key] = *cloneStage(next)
	r.restoreOnRollback(ctx, key, prev, existed)
	*stage = *cloneStage(next)
	return nil
}

func (r *stageRepo) Complete(ctx context.Context, stage *domain.Stage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := stageKey{stage.TicketID, stage.StageType}
	now := r.s.now()
	prev, existed := r.s.stages[key]
	if existed && prev.Status == domain.StageStatusCompleted {
		return repository.ErrAlreadyCompleted
	}

	var next domain.Stage
	if existed {
		next = *cloneStage(prev)
		if stage.Content != "" {
			next.Content = stage.Content
		}
	} else {
		next = domain.Stage{
			ID:          newID(),
			TicketID:    stage.TicketID,
			StageType:   stage.StageType,
			Content:     stage.Content,
			Attachments: []domain.Attachment{},
			CreatedBy:   stage.CreatedBy,
			CreatedAt:   now,
		}
	}
	next.Status = domain.StageStatusCompleted
	next.CompletedAt = &now
	next.UpdatedAt = now

	r.s.stages[key] = *cloneStage(next)
	r.restoreOnRollback(ctx, key, prev, existed)
	*stage = *cloneStage(next)
	return nil
}

func (r *stageRepo) restoreOnRollback(ctx context.Context, key stageKey, prev domain.Stage, existed bool) {
	onRollback(ctx, func() {
		if existed {
			r.s.stages[key] = prev
			return
		}
		delete(r.s.stages, key)
	})
}
