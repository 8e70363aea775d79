package service

import (
	"context"
	"sort"

	"github.com/robotcare/maintenance-service/internal/auth"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/repository"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

const defaultBusyThreshold = 3

// EngineerService projects users of a provider organization onto their workload.
type EngineerService struct {
	users         repository.UserRepository
	tickets       repository.TicketRepository
	busyThreshold int
}

// NewEngineerService constructs the service.
func NewEngineerService(deps Dependencies) *EngineerService {
	threshold := deps.Workflow.BusyThreshold
	if threshold <= 0 {
		threshold = defaultBusyThreshold
	}
	return &EngineerService{users: deps.UserRepo, tickets: deps.TicketRepo, busyThreshold: threshold}
}

// ListEngineers returns the service engineers of the actor's organization with
// their derived status, busiest first.
func (s *EngineerService) ListEngineers(ctx context.Context, actor domain.Actor) ([]domain.Engineer, error) {
	if err := auth.Authorize(actor, auth.OpListEngineers); err != nil {
		return nil, err
	}
	users, err := s.users.ListByOrganization(ctx, actor.OrganizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats, err := s.tickets.StatsByAssignee(ctx, actor.OrganizationID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	engineers := make([]domain.Engineer, 0, len(users))
	for _, user := range users {
		if user.Role != domain.RoleServiceEngineer || !user.Active {
			continue
		}
		st := stats[user.ID]
		engineers = append(engineers, domain.Engineer{
			User:          user,
			CurrentStatus: EngineerStatusFor(st, s.busyThreshold),
			TicketStats:   st,
		})
	}
	sort.SliceStable(engineers, func(i, j int) bool {
		return engineers[i].TicketStats.Active() > engineers[j].TicketStats.Active()
	})
	return engineers, nil
}

// EngineerStatusFor derives the workload status from open and in-progress counts.
func EngineerStatusFor(stats domain.TicketStats, busyThreshold int) domain.EngineerStatus {
	active := stats.Active()
	switch {
	case active == 0:
		return domain.EngineerIdle
	case active >= busyThreshold:
		return domain.EngineerBusy
	default:
		return domain.EngineerWorking
	}
}
