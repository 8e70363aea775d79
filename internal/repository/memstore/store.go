// Package memstore keeps every repository in process memory. It backs the
// service when no Postgres DSN is configured and is used throughout the tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/repository"
)

type stageKey struct {
	ticketID  string
	stageType domain.StageType
}

// Store holds all records guarded by a single mutex.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	now  func() time.Time

	organizations map[string]domain.Organization
	users         map[string]domain.User
	tickets       map[string]domain.Ticket
	stages        map[stageKey]domain.Stage
	comments      map[string][]domain.Comment
	ratings       map[string]domain.Rating
	timeline      map[string][]domain.TimelineEvent
	sequences     map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		organizations: make(map[string]domain.Organization),
		users:         make(map[string]domain.User),
		tickets:       make(map[string]domain.Ticket),
		stages:        make(map[stageKey]domain.Stage),
		comments:      make(map[string][]domain.Comment),
		ratings:       make(map[string]domain.Rating),
		timeline:      make(map[string][]domain.TimelineEvent),
		sequences:     make(map[string]int64),
	}
}

// SetClock overrides the time source used for record timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Organizations() repository.OrganizationRepository { return &organizationRepo{s: s} }
func (s *Store) Users() repository.UserRepository                 { return &userRepo{s: s} }
func (s *Store) Tickets() repository.TicketRepository             { return &ticketRepo{s: s} }
func (s *Store) Stages() repository.StageRepository               { return &stageRepo{s: s} }
func (s *Store) Comments() repository.CommentRepository           { return &commentRepo{s: s} }
func (s *Store) Ratings() repository.RatingRepository             { return &ratingRepo{s: s} }
func (s *Store) Timeline() repository.TimelineRepository          { return &timelineRepo{s: s} }

// NextTicketSequence returns the next per-day ticket sequence number.
func (s *Store) NextTicketSequence(_ context.Context, day time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := day.UTC().Format("20060102")
	s.sequences[key]++
	return s.sequences[key], nil
}

type txKey struct{}

type txState struct {
	undo []func()
}

// WithinTransaction serializes transactions and reverts their writes when fn fails.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	state := &txState{}
	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		s.mu.Lock()
		for i := len(state.undo) - 1; i >= 0; i-- {
			state.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// onRollback registers an undo step; callers hold s.mu.
func onRollback(ctx context.Context, undo func()) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.undo = append(state.undo, undo)
	}
}

func newID() string {
	return uuid.NewString()
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

var _ repository.Transactor = (*Store)(nil)
