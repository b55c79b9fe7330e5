package period

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/flatrota/internal/model"
)

// TaskProvider loads a task with its roster. It returns nil, nil for an
// unknown id.
type TaskProvider interface {
	GetTask(ctx context.Context, id int64) (*model.Task, error)
}

// Store persists periods. CompletePeriod and ReassignPeriod must be single
// conditional updates that only touch pending periods.
type Store interface {
	ListPeriods(ctx context.Context, taskID int64) ([]model.Period, error)
	ListByAssignee(ctx context.Context, memberID int64, pendingOnly bool) ([]model.Period, error)
	GetBatch(ctx context.Context, taskID int64) (*model.PeriodBatch, error)
	InsertBatch(ctx context.Context, batch model.PeriodBatch, periods []model.Period) ([]model.Period, error)
	GetPeriod(ctx context.Context, id int64) (*model.Period, error)
	CompletePeriod(ctx context.Context, id, completedBy int64, at time.Time) (bool, error)
	ReassignPeriod(ctx context.Context, id, assignedTo int64) (bool, error)
	DeleteBatch(ctx context.Context, taskID int64) (int64, error)
}

// Authorizer is supplied by the membership subsystem; its answers are taken as
// ground truth.
type Authorizer interface {
	IsTaskOwnerOrFlatOwner(ctx context.Context, actor int64, task *model.Task) (bool, error)
	IsRosterMember(ctx context.Context, actor int64, task *model.Task) (bool, error)
}

// Metrics receives operation outcomes.
type Metrics interface {
	PeriodsGenerated(n int)
	Operation(op, result string)
}

type nopMetrics struct{}

func (nopMetrics) PeriodsGenerated(int) {}
func (nopMetrics) Operation(string, string) {}

// Service generates periods for tasks and drives their lifecycle. It holds no
// state between calls beyond its collaborators.
type Service struct {
	tasks   TaskProvider
	periods Store
	auth    Authorizer
	metrics Metrics
	logger  *slog.Logger
	now     func() time.Time
	batchID func() string
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the completion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(tasks TaskProvider, periods Store, auth Authorizer, opts ...Option) *Service {
	s := &Service{
		tasks:   tasks,
		periods: periods,
		auth:    auth,
		metrics: nopMetrics{},
		logger:  slog.Default(),
		now:     time.Now,
		batchID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) loadTask(ctx context.Context, id int64) (*model.Task, error) {
	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, storageErr("get task", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

func (s *Service) loadPeriod(ctx context.Context, id int64) (*model.Period, error) {
	p, err := s.periods.GetPeriod(ctx, id)
	if err != nil {
		return nil, storageErr("get period", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) requireOwner(ctx context.Context, actor int64, task *model.Task) error {
	ok, err := s.auth.IsTaskOwnerOrFlatOwner(ctx, actor, task)
	if err != nil {
		return storageErr("check owner", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) requireMember(ctx context.Context, actor int64, task *model.Task) error {
	ok, err := s.auth.IsRosterMember(ctx, actor, task)
	if err != nil {
		return storageErr("check member", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) record(op string, err error) {
	kind := Kind(err)
	s.metrics.Operation(op, kind)
	switch kind {
	case "ok":
	case "storage_failure", "internal":
		s.logger.Error("period operation failed", "op", op, "kind", kind, "error", err)
	default:
		s.logger.Debug("period operation rejected", "op", op, "kind", kind)
	}
}
