package services

import (
	"context"
	"fmt"
	"strings"
	"tally/internal/models"
	"tally/internal/providers"
	"tally/internal/storage"
	"tally/internal/structures"
	"time"

	"github.com/google/uuid"
)

type CounterServiceInterface interface {
	GetSnapshot(ctx context.Context) (models.CounterSnapshot, error)
	Increment(ctx context.Context, actor string) error
	Reset(ctx context.Context, caller string) error
}

type CounterService struct {
	store   storage.Store
	clock   models.Clock
	loc     *time.Location
	admins  map[string]struct{}
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

// today captures the calendar date once per operation.
func (cs *CounterService) today() (time.Time, string) {
	now := cs.clock.Now()
	return now, models.DayKey(now, cs.loc)
}

func (cs *CounterService) GetSnapshot(ctx context.Context) (models.CounterSnapshot, error) {
	_, day := cs.today()
	c, err := cs.store.GetCounter(ctx)
	if err != nil {
		return models.CounterSnapshot{}, fmt.Errorf("load counter: %w", err)
	}
	return c.Project(day), nil
}

func (cs *CounterService) Increment(ctx context.Context, actor string) error {
	if isBlank(actor) {
		return models.ErrInvalidIdentity
	}

	now, day := cs.today()
	event := &models.ActivityEvent{
		EventID:       uuid.NewString(),
		ActorIdentity: actor,
		Action:        models.ActionIncremented,
	}

	var next *models.Counter
	err := cs.store.WithTx(ctx, func(tx storage.Tx) error {
		current, err := tx.GetCounter(ctx)
		if err != nil {
			return err
		}
		next = current.Advance(day)
		if err := tx.PutCounter(ctx, next); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event, now)
	})
	if err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}

	cs.metrics.IncIncrements()
	cs.logger.Debugf(providers.TypePost, "Counter incremented by %s: daily=%d total=%d", actor, next.DailyCount, next.TotalCount)
	return nil
}

// Reset zeroes the counter. Only identities on the admin list may do it.
func (cs *CounterService) Reset(ctx context.Context, caller string) error {
	if isBlank(caller) {
		return models.ErrInvalidIdentity
	}
	if _, ok := cs.admins[caller]; !ok {
		cs.logger.Warnf(providers.TypeApp, "Counter reset refused for %s", caller)
		return models.ErrForbidden
	}

	err := cs.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.DeleteCounter(ctx)
	})
	if err != nil {
		return fmt.Errorf("reset counter: %w", err)
	}
	cs.logger.Infof(providers.TypeApp, "Counter reset by %s", caller)
	return nil
}

func NewCounterService(conf *structures.Config, store storage.Store, clock models.Clock, logger providers.Logger, metrics providers.MetricsProviderInterface) (CounterServiceInterface, error) {
	loc, err := time.LoadLocation(conf.Counter.Timezone)
	if err != nil {
		return nil, fmt.Errorf("counter timezone: %w", err)
	}
	admins := make(map[string]struct{}, len(conf.Admin.Identities))
	for _, id := range conf.Admin.Identities {
		if !isBlank(id) {
			admins[id] = struct{}{}
		}
	}
	return &CounterService{
		store:   store,
		clock:   clock,
		loc:     loc,
		admins:  admins,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// isBlank reports whether an identity has no visible characters. Identities
// are otherwise stored exactly as given.
func isBlank(identity string) bool {
	return strings.TrimSpace(identity) == ""
}
