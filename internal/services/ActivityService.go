package services

import (
	"context"
	"fmt"
	"tally/internal/models"
	"tally/internal/providers"
	"tally/internal/storage"
	"tally/internal/structures"
	"time"
)

const pruneBatchSize = 500

// ArchiveFunc receives each batch of expired events before it is deleted.
// An error aborts pruning and keeps the batch in the store.
type ArchiveFunc func(events []models.ActivityEvent) error

type ActivityServiceInterface interface {
	GetRecent(ctx context.Context, q models.RecentQuery) ([]models.ActivityEvent, error)
	Prune(ctx context.Context, archive ArchiveFunc) (int, error)
}

type ActivityService struct {
	store        storage.Store
	clock        models.Clock
	defaultLimit int
	maxLimit     int
	window       time.Duration
	retention    time.Duration
	logger       providers.Logger
	metrics      providers.MetricsProviderInterface
}

// GetRecent returns events newer than q.Since, newest first. A zero Limit or Since
// falls back to the configured defaults (10 events, last 5 minutes).
func (as *ActivityService) GetRecent(ctx context.Context, q models.RecentQuery) ([]models.ActivityEvent, error) {
	if q.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", models.ErrInvalidQuery)
	}
	limit := q.Limit
	if limit == 0 {
		limit = as.defaultLimit
	}
	limit = min(limit, as.maxLimit)

	since := q.Since
	if since.IsZero() {
		since = as.clock.Now().Add(-as.window)
	}

	events, err := as.store.ListEventsAfter(ctx, models.Millis(since), limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	if events == nil {
		events = []models.ActivityEvent{}
	}
	return events, nil
}

// Prune hands events older than the retention window to archive in batches and
// deletes each batch once archived. Retention 0 keeps events forever.
func (as *ActivityService) Prune(ctx context.Context, archive ArchiveFunc) (int, error) {
	if as.retention <= 0 {
		return 0, nil
	}
	cutoff := models.Millis(as.clock.Now().Add(-as.retention))

	total := 0
	for {
		batch, err := as.store.ListEventsBefore(ctx, cutoff, pruneBatchSize)
		if err != nil {
			return total, fmt.Errorf("list expired events: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		if archive != nil {
			if err := archive(batch); err != nil {
				return total, fmt.Errorf("archive events: %w", err)
			}
		}
		n, err := as.store.DeleteEventsThrough(ctx, cutoff, batch[len(batch)-1].ID)
		if err != nil {
			return total, fmt.Errorf("delete expired events: %w", err)
		}
		total += int(n)
		if len(batch) < pruneBatchSize {
			break
		}
	}

	if total > 0 {
		as.metrics.AddEventsPruned(total)
		as.logger.Infof(providers.TypeApp, "Pruned %d activity events older than %s", total, as.retention)
	}
	return total, nil
}

func NewActivityService(conf *structures.Config, store storage.Store, clock models.Clock, logger providers.Logger, metrics providers.MetricsProviderInterface) ActivityServiceInterface {
	return &ActivityService{
		store:        store,
		clock:        clock,
		defaultLimit: conf.Activity.RecentLimit,
		maxLimit:     conf.Activity.MaxLimit,
		window:       conf.Activity.RecentWindow,
		retention:    conf.Activity.Retention,
		logger:       logger,
		metrics:      metrics,
	}
}
