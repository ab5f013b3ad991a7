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

type PresenceServiceInterface interface {
	Heartbeat(ctx context.Context, hb models.Heartbeat) error
	GetOnline(ctx context.Context) ([]models.PresenceRecord, error)
	Sweep(ctx context.Context) (int64, error)
}

type PresenceService struct {
	store   storage.Store
	clock   models.Clock
	window  time.Duration
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

// Heartbeat refreshes lastSeen for the caller. When the display name changed and
// the record is keyed by name, the record under the previous name is removed in
// the same transaction.
func (ps *PresenceService) Heartbeat(ctx context.Context, hb models.Heartbeat) error {
	name := hb.Identity
	if isBlank(name) {
		return models.ErrInvalidIdentity
	}
	key := hb.Key
	previous := hb.PreviousIdentity
	if isBlank(previous) {
		previous = ""
	}
	if isBlank(key) {
		key = name
	} else {
		// stable key: a rename only touches the name column
		previous = ""
	}

	rec := &models.PresenceRecord{
		Identity: key,
		Name:     name,
		LastSeen: models.Millis(ps.clock.Now()),
	}
	err := ps.store.WithTx(ctx, func(tx storage.Tx) error {
		if previous != "" && previous != key {
			if err := tx.DeletePresence(ctx, previous); err != nil {
				return err
			}
		}
		return tx.UpsertPresence(ctx, rec)
	})
	if err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	ps.metrics.IncHeartbeats()
	return nil
}

func (ps *PresenceService) GetOnline(ctx context.Context) ([]models.PresenceRecord, error) {
	now := ps.clock.Now()
	recs, err := ps.store.ListPresenceSince(ctx, models.Millis(now)-ps.window.Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	online := make([]models.PresenceRecord, 0, len(recs))
	for i := range recs {
		if recs[i].IsOnline(now, ps.window) {
			online = append(online, recs[i])
		}
	}
	ps.metrics.SetOnlineIdentities(len(online))
	return online, nil
}

// Sweep physically removes records that fell out of the online window.
func (ps *PresenceService) Sweep(ctx context.Context) (int64, error) {
	cutoff := models.Millis(ps.clock.Now()) - ps.window.Milliseconds()
	n, err := ps.store.DeletePresenceBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep presence: %w", err)
	}
	if n > 0 {
		ps.logger.Debugf(providers.TypeApp, "Swept %d stale presence records", n)
	}
	return n, nil
}

func NewPresenceService(conf *structures.Config, store storage.Store, clock models.Clock, logger providers.Logger, metrics providers.MetricsProviderInterface) PresenceServiceInterface {
	return &PresenceService{
		store:   store,
		clock:   clock,
		window:  conf.Presence.OnlineWindow,
		logger:  logger,
		metrics: metrics,
	}
}
