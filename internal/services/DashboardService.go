package services

import (
	"context"
	"tally/internal/models"
)

type DashboardServiceInterface interface {
	GetDashboard(ctx context.Context) (*models.Dashboard, error)
}

// DashboardService assembles the three read models into one client view.
// The parts are read independently and are not a consistent snapshot.
type DashboardService struct {
	counter  CounterServiceInterface
	presence PresenceServiceInterface
	activity ActivityServiceInterface
}

func (ds *DashboardService) GetDashboard(ctx context.Context) (*models.Dashboard, error) {
	snapshot, err := ds.counter.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	online, err := ds.presence.GetOnline(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := ds.activity.GetRecent(ctx, models.RecentQuery{})
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		Counter: snapshot,
		Online:  online,
		Recent:  recent,
	}, nil
}

func NewDashboardService(counter CounterServiceInterface, presence PresenceServiceInterface, activity ActivityServiceInterface) DashboardServiceInterface {
	return &DashboardService{
		counter:  counter,
		presence: presence,
		activity: activity,
	}
}
