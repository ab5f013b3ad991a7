package maintenance

import (
	"context"
	"sync"
	"tally/internal/maintenance/interfaces"
	"tally/internal/providers"
	"tally/internal/services"
	"tally/internal/structures"
	"time"

	"github.com/roylee0704/gron"
)

const jobTimeout = 30 * time.Second

type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	presence services.PresenceServiceInterface
	activity services.ActivityServiceInterface
	archiver *Archiver
	stream   interfaces.TickerInterface
	cron     *gron.Cron
	opsMu    sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	if s.config.Presence.SweepEnabled && s.config.Presence.SweepInterval > 0 {
		s.cron.AddFunc(gron.Every(s.config.Presence.SweepInterval), s.sweepPresence)
		s.logger.Infof(providers.TypeApp, "Presence sweep every %s", s.config.Presence.SweepInterval)
	}

	if s.config.Activity.Retention > 0 && s.config.Activity.PruneInterval > 0 {
		s.cron.AddFunc(gron.Every(s.config.Activity.PruneInterval), s.pruneActivity)
		s.logger.Infof(providers.TypeApp, "Activity retention %s, pruning every %s", s.config.Activity.Retention, s.config.Activity.PruneInterval)
	}

	if s.config.Stream.Enabled && s.stream != nil && s.config.Stream.Interval > 0 {
		s.cron.AddFunc(gron.Every(s.config.Stream.Interval), s.stream.Tick)
	}

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	// wait for a running maintenance job
	s.opsMu.Lock()
	defer s.opsMu.Unlock()
}

func (s *Scheduler) sweepPresence() {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.presence.Sweep(ctx); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while sweeping presence: %s", err)
	}
}

func (s *Scheduler) pruneActivity() {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if _, err := s.activity.Prune(ctx, s.archiver.Archive); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while pruning activity: %s", err)
	}
}

func NewScheduler(config *structures.Config, logger providers.Logger, presence services.PresenceServiceInterface, activity services.ActivityServiceInterface, archiver *Archiver, stream interfaces.TickerInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:   config,
		logger:   logger,
		presence: presence,
		activity: activity,
		archiver: archiver,
		stream:   stream,
	}
}
