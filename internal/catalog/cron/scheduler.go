package cronjob

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/wemb-pms/pms-backend/internal/catalog/domain"
)

// DefaultSpec refreshes the catalog nightly at 12:00 AM.
const DefaultSpec = "0 0 0 * * *"

// Refresher reloads the catalog into the cache.
type Refresher interface {
	Refresh(ctx context.Context, source string) (domain.Catalog, error)
}

// Scheduler runs the catalog refresh on a cron spec with seconds.
type Scheduler struct {
	c       *cron.Cron
	r       Refresher
	log     *zap.Logger
	timeout time.Duration
}

func NewScheduler(r Refresher, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		c:       cron.New(cron.WithSeconds()),
		r:       r,
		log:     log,
		timeout: time.Minute,
	}
}

// Start registers the job and starts the scheduler. An empty spec uses
// DefaultSpec.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := s.c.AddFunc(spec, s.RunOnce); err != nil {
		s.log.Error("failed to create cron job", zap.String("spec", spec), zap.Error(err))
		return err
	}

	s.log.Info("catalog refresh scheduler started", zap.String("spec", spec))
	s.c.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}

// RunOnce performs a single refresh.
func (s *Scheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	started := time.Now()
	if _, err := s.r.Refresh(ctx, "cron"); err != nil {
		s.log.Error("catalog refresh failed", zap.Error(err))
		return
	}
	s.log.Info("catalog refresh completed", zap.Duration("took", time.Since(started)))
}
