package monitoring

import (
	"context"
	"time"

	"github.com/isdelr/tweetapp-be/internal/metrics"
	"github.com/isdelr/tweetapp-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Janitor periodically removes audit events older than the retention window.
type Janitor struct {
	eventSvc  services.EventServiceProvider
	retention time.Duration
	cron      *cron.Cron
	now       func() time.Time
}

// NewJanitor creates a janitor that runs on the given standard cron schedule.
func NewJanitor(eventSvc services.EventServiceProvider, schedule string, retention time.Duration) (*Janitor, error) {
	j := &Janitor{
		eventSvc:  eventSvc,
		retention: retention,
		cron:      cron.New(),
		now:       time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, j.runOnce); err != nil {
		return nil, err
	}
	return j, nil
}

// Start runs the schedule in the background.
func (j *Janitor) Start() {
	log.Info().Dur("retention", j.retention).Msg("Starting event janitor...")
	j.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	log.Info().Msg("Stopped event janitor.")
}

func (j *Janitor) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := j.Prune(ctx); err != nil {
		log.Error().Err(err).Msg("Janitor: failed to prune events")
	}
}

// Prune deletes expired events now and returns how many were removed.
func (j *Janitor) Prune(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.eventSvc.PruneEvents(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.AddEventsPruned(n)
	if n > 0 {
		log.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("Janitor: pruned old events")
	}
	return n, nil
}
