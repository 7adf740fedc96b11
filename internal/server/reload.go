package server

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/affordability-cli/internal/cache"
)

// Reloader periodically reloads the dataset, which invalidates every cached
// aggregate.
type Reloader struct {
	scheduler *gocron.Scheduler
	pipeline  *cache.Pipeline
	timeout   time.Duration
}

// NewReloader creates a Reloader firing every interval.
func NewReloader(p *cache.Pipeline, interval time.Duration) (*Reloader, error) {
	minutes := int(interval.Minutes())
	if minutes <= 0 {
		return nil, eris.Errorf("server: reload interval %s must be at least a minute", interval)
	}

	rl := &Reloader{
		scheduler: gocron.NewScheduler(time.UTC),
		pipeline:  p,
		timeout:   5 * time.Minute,
	}
	_, err := rl.scheduler.Every(minutes).Minutes().WaitForSchedule().SingletonMode().Do(rl.run)
	if err != nil {
		return nil, eris.Wrap(err, "server: schedule reload")
	}
	return rl, nil
}

func (rl *Reloader) run() {
	ctx, cancel := context.WithTimeout(context.Background(), rl.timeout)
	defer cancel()

	zap.L().Info("server: scheduled reload starting")
	if err := rl.pipeline.Reload(ctx); err != nil {
		zap.L().Error("server: scheduled reload failed", zap.Error(err))
	}
}

// Start runs the schedule in the background.
func (rl *Reloader) Start() { rl.scheduler.StartAsync() }

// Stop cancels future reloads.
func (rl *Reloader) Stop() { rl.scheduler.Stop() }
