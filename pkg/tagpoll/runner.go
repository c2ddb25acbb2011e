package tagpoll

import (
	"context"
	"fmt"
	"time"

	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

// AssetBinding ties a polled asset id to its folder in the tag
// hierarchy.
type AssetBinding struct {
	AssetID string
	TagPath string
}

// Runner schedules one recurring poll job per asset.
type Runner struct {
	poller   *Poller
	bindings []AssetBinding
	interval time.Duration
	sched    quartz.Scheduler
	logger   *zap.Logger
}

func NewRunner(poller *Poller, bindings []AssetBinding, interval time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		poller:   poller,
		bindings: bindings,
		interval: interval,
		sched:    quartz.NewStdScheduler(),
		logger:   logger.With(zap.String("component", "tagpoll_runner")),
	}
}

// Start schedules all jobs and begins polling. Jobs stop when ctx is
// cancelled.
func (r *Runner) Start(ctx context.Context) error {
	r.sched.Start(ctx)
	for _, binding := range r.bindings {
		pollJob := job.NewFunctionJob(func(context.Context) (Result, error) {
			result := r.poller.PollOnce(binding.AssetID, binding.TagPath)
			if !result.CommsOk {
				r.logger.Warn("poll tick failed",
					zap.String("asset_id", result.AssetID), zap.String("error", result.Err))
			}
			return result, nil
		})
		detail := quartz.NewJobDetail(pollJob, quartz.NewJobKey("poll_"+binding.AssetID))
		if err := r.sched.ScheduleJob(detail, quartz.NewSimpleTrigger(r.interval)); err != nil {
			return fmt.Errorf("schedule poll for %s: %w", binding.AssetID, err)
		}
	}
	return nil
}

// Wait blocks until the scheduler has drained after ctx cancellation.
func (r *Runner) Wait(ctx context.Context) {
	r.sched.Wait(ctx)
}

// Stop shuts the scheduler down.
func (r *Runner) Stop() {
	r.sched.Stop()
}
