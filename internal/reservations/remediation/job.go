package remediation

import (
	"context"
	"fmt"
	"spacedesk/pkg/logger"
	"time"

	"github.com/robfig/cron/v3"
)

// Remediator expires reservations whose notification was lost.
type Remediator interface {
	RemediateOverdue(ctx context.Context) (int, error)
}

// Job runs remediation passes on a cron schedule. Overlapping runs are skipped.
// A Job built with an empty schedule only runs through RunOnce.
type Job struct {
	remediator Remediator
	schedule   string
	timeout    time.Duration
	log        *logger.Logger
	cron       *cron.Cron
	entryID    cron.EntryID
}

func NewJob(remediator Remediator, schedule string, timeout time.Duration, log *logger.Logger) (*Job, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cronLog := cronLogger{log: log.With("component", "remediation")}

	j := &Job{
		remediator: remediator,
		schedule:   schedule,
		timeout:    timeout,
		log:        log,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
	}

	if schedule == "" {
		return j, nil
	}

	id, err := j.cron.AddFunc(schedule, j.run)
	if err != nil {
		return nil, fmt.Errorf("invalid remediation schedule %q: %w", schedule, err)
	}
	j.entryID = id
	return j, nil
}

func (j *Job) Start() {
	if j.entryID == 0 {
		j.log.Info("Remediation job has no schedule, not starting")
		return
	}
	j.cron.Start()
	j.log.Info("Remediation job scheduled", "schedule", j.schedule, "next_run", j.Next())
}

// Stop halts the schedule and waits for a running pass, bounded by ctx.
func (j *Job) Stop(ctx context.Context) {
	if j.entryID == 0 {
		return
	}
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.log.Info("Remediation job stopped")
	case <-ctx.Done():
		j.log.Warn("Remediation job did not stop in time", "error", ctx.Err())
	}
}

func (j *Job) Next() time.Time {
	return j.cron.Entry(j.entryID).Next
}

// RunOnce executes a single remediation pass.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	expired, err := j.remediator.RemediateOverdue(ctx)
	if err != nil {
		j.log.Error("Remediation pass failed",
			"expired", expired,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return expired, err
	}

	j.log.Debug("Remediation pass completed",
		"expired", expired,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return expired, nil
}

func (j *Job) run() {
	_, _ = j.RunOnce(context.Background())
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
