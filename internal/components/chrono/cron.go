package chrono

import (
	"context"
	"fmt"

	"gwtdownloads/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

// Scheduler runs recurring downloads, specs use the standard 5 field cron syntax.
type Scheduler interface {
	Schedule(spec string, job func(ctx context.Context)) error
	Run(ctx context.Context) error
}

// CronScheduler implements Scheduler with `github.com/robfig/cron/v3`, jobs never
// overlap with themselves.
type CronScheduler struct {
	cron *cron.Cron
	tel  telemetry.API
	ctx  context.Context
}

func NewCronScheduler(clock API, tel telemetry.API) *CronScheduler {
	logger := cronLogger{tel: tel}
	return &CronScheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithLocation(clock.Location()),
			cron.WithChain(cron.SkipIfStillRunning(logger)),
		),
		tel: tel,
		ctx: context.Background(),
	}
}

func (s *CronScheduler) Schedule(spec string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		job(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return nil
}

// Run blocks until ctx is done, then waits for running jobs to finish.
func (s *CronScheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.tel.ReportDebug("cron: next run", entry.Next)
	}
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug(
		fmt.Sprintf("cron: %s", msg),
		l.formatParams(keysAndValues)...,
	)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(
		"cron",
		append([]any{fmt.Errorf("%s: %w", msg, err)}, l.formatParams(keysAndValues)...)...,
	)
}
