package chrono

import (
	"tigerscraper/internal/components/telemetry"
	"time"

	"github.com/robfig/cron/v3"
)

const report_cron_job = "cron.job"

// CronAPI runs callbacks on cron schedules.
//
// note: fault injection point
type CronAPI interface {
	Cron(spec string, callback func()) error
	// Next returns the earliest upcoming run of any job, the zero time when
	// nothing is scheduled.
	Next() time.Time
	Stop()
}

// StandardCron implements CronAPI with robfig/cron. A job that is still
// running when its next tick fires skips that tick.
type StandardCron struct {
	cron *cron.Cron
}

func NewStandardCron(tel telemetry.API) StandardCron {
	logger := cronLogger{tel: telemetry.NewScopedAPI("chrono", tel)}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Start()
	return StandardCron{cron: c}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

func (s StandardCron) Next() time.Time {
	var next time.Time
	for _, entry := range s.cron.Entries() {
		if next.IsZero() || entry.Next.Before(next) {
			next = entry.Next
		}
	}
	return next
}

// Stop stops scheduling new jobs and waits for a running job to finish.
func (s StandardCron) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts telemetry.API to cron.Logger, cron passes alternating
// keys and values which the slog implementation turns into attributes.
type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.tel.ReportBroken(report_cron_job, append([]any{err, "msg", msg}, keysAndValues...)...)
}
