package scheduler

import (
	"context"
	"time"

	"github.com/Dan9191/ledger-monitor/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Runner runs monitoring for one company
type Runner interface {
	Run(ctx context.Context, companyID string) (*models.MonitoringReport, error)
}

// Notifier delivers a finished report
type Notifier interface {
	SendReport(to []string, report *models.MonitoringReport) error
}

// Scheduler triggers monitoring runs for a fixed set of companies on a cron schedule
type Scheduler struct {
	cron        *cron.Cron
	runner      Runner
	notifier    Notifier
	companies   []string
	recipients  []string
	timeout     time.Duration
	concurrency int
	log         *logrus.Logger
}

// New creates a scheduler. Runs for different companies proceed concurrently up to
// concurrency at a time; each run owns its data.
func New(runner Runner, notifier Notifier, companies, recipients []string, timeout time.Duration, concurrency int, log *logrus.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		cron:        cron.New(),
		runner:      runner,
		notifier:    notifier,
		companies:   companies,
		recipients:  recipients,
		timeout:     timeout,
		concurrency: concurrency,
		log:         log,
	}
}

// Start registers the monitoring job under spec and starts the cron loop
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunAll(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("Scheduled monitoring for %d companies: %s", len(s.companies), spec)
	return nil
}

// Stop stops the cron loop and waits for a running job
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunAll monitors every configured company and mails each report.
// A failing company is logged and does not stop the others. It returns the number of reports sent.
func (s *Scheduler) RunAll(ctx context.Context) int {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	sent := make([]bool, len(s.companies))
	for i, companyID := range s.companies {
		g.Go(func() error {
			runCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			log := s.log.WithField("company_id", companyID)
			report, err := s.runner.Run(runCtx, companyID)
			if err != nil {
				log.WithError(err).Error("Scheduled monitoring failed")
				return nil
			}
			if len(s.recipients) == 0 {
				log.Info("Scheduled monitoring finished, no recipients configured")
				return nil
			}
			if err := s.notifier.SendReport(s.recipients, report); err != nil {
				log.WithError(err).Error("Failed to deliver report")
				return nil
			}
			sent[i] = true
			return nil
		})
	}
	g.Wait()

	var n int
	for _, ok := range sent {
		if ok {
			n++
		}
	}
	return n
}
