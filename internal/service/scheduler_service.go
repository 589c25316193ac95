package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"dostyq-support/internal/logger"
)

// Job is a unit of scheduled work. The context expires after the job timeout.
type Job func(ctx context.Context) error

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
	log  *logger.Logger
}

func NewSchedulerService(loc *time.Location, log *logger.Logger) *SchedulerService {
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		log:  log,
	}
}

// ScheduleDaily registers job to run every day at the HH:MM wall-clock time.
// Each run gets its own context bounded by timeout; failures are logged.
func (s *SchedulerService) ScheduleDaily(name, at string, timeout time.Duration, job Job) (cron.EntryID, error) {
	hour, minute, err := parseClock(at)
	if err != nil {
		return 0, err
	}
	// second minute hour dom month dow
	expr := fmt.Sprintf("0 %d %d * * *", minute, hour)
	return s.cron.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		started := time.Now()
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		s.log.Info("scheduled job done", "job", name, "took", time.Since(started))
	})
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to return.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *SchedulerService) Entries() int {
	return len(s.cron.Entries())
}

func parseClock(at string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(at), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", at)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", at)
	}
	return hour, minute, nil
}
