package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/mrwolf/echo-server/internal/logging"
	"github.com/mrwolf/echo-server/internal/models"
	"github.com/mrwolf/echo-server/internal/narrator"
	"github.com/mrwolf/echo-server/internal/signals"
	"github.com/mrwolf/echo-server/internal/telemetry"
)

// Job names, also used as scheduler_runs.job_type
const (
	JobDailyRecompute  = "daily-recompute"
	JobWeeklyRecompute = "weekly-recompute"
)

// Recomputer is the part of the pipeline the jobs drive
type Recomputer interface {
	RecomputeDaily(owner string, start, end time.Time) ([]models.DailyMetric, error)
	RecomputeWeekly(owner string, start, end time.Time) ([]models.DailyMetric, []models.WeeklyMetric, error)
	Summary(owner, period string) (models.SummaryResponse, error)
}

// RunStore tracks job runs and lists owners with data
type RunStore interface {
	Owners() ([]string, error)
	StartSchedulerRun(owner, jobType string) (string, error)
	CompleteSchedulerRun(runID, errMsg string) error
}

// SummaryArchiver keeps a file copy of each weekly summary
type SummaryArchiver interface {
	WriteSummary(record models.SummaryRecord) (string, error)
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	scheduler  gocron.Scheduler
	runs       RunStore
	pipeline   Recomputer
	archive    SummaryArchiver
	clock      clockwork.Clock
	timezone   *time.Location
	owners     []string
	dailyDays  int
	weeklyDays int
}

// Config holds scheduler configuration
type Config struct {
	Timezone           string
	Owners             []string
	DailyLookbackDays  int
	WeeklyLookbackDays int
	Clock              clockwork.Clock // nil for the real clock
	Archive            SummaryArchiver // nil disables the file copy
}

// New creates a new scheduler
func New(runs RunStore, p Recomputer, cfg Config) (*Scheduler, error) {
	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		tz = time.UTC
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(tz), gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		scheduler:  s,
		runs:       runs,
		pipeline:   p,
		archive:    cfg.Archive,
		clock:      clock,
		timezone:   tz,
		owners:     cfg.Owners,
		dailyDays:  cfg.DailyLookbackDays,
		weeklyDays: cfg.WeeklyLookbackDays,
	}, nil
}

// Start starts the scheduler and registers all jobs
func (s *Scheduler) Start() error {
	// Daily recompute at 02:00
	_, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
		gocron.NewTask(s.RunDaily),
		gocron.WithName(JobDailyRecompute),
	)
	if err != nil {
		return err
	}

	// Weekly recompute and summary on Monday at 03:00
	_, err = s.scheduler.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(s.RunWeekly),
		gocron.WithName(JobWeeklyRecompute),
	)
	if err != nil {
		return err
	}

	s.scheduler.Start()
	logging.Info("scheduler started", "timezone", s.timezone.String(), "owners", len(s.owners))
	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

// Jobs returns the registered job names
func (s *Scheduler) Jobs() []string {
	var names []string
	for _, j := range s.scheduler.Jobs() {
		names = append(names, j.Name())
	}
	sort.Strings(names)
	return names
}

// RunDaily recomputes the trailing daily window for every owner
func (s *Scheduler) RunDaily() {
	now := s.clock.Now().UTC()
	for _, owner := range s.allOwners() {
		s.track(owner, JobDailyRecompute, func() error { return s.daily(owner, now) })
	}
}

// RunWeekly recomputes the trailing weekly window for every owner and stores
// a fresh weekly summary
func (s *Scheduler) RunWeekly() {
	now := s.clock.Now().UTC()
	for _, owner := range s.allOwners() {
		s.track(owner, JobWeeklyRecompute, func() error { return s.weekly(owner, now) })
	}
}

// RecomputeNow runs both jobs for one owner outside the schedule. Both runs
// are recorded; the first failure is returned.
func (s *Scheduler) RecomputeNow(owner string) error {
	now := s.clock.Now().UTC()
	dailyErr := s.track(owner, JobDailyRecompute, func() error { return s.daily(owner, now) })
	weeklyErr := s.track(owner, JobWeeklyRecompute, func() error { return s.weekly(owner, now) })
	if dailyErr != nil {
		return dailyErr
	}
	return weeklyErr
}

func (s *Scheduler) daily(owner string, now time.Time) error {
	daily, err := s.pipeline.RecomputeDaily(owner, now.AddDate(0, 0, -s.dailyDays), now)
	if err != nil {
		return err
	}
	telemetry.RecordsWrittenTotal.WithLabelValues("daily").Add(float64(len(daily)))
	return nil
}

func (s *Scheduler) weekly(owner string, now time.Time) error {
	daily, weekly, err := s.pipeline.RecomputeWeekly(owner, now.AddDate(0, 0, -s.weeklyDays), now)
	if err != nil {
		return err
	}
	telemetry.RecordsWrittenTotal.WithLabelValues("daily").Add(float64(len(daily)))
	telemetry.RecordsWrittenTotal.WithLabelValues("weekly").Add(float64(len(weekly)))

	summary, err := s.pipeline.Summary(owner, string(narrator.Week))
	if err != nil {
		return err
	}
	telemetry.RecordsWrittenTotal.WithLabelValues("summary").Inc()

	if s.archive == nil {
		return nil
	}
	path, err := s.archive.WriteSummary(models.SummaryRecord{
		UserID:      owner,
		Period:      summary.Period,
		PeriodStart: signals.DateKey(signals.WeekStart(now)),
		Text:        summary.Summary,
		CreatedAt:   signals.FormatTimestamp(now),
	})
	if err != nil {
		return fmt.Errorf("archiving summary: %w", err)
	}
	logging.Debug("summary archived", "owner", owner, "path", path)
	return nil
}

// track records a run in the store and in metrics. A failure for one owner
// does not stop the others.
func (s *Scheduler) track(owner, job string, fn func() error) error {
	log := logging.With("owner", owner, "job", job)

	runID, err := s.runs.StartSchedulerRun(owner, job)
	if err != nil {
		log.Error("recording run start", "err", err)
	}

	started := s.clock.Now()
	runErr := fn()
	telemetry.ObserveRecompute(job, s.clock.Since(started).Seconds(), runErr)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		log.Error("recompute failed", "err", runErr)
	} else {
		log.Info("recompute finished")
	}

	if runID != "" {
		if err := s.runs.CompleteSchedulerRun(runID, errMsg); err != nil {
			log.Error("recording run completion", "err", err)
		}
	}
	return runErr
}

// allOwners merges configured owners with owners found in the store
func (s *Scheduler) allOwners() []string {
	seen := make(map[string]bool)
	var owners []string
	add := func(owner string) {
		if owner != "" && !seen[owner] {
			seen[owner] = true
			owners = append(owners, owner)
		}
	}

	for _, owner := range s.owners {
		add(owner)
	}
	stored, err := s.runs.Owners()
	if err != nil {
		logging.Warn("listing owners", "err", err)
	}
	for _, owner := range stored {
		add(owner)
	}

	sort.Strings(owners)
	return owners
}
