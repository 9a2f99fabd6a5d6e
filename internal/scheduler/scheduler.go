package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
	"github.com/CalebPenning/game-calendar-bot/internal/rotation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	DefaultMonthlySpec            = "0 9 1 * *"
	DefaultWeeklySpec             = "0 10 * * 0"
	DefaultAutoNominationSpec     = "0 12 * * *"
	DefaultNextMonthSpec          = "0 10 25 * *"
	DefaultAutoNominationDaysLeft = 7
	reminderDaysLeft              = 7
)

// Guilds is the set of servers the bot announces to
type Guilds interface {
	GuildIDs() []string
	// Announce posts in the game channel of the guild
	Announce(ctx context.Context, guildID string, message string) error
	// Members lists the guild members that could be auto-nominated
	Members(ctx context.Context, guildID string) ([]rotation.Candidate, error)
}

type Config struct {
	Monthly                string
	Weekly                 string
	AutoNomination         string
	NextMonth              string
	AutoNominationDaysLeft int
	Location               *time.Location
	Registerer             prometheus.Registerer
}

// Scheduler fires the calendar jobs. Jobs only read through the rotation service
// or call its guarded operations, so running one twice on the same day is harmless
type Scheduler struct {
	service  *rotation.Service
	guilds   Guilds
	daysLeft int
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	metrics  *schedulerMetrics
}

func New(service *rotation.Service, guilds Guilds, config Config) (*Scheduler, error) {
	if config.Monthly == "" {
		config.Monthly = DefaultMonthlySpec
	}
	if config.Weekly == "" {
		config.Weekly = DefaultWeeklySpec
	}
	if config.AutoNomination == "" {
		config.AutoNomination = DefaultAutoNominationSpec
	}
	if config.NextMonth == "" {
		config.NextMonth = DefaultNextMonthSpec
	}
	if config.AutoNominationDaysLeft <= 0 {
		config.AutoNominationDaysLeft = DefaultAutoNominationDaysLeft
	}
	if config.Location == nil {
		config.Location = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	scheduler := &Scheduler{
		service:  service,
		guilds:   guilds,
		daysLeft: config.AutoNominationDaysLeft,
		cron:     cron.New(cron.WithLocation(config.Location), cron.WithLogger(logger), cron.WithChain(cron.Recover(logger))),
		ctx:      ctx,
		cancel:   cancel,
		metrics:  newSchedulerMetrics(config.Registerer),
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"monthly_announcement", config.Monthly, scheduler.MonthlyAnnouncement},
		{"weekly_reminder", config.Weekly, scheduler.WeeklyReminder},
		{"next_month_preview", config.NextMonth, scheduler.NextMonthPreview},
		{"auto_nomination", config.AutoNomination, scheduler.AutoNominationSweep},
	}
	for _, job := range jobs {
		if _, err := scheduler.cron.AddFunc(job.spec, func() { scheduler.run(job.name, job.run) }); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", job.spec, job.name, err)
		}
	}
	return scheduler, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg(fmt.Sprintf("Scheduled %d jobs", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for the running ones until ctx is done
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
	s.cancel()
	log.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Scheduler) run(name string, job func(context.Context) error) {
	log.Info().Msg(fmt.Sprintf("Running scheduled job %s", name))
	if err := job(s.ctx); err != nil {
		s.metrics.runs.WithLabelValues(name, "error").Inc()
		log.Error().Err(err).Msg(fmt.Sprintf("Scheduled job %s failed", name))
		return
	}
	s.metrics.runs.WithLabelValues(name, "ok").Inc()
}

// MonthlyAnnouncement presents the game of the new month, or asks admins for a nomination
func (s *Scheduler) MonthlyAnnouncement(ctx context.Context) error {
	game, _, err := s.service.CurrentGame(ctx)
	if err != nil {
		return err
	}
	s.announce(ctx, "monthly_announcement", newMonthMessage(game))
	return nil
}

// WeeklyReminder only speaks during the last week of the month
func (s *Scheduler) WeeklyReminder(ctx context.Context) error {
	now := s.service.Clock().Now()
	daysLeft := calendar.DaysLeftInMonth(now)
	if daysLeft > reminderDaysLeft {
		log.Debug().Msg(fmt.Sprintf("%d days left in the month, no reminder", daysLeft))
		return nil
	}
	status, err := s.service.Status(ctx, calendar.CurrentMonth(now))
	if err != nil {
		return err
	}
	message := weeklyMessage(status, daysLeft)
	if message == "" {
		log.Info().Msg("Nobody to remind this week")
		return nil
	}
	s.announce(ctx, "weekly_reminder", message)
	return nil
}

// NextMonthPreview reports whether next month is ready
func (s *Scheduler) NextMonthPreview(ctx context.Context) error {
	status, err := s.service.Status(ctx, calendar.NextMonth(s.service.Clock().Now()))
	if err != nil {
		return err
	}
	s.announce(ctx, "next_month_preview", nextMonthMessage(status))
	return nil
}

// AutoNominationSweep draws a nominee for next month when exactly the configured
// number of days is left. The first guild with candidates provides the nominee,
// and every guild hears about it
func (s *Scheduler) AutoNominationSweep(ctx context.Context) error {
	now := s.service.Clock().Now()
	daysLeft := calendar.DaysLeftInMonth(now)
	if daysLeft != s.daysLeft {
		log.Debug().Msg(fmt.Sprintf("%d days left in the month, no auto-nomination", daysLeft))
		return nil
	}
	month := calendar.NextMonth(now)

	var failures []error
	for _, guildID := range s.guilds.GuildIDs() {
		candidates, err := s.guilds.Members(ctx, guildID)
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Could not list the members of guild %s", guildID))
			failures = append(failures, err)
			continue
		}
		nomination, err := s.service.AutoNominate(ctx, month, candidates)
		if errors.Is(err, rotation.ErrNoCandidates) {
			log.Info().Msg(fmt.Sprintf("No eligible members in guild %s", guildID))
			continue
		}
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Auto-nomination failed for guild %s", guildID))
			failures = append(failures, err)
			continue
		}
		if nomination != nil {
			s.announce(ctx, "auto_nomination", autoNominationMessage(*nomination, daysLeft))
		}
		// nil means someone was already nominated, or the game is picked
		return errors.Join(failures...)
	}
	return errors.Join(failures...)
}

// announce posts to every guild; a guild that fails does not stop the others
func (s *Scheduler) announce(ctx context.Context, job string, message string) {
	for _, guildID := range s.guilds.GuildIDs() {
		if err := s.guilds.Announce(ctx, guildID, message); err != nil {
			s.metrics.announcementFailures.WithLabelValues(job).Inc()
			log.Warn().Err(err).Msg(fmt.Sprintf("Could not announce %s in guild %s", job, guildID))
		}
	}
}

// cronLogger sends the cron library logs to zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
