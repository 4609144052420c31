package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"github.com/eventcraft/notifications/internal/observability"
	"github.com/eventcraft/notifications/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultDailyReminderHour  = 9 // UTC
	defaultHourlyScanInterval = time.Hour

	dailyLockName  = "reminders:daily"
	hourlyLockName = "reminders:hourly"
)

type reminderDispatcher interface {
	NotifyEventReminder(ctx context.Context, userID string, event *domain.Event) (*domain.Notification, error)
	NotifyImminentStart(ctx context.Context, user *domain.User, event *domain.Event) (*domain.Notification, error)
}

// runLocker keeps reminder runs mutually exclusive across service instances.
type runLocker interface {
	TryAcquire(ctx context.Context, name string, token string) (release func(context.Context) error, ok bool, err error)
}

// ReminderScheduler drives the two time-based reminder triggers: a daily
// "your event is tomorrow" pass and an hourly "starts within the hour" pass.
// Each trigger is guarded by a local in-progress flag and a shared lock so
// overlapping runs are skipped rather than raced.
type ReminderScheduler struct {
	events        repository.EventRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	dispatch      reminderDispatcher
	lock          runLocker
	logger        *zap.Logger
	metrics       *observability.Metrics

	dailyHour      int
	hourlyInterval time.Duration
	now            func() time.Time

	dailyRunning  atomic.Bool
	hourlyRunning atomic.Bool
}

func NewReminderScheduler(
	events repository.EventRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	dispatch reminderDispatcher,
	lock runLocker,
	dailyHour int,
	logger *zap.Logger,
) (*ReminderScheduler, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	if dailyHour < 0 || dailyHour > 23 {
		dailyHour = defaultDailyReminderHour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderScheduler{
		events:         events,
		users:          users,
		notifications:  notifications,
		dispatch:       dispatch,
		lock:           lock,
		logger:         logger,
		dailyHour:      dailyHour,
		hourlyInterval: defaultHourlyScanInterval,
		now:            time.Now,
	}, nil
}

func (s *ReminderScheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start runs both triggers until context cancellation.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.runDailyLoop(groupCtx) })
	g.Go(func() error { return s.runHourlyLoop(groupCtx) })
	return g.Wait()
}

func (s *ReminderScheduler) runDailyLoop(ctx context.Context) error {
	for {
		wait := time.Until(s.nextDailyRun())
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			s.RunDaily(ctx)
		}
	}
}

func (s *ReminderScheduler) runHourlyLoop(ctx context.Context) error {
	// Scan once at startup so an event inside the first hour is not missed.
	s.RunHourly(ctx)

	ticker := time.NewTicker(s.hourlyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunHourly(ctx)
		}
	}
}

func (s *ReminderScheduler) nextDailyRun() time.Time {
	now := s.now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.dailyHour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// RunDaily originates an event_reminder for every attendee of every
// published event happening tomorrow, then sweeps expired records.
func (s *ReminderScheduler) RunDaily(ctx context.Context) {
	if !s.dailyRunning.CompareAndSwap(false, true) {
		s.metrics.IncSchedulerRun("daily_reminder", "skipped")
		return
	}
	defer s.dailyRunning.Store(false)

	release, ok := s.acquireLock(ctx, dailyLockName)
	if !ok {
		s.metrics.IncSchedulerRun("daily_reminder", "skipped")
		return
	}
	if release != nil {
		defer func() {
			if err := release(ctx); err != nil {
				s.logger.Warn("failed to release daily reminder lock", zap.Error(err))
			}
		}()
	}

	now := s.now().UTC()
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	windowEnd := windowStart.Add(24 * time.Hour)

	events, err := s.events.ListPublishedStartingBetween(ctx, windowStart, windowEnd)
	if err != nil {
		s.logger.Error("daily reminder: failed to list events", zap.Error(err))
		s.metrics.IncSchedulerRun("daily_reminder", "error")
		return
	}

	for i := range events {
		event := events[i]
		attendeeIDs, err := s.events.ListAttendeeIDs(ctx, event.ID)
		if err != nil {
			s.logger.Error("daily reminder: failed to list attendees",
				zap.String("eventId", event.ID),
				zap.Error(err),
			)
			continue
		}

		for _, attendeeID := range attendeeIDs {
			if _, err := s.dispatch.NotifyEventReminder(ctx, attendeeID, &event); err != nil {
				s.logger.Warn("daily reminder: failed for attendee",
					zap.String("eventId", event.ID),
					zap.String("userId", attendeeID),
					zap.Error(err),
				)
				continue
			}
			s.metrics.IncReminderSent("daily")
		}
	}

	s.sweepExpired(ctx)
	s.metrics.IncSchedulerRun("daily_reminder", "ok")
}

// RunHourly sends a single imminent-start message to every attendee of each
// published event starting within the next hour, then flips the event's
// hour-reminder flag. The flag is the only dedup mechanism and is set only
// after all attendees were attempted, so a crash mid-loop can repeat sends
// on the next tick.
func (s *ReminderScheduler) RunHourly(ctx context.Context) {
	if !s.hourlyRunning.CompareAndSwap(false, true) {
		s.metrics.IncSchedulerRun("hourly_reminder", "skipped")
		return
	}
	defer s.hourlyRunning.Store(false)

	release, ok := s.acquireLock(ctx, hourlyLockName)
	if !ok {
		s.metrics.IncSchedulerRun("hourly_reminder", "skipped")
		return
	}
	if release != nil {
		defer func() {
			if err := release(ctx); err != nil {
				s.logger.Warn("failed to release hourly reminder lock", zap.Error(err))
			}
		}()
	}

	events, err := s.events.ListDueHourReminder(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("hourly reminder: failed to list events", zap.Error(err))
		s.metrics.IncSchedulerRun("hourly_reminder", "error")
		return
	}

	for i := range events {
		event := events[i]
		attendeeIDs, err := s.events.ListAttendeeIDs(ctx, event.ID)
		if err != nil {
			s.logger.Error("hourly reminder: failed to list attendees",
				zap.String("eventId", event.ID),
				zap.Error(err),
			)
			continue
		}

		for _, attendeeID := range attendeeIDs {
			user, err := s.users.GetByID(ctx, attendeeID)
			if err != nil {
				s.logger.Warn("hourly reminder: failed to load attendee",
					zap.String("eventId", event.ID),
					zap.String("userId", attendeeID),
					zap.Error(err),
				)
				continue
			}

			if _, err := s.dispatch.NotifyImminentStart(ctx, user, &event); err != nil {
				s.logger.Warn("hourly reminder: failed for attendee",
					zap.String("eventId", event.ID),
					zap.String("userId", attendeeID),
					zap.Error(err),
				)
				continue
			}
			s.metrics.IncReminderSent("hourly")
		}

		if err := s.events.MarkHourReminderSent(ctx, event.ID); err != nil {
			s.logger.Error("hourly reminder: failed to mark event notified",
				zap.String("eventId", event.ID),
				zap.Error(err),
			)
		}
	}

	s.metrics.IncSchedulerRun("hourly_reminder", "ok")
}

// acquireLock returns (release, true) when the run may proceed. A missing
// lock backend degrades to the local flag only.
func (s *ReminderScheduler) acquireLock(ctx context.Context, name string) (func(context.Context) error, bool) {
	if s.lock == nil {
		return nil, true
	}

	release, ok, err := s.lock.TryAcquire(ctx, name, uuid.NewString())
	if err != nil {
		s.logger.Warn("reminder lock unavailable, proceeding with local guard only",
			zap.String("lock", name),
			zap.Error(err),
		)
		return nil, true
	}
	if !ok {
		s.logger.Info("reminder run held elsewhere, skipping",
			zap.String("lock", name),
		)
		return nil, false
	}
	return release, true
}

func (s *ReminderScheduler) sweepExpired(ctx context.Context) {
	if s.notifications == nil {
		return
	}

	deleted, err := s.notifications.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		s.logger.Error("failed to sweep expired notifications", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("swept expired notifications", zap.Int64("deleted", deleted))
	}
}
