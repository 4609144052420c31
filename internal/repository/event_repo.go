package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eventcraft/notifications/internal/domain"
	"gorm.io/gorm"
)

// EventRepository reads event schedules and attendee rosters for reminder
// fan-out, and owns the hour-reminder dedup flag.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	ListPublishedStartingBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Event, error)
	ListDueHourReminder(ctx context.Context, now time.Time) ([]domain.Event, error)
	MarkHourReminderSent(ctx context.Context, id string) error
	ListAttendeeIDs(ctx context.Context, eventID string) ([]string, error)
}

type GormEventRepo struct {
	db *gorm.DB
}

func NewGormEventRepo(db *gorm.DB) *GormEventRepo {
	return &GormEventRepo{db: db}
}

func (r *GormEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var model EventModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return eventModelToDomain(&model), nil
}

func (r *GormEventRepo) ListPublishedStartingBetween(ctx context.Context, from time.Time, to time.Time) ([]domain.Event, error) {
	var models []EventModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND starts_at >= ? AND starts_at < ?", domain.EventStatusPublished, from, to).
		Order("starts_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return eventModelsToDomain(models), nil
}

func (r *GormEventRepo) ListDueHourReminder(ctx context.Context, now time.Time) ([]domain.Event, error) {
	var models []EventModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND hour_reminder_sent = false AND starts_at > ? AND starts_at <= ?",
			domain.EventStatusPublished, now, now.Add(time.Hour)).
		Order("starts_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return eventModelsToDomain(models), nil
}

func (r *GormEventRepo) MarkHourReminderSent(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&EventModel{}).
		Where("id = ?", id).
		Update("hour_reminder_sent", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListAttendeeIDs resolves attendees through active tickets.
func (r *GormEventRepo) ListAttendeeIDs(ctx context.Context, eventID string) ([]string, error) {
	var userIDs []string
	err := r.db.WithContext(ctx).
		Model(&TicketModel{}).
		Where("event_id = ? AND status = ?", eventID, domain.TicketStatusActive).
		Distinct().
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}
	return userIDs, nil
}

func eventModelsToDomain(models []EventModel) []domain.Event {
	events := make([]domain.Event, 0, len(models))
	for i := range models {
		events = append(events, *eventModelToDomain(&models[i]))
	}
	return events
}
