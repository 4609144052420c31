package migrations

import (
	"github.com/eventcraft/notifications/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createEventsAndTickets() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_events_and_tickets",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.EventModel{}, &repository.TicketModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_events_reminder_scan ON events (starts_at) WHERE status = 'published'`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_tickets_event_user ON tickets (event_id, user_id)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			if err := tx.Migrator().DropTable(&repository.TicketModel{}); err != nil {
				return err
			}
			return tx.Migrator().DropTable(&repository.EventModel{})
		},
	}
}
