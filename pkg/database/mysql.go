package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/onurcolak/campaign-dispatcher/environments"
	"github.com/onurcolak/campaign-dispatcher/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

// The driver runs one statement per Exec unless multiStatements is set,
// so the schema is applied table by table.
var migrations = []struct {
	name string
	ddl  string
}{
	{"schedules", `
	CREATE TABLE IF NOT EXISTS schedules (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		campaign_id BIGINT NOT NULL,
		tenant_id VARCHAR(64) NOT NULL,
		weekdays VARCHAR(64) NOT NULL,
		start_time TIME NOT NULL,
		end_time TIME NOT NULL,
		daily_quota INT NOT NULL,
		approval_state VARCHAR(20) NOT NULL DEFAULT 'pending',
		effective_start DATE NOT NULL,
		effective_end DATE NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_schedules_active (approval_state, effective_start, effective_end)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"messages", `
	CREATE TABLE IF NOT EXISTS messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		campaign_id BIGINT NOT NULL,
		destination VARCHAR(32) NOT NULL,
		content TEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		provider_message_id VARCHAR(128) NULL,
		sent_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_messages_campaign_status (campaign_id, status, id),
		INDEX idx_messages_status (status)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"message_transitions", `
	CREATE TABLE IF NOT EXISTS message_transitions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		message_id BIGINT NOT NULL,
		from_status VARCHAR(20) NOT NULL,
		to_status VARCHAR(20) NOT NULL,
		origin VARCHAR(20) NOT NULL,
		detail VARCHAR(1000) NOT NULL DEFAULT '',
		actor_id VARCHAR(100) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_transitions_message (message_id, id),
		CONSTRAINT fk_transitions_message FOREIGN KEY (message_id) REFERENCES messages (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"schedule_quota_counters", `
	CREATE TABLE IF NOT EXISTS schedule_quota_counters (
		schedule_id BIGINT NOT NULL,
		day DATE NOT NULL,
		sent_count INT NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (schedule_id, day)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

func RunMigrations(db *sqlx.DB) error {
	for _, m := range migrations {
		if _, err := db.Exec(m.ddl); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.name, err)
		}
	}

	logger.Infof("Database migrations completed (%d tables)", len(migrations))

	return nil
}

// SeedTestData inserts one approved all-week schedule for a demo tenant and a
// batch of pending messages for its campaign.
func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM schedules")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d schedules, skipping seed", count)
		return nil
	}

	const campaignID = 1

	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO schedules
			(campaign_id, tenant_id, weekdays, start_time, end_time, daily_quota, approval_state, effective_start)
		VALUES (?, ?, ?, ?, ?, ?, 'approved', ?)`,
		campaignID, "demo-tenant", "mon,tue,wed,thu,fri,sat,sun", "00:00:00", "23:59:59", 50,
		time.Now().UTC().Format(time.DateOnly),
	)
	if err != nil {
		return fmt.Errorf("failed to seed schedule: %w", err)
	}

	testMessages := []struct {
		destination string
		content     string
	}{
		{"+5491155550101", "Hi! Our spring collection is live."},
		{"+5491155550102", "Your loyalty points expire at the end of the month."},
		{"+5491155550103", "Reminder: your appointment is tomorrow at 10 AM."},
		{"+5491155550104", "Thanks for your purchase! Reply STOP to opt out."},
		{"+5491155550105", "Free shipping on all orders this weekend."},
		{"+5491155550106", "We have an update about your order."},
		{"+5491155550107", "New store hours starting next week."},
		{"+5491155550108", "Don't forget to complete your profile."},
	}

	for _, msg := range testMessages {
		_, err := tx.Exec(
			"INSERT INTO messages (campaign_id, destination, content, status) VALUES (?, ?, ?, 'pending')",
			campaignID, msg.destination, msg.content,
		)
		if err != nil {
			return fmt.Errorf("failed to seed test data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	logger.Infof("Seeded 1 schedule and %d pending messages", len(testMessages))
	return nil
}
