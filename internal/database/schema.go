package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the repositories use.  Statements are
// idempotent and run in order on each start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  email VARCHAR(255) NOT NULL,
  password_hash VARCHAR(255) NOT NULL,
  role VARCHAR(32) NOT NULL,
  display_name VARCHAR(255) NOT NULL,
  created_at DATETIME NULL,
  UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS guests (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(255) NULL,
  phone VARCHAR(32) NOT NULL,
  email VARCHAR(255) NULL,
  segment VARCHAR(64) NOT NULL,
  visits_count INT NOT NULL DEFAULT 0,
  confirmed_bookings_count INT NOT NULL DEFAULT 0,
  last_visit_at DATETIME NULL,
  exclude_from_broadcasts BOOLEAN NOT NULL DEFAULT FALSE,
  created_at DATETIME NOT NULL,
  UNIQUE KEY uq_guests_phone (phone),
  KEY idx_guests_segment (segment)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  guest_id BIGINT UNSIGNED NOT NULL,
  booking_time DATETIME NOT NULL,
  guests_count INT NOT NULL,
  status VARCHAR(16) NOT NULL DEFAULT 'pending',
  created_by BIGINT UNSIGNED NULL,
  created_at DATETIME NOT NULL,
  KEY idx_bookings_time (booking_time),
  KEY idx_bookings_status (status),
  CONSTRAINT fk_bookings_guest FOREIGN KEY (guest_id) REFERENCES guests (id),
  CONSTRAINT fk_bookings_user FOREIGN KEY (created_by) REFERENCES users (id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS campaigns (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  message_text TEXT NOT NULL,
  image_url VARCHAR(1024) NULL,
  target_segment VARCHAR(64) NULL,
  scheduled_at DATETIME NULL,
  dispatched_at DATETIME NULL,
  created_by BIGINT UNSIGNED NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  KEY idx_campaigns_dispatched (dispatched_at),
  CONSTRAINT fk_campaigns_user FOREIGN KEY (created_by) REFERENCES users (id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS campaign_sends (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  campaign_id BIGINT UNSIGNED NOT NULL,
  guest_id BIGINT UNSIGNED NOT NULL,
  status VARCHAR(16) NOT NULL DEFAULT 'pending',
  sent_at DATETIME NULL,
  error_message TEXT NULL,
  created_at DATETIME NOT NULL,
  KEY idx_sends_campaign (campaign_id),
  CONSTRAINT fk_sends_campaign FOREIGN KEY (campaign_id) REFERENCES campaigns (id) ON DELETE CASCADE,
  CONSTRAINT fk_sends_guest FOREIGN KEY (guest_id) REFERENCES guests (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS settings (
  id TINYINT UNSIGNED PRIMARY KEY,
  push_notifications BOOLEAN NOT NULL DEFAULT TRUE,
  webhook_url VARCHAR(1024) NOT NULL DEFAULT '',
  auto_backup BOOLEAN NOT NULL DEFAULT TRUE,
  segment_regular_threshold INT NOT NULL DEFAULT 5,
  segment_vip_threshold INT NOT NULL DEFAULT 10,
  broadcast_webhook_url VARCHAR(1024) NOT NULL DEFAULT '',
  booking_webhook_url VARCHAR(1024) NOT NULL DEFAULT '',
  restaurant_place VARCHAR(255) NOT NULL DEFAULT 'CHINOR',
  default_table_message VARCHAR(255) NOT NULL DEFAULT ''
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS activity_log (
  id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  user_id BIGINT UNSIGNED NOT NULL,
  action_type VARCHAR(64) NOT NULL,
  entity_type VARCHAR(32) NOT NULL,
  entity_id BIGINT UNSIGNED NOT NULL,
  details TEXT NULL,
  summary VARCHAR(512) NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL,
  KEY idx_activity_created (created_at),
  KEY idx_activity_user (user_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
