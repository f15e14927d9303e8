package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// SettingsRepo stores the single settings row (id = 1).  The row is
// created with defaults the first time it is read.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo returns a new SettingsRepo bound to the given database.
func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

const settingsSelect = `SELECT push_notifications, webhook_url, auto_backup, segment_regular_threshold,
       segment_vip_threshold, broadcast_webhook_url, booking_webhook_url, restaurant_place, default_table_message
FROM settings WHERE id = 1`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanSettings(s rowScanner) (model.Settings, error) {
	var st model.Settings
	err := s.Scan(&st.PushNotifications, &st.WebhookURL, &st.AutoBackup, &st.SegmentRegularThreshold,
		&st.SegmentVIPThreshold, &st.BroadcastWebhookURL, &st.BookingWebhookURL, &st.RestaurantPlace,
		&st.DefaultTableMessage)
	return st, err
}

// ensureSettings inserts the default row if it is missing.
func ensureSettings(ctx context.Context, ex execer) error {
	d := model.DefaultSettings()
	const q = `INSERT IGNORE INTO settings (id, push_notifications, webhook_url, auto_backup, segment_regular_threshold,
                   segment_vip_threshold, broadcast_webhook_url, booking_webhook_url, restaurant_place, default_table_message)
               VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := ex.ExecContext(ctx, q, d.PushNotifications, d.WebhookURL, d.AutoBackup, d.SegmentRegularThreshold,
		d.SegmentVIPThreshold, d.BroadcastWebhookURL, d.BookingWebhookURL, d.RestaurantPlace, d.DefaultTableMessage)
	return err
}

// Get returns the current settings, seeding defaults on first use.
func (r *SettingsRepo) Get(ctx context.Context) (model.Settings, error) {
	st, err := scanSettings(r.db.QueryRowContext(ctx, settingsSelect))
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Settings{}, err
	}
	if err := ensureSettings(ctx, r.db); err != nil {
		return model.Settings{}, err
	}
	return scanSettings(r.db.QueryRowContext(ctx, settingsSelect))
}

// Update locks the settings row, applies fn and saves the result.  If fn
// returns an error nothing is written.
func (r *SettingsRepo) Update(ctx context.Context, fn func(*model.Settings) error) (model.Settings, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Settings{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := ensureSettings(ctx, tx); err != nil {
		return model.Settings{}, err
	}
	st, err := scanSettings(tx.QueryRowContext(ctx, settingsSelect+` FOR UPDATE`))
	if err != nil {
		return model.Settings{}, err
	}
	if err := fn(&st); err != nil {
		return model.Settings{}, err
	}
	const q = `UPDATE settings
               SET push_notifications = ?, webhook_url = ?, auto_backup = ?, segment_regular_threshold = ?,
                   segment_vip_threshold = ?, broadcast_webhook_url = ?, booking_webhook_url = ?,
                   restaurant_place = ?, default_table_message = ?
               WHERE id = 1`
	_, err = tx.ExecContext(ctx, q, st.PushNotifications, st.WebhookURL, st.AutoBackup, st.SegmentRegularThreshold,
		st.SegmentVIPThreshold, st.BroadcastWebhookURL, st.BookingWebhookURL, st.RestaurantPlace, st.DefaultTableMessage)
	if err != nil {
		return model.Settings{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Settings{}, err
	}
	committed = true
	return st, nil
}
