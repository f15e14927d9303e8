package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/chinor-crm/internal/model"
)

// CampaignRepo provides access to campaigns and their per-guest sends.
// Campaign rows are immutable after creation except for dispatched_at,
// which is set exactly once when a worker claims the campaign.
type CampaignRepo struct {
	db *sql.DB
}

// NewCampaignRepo returns a new CampaignRepo bound to the given database.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `c.id, c.name, c.message_text, c.image_url, c.target_segment, c.scheduled_at,
       c.dispatched_at, c.created_by, c.created_at, c.updated_at`

func scanCampaign(s rowScanner, extra ...any) (model.Campaign, error) {
	var c model.Campaign
	var image, target sql.NullString
	var scheduled, dispatched sql.NullTime
	var createdBy sql.NullInt64
	dest := []any{&c.ID, &c.Name, &c.MessageText, &image, &target, &scheduled,
		&dispatched, &createdBy, &c.CreatedAt, &c.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return model.Campaign{}, err
	}
	if image.Valid {
		c.ImageURL = &image.String
	}
	if target.Valid {
		c.TargetSegment = &target.String
	}
	if scheduled.Valid {
		t := scheduled.Time.UTC()
		c.ScheduledAt = &t
	}
	if dispatched.Valid {
		t := dispatched.Time.UTC()
		c.DispatchedAt = &t
	}
	if createdBy.Valid {
		uid := uint64(createdBy.Int64)
		c.CreatedBy = &uid
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

// Create inserts a campaign and populates its ID and timestamps.
func (r *CampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	now := time.Now().UTC().Truncate(time.Second)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt
	var createdBy any
	if c.CreatedBy != nil {
		createdBy = *c.CreatedBy
	}
	const q = `INSERT INTO campaigns (name, message_text, image_url, target_segment, scheduled_at, created_by, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.MessageText, nullableString(c.ImageURL), nullableString(c.TargetSegment),
		nullableTime(c.ScheduledAt), createdBy, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// GetByID fetches a campaign.
func (r *CampaignRepo) GetByID(ctx context.Context, id uint64) (model.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Campaign{}, ErrNotFound
	}
	return c, err
}

// History lists campaigns newest first together with their sent and
// failed counters.
func (r *CampaignRepo) History(ctx context.Context) ([]model.BroadcastHistoryItem, error) {
	q := `SELECT ` + campaignColumns + `,
       COALESCE(SUM(s.status = 'sent'), 0), COALESCE(SUM(s.status = 'failed'), 0)
FROM campaigns c
LEFT JOIN campaign_sends s ON s.campaign_id = c.id
GROUP BY c.id
ORDER BY c.created_at DESC, c.id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BroadcastHistoryItem{}
	for rows.Next() {
		var item model.BroadcastHistoryItem
		c, err := scanCampaign(rows, &item.SentCount, &item.FailedCount)
		if err != nil {
			return nil, err
		}
		item.Campaign = c
		out = append(out, item)
	}
	return out, rows.Err()
}

// ClaimDispatch marks the campaign as dispatched unless another worker got
// there first.  It reports whether the caller owns the dispatch.
func (r *CampaignRepo) ClaimDispatch(ctx context.Context, id uint64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE campaigns SET dispatched_at = ? WHERE id = ? AND dispatched_at IS NULL`, at.UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseDispatch clears a claim taken by ClaimDispatch so the campaign is
// listed by ListUndispatched again.
func (r *CampaignRepo) ReleaseDispatch(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE campaigns SET dispatched_at = NULL WHERE id = ?`, id)
	return err
}

// ListUndispatched returns the IDs of campaigns nobody has claimed yet.
func (r *CampaignRepo) ListUndispatched(ctx context.Context) ([]uint64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM campaigns WHERE dispatched_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateSend records a pending delivery to one guest.
func (r *CampaignRepo) CreateSend(ctx context.Context, s *model.CampaignSend) error {
	if s.Status == "" {
		s.Status = model.SendPending
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO campaign_sends (campaign_id, guest_id, status, created_at) VALUES (?, ?, ?, ?)`,
		s.CampaignID, s.GuestID, s.Status, s.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// FinishSend stores the outcome of a delivery attempt.
func (r *CampaignRepo) FinishSend(ctx context.Context, id uint64, status string, sentAt *time.Time, errMsg *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE campaign_sends SET status = ?, sent_at = ?, error_message = ? WHERE id = ?`,
		status, nullableTime(sentAt), nullableString(errMsg), id)
	return err
}

// DeliveryTotals sums sent and failed deliveries over all campaigns.
func (r *CampaignRepo) DeliveryTotals(ctx context.Context) (sent, failed int, err error) {
	const q = `SELECT COALESCE(SUM(status = 'sent'), 0), COALESCE(SUM(status = 'failed'), 0) FROM campaign_sends`
	err = r.db.QueryRowContext(ctx, q).Scan(&sent, &failed)
	return sent, failed, err
}
