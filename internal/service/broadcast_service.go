package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/metrics"
	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/notify"
	"github.com/iliyamo/chinor-crm/internal/segment"
)

// BroadcastInput creates a campaign.  GuestIDs is accepted for
// compatibility with older clients and ignored: recipients always come
// from the segment at send time.
type BroadcastInput struct {
	Segment     string   `json:"segment" validate:"required"`
	MessageText string   `json:"messageText"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,max=1024"`
	GuestIDs    []uint64 `json:"guestIds"`
}

// BroadcastService creates campaigns and dispatches them.
type BroadcastService struct {
	campaigns CampaignStore
	guests    GuestStore
	settings  SettingsStore
	publisher Publisher
	sender    BroadcastSender
	journal   *Journal
	log       *zap.Logger
	now       func() time.Time
}

// NewBroadcastService wires a BroadcastService.  publisher may be nil, in
// which case campaigns wait for RequeuePending.
func NewBroadcastService(campaigns CampaignStore, guests GuestStore, settings SettingsStore, publisher Publisher,
	sender BroadcastSender, journal *Journal, log *zap.Logger) *BroadcastService {
	return &BroadcastService{
		campaigns: campaigns,
		guests:    guests,
		settings:  settings,
		publisher: publisher,
		sender:    sender,
		journal:   journal,
		log:       log,
		now:       time.Now,
	}
}

// SetPublisher replaces the dispatch publisher.  The in-process publisher
// needs the service to exist before it can be built.
func (s *BroadcastService) SetPublisher(p Publisher) { s.publisher = p }

// Create stores a campaign for the selected segment and queues it for
// dispatch.  Only the selector is stored; recipients are resolved when the
// campaign is sent.
func (s *BroadcastService) Create(ctx context.Context, in BroadcastInput) (model.Campaign, error) {
	msg := strings.TrimSpace(in.MessageText)
	if msg == "" {
		return model.Campaign{}, invalid("message text is required")
	}
	sel, err := segment.ParseSelector(in.Segment)
	if err != nil {
		return model.Campaign{}, invalid("%v", err)
	}
	target := string(sel)
	c := model.Campaign{
		Name:          "Рассылка: " + target,
		MessageText:   msg,
		ImageURL:      optional(in.ImageURL),
		TargetSegment: &target,
	}
	if actor, ok := ActorFrom(ctx); ok {
		uid := actor.UserID
		c.CreatedBy = &uid
	}
	if err := s.campaigns.Create(ctx, &c); err != nil {
		return model.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}
	s.log.Info("campaign created", zap.Uint64("campaign_id", c.ID), zap.String("segment", target))
	s.journal.Record(ctx, model.ActionCampaignCreated, model.EntityCampaign, c.ID,
		fmt.Sprintf("Рассылка #%d для сегмента %s", c.ID, target), nil)

	if s.publisher != nil {
		if err := s.publisher.PublishCampaignQueued(ctx, c.ID); err != nil {
			s.log.Warn("campaign not queued; it will be dispatched on restart",
				zap.Uint64("campaign_id", c.ID), zap.Error(err))
		}
	}
	return c, nil
}

// Stats reports how many guests can currently be reached and the overall
// delivery counters.  Delivered and Errors are nil until a send exists.
func (s *BroadcastService) Stats(ctx context.Context) (model.BroadcastStats, error) {
	guests, err := s.guests.ListAll(ctx, "")
	if err != nil {
		return model.BroadcastStats{}, fmt.Errorf("load guests: %w", err)
	}
	st := model.BroadcastStats{Available: len(segment.Resolve(segment.Selector(segment.SelectorAll), guests))}
	sent, failed, err := s.campaigns.DeliveryTotals(ctx)
	if err != nil {
		return model.BroadcastStats{}, fmt.Errorf("delivery totals: %w", err)
	}
	if sent+failed > 0 {
		st.Delivered, st.Errors = &sent, &failed
	}
	return st, nil
}

// History lists campaigns newest first with their counters.
func (s *BroadcastService) History(ctx context.Context) ([]model.BroadcastHistoryItem, error) {
	items, err := s.campaigns.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("campaign history: %w", err)
	}
	return items, nil
}

// Dispatch sends a campaign to the guests its segment selects right now,
// skipping opted-out guests.  A campaign is dispatched at most once: the
// first caller claims it and later calls report Skipped.  Recipients and
// settings are loaded before the claim, and a claim that fails before the
// first delivery is released so RequeuePending retries the campaign.
func (s *BroadcastService) Dispatch(ctx context.Context, campaignID uint64) (model.DispatchReport, error) {
	report := model.DispatchReport{CampaignID: campaignID}
	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return report, notFound(err, "campaign", campaignID)
	}
	sel := segment.Selector(segment.SelectorAll)
	if c.TargetSegment != nil {
		if sel, err = segment.ParseSelector(*c.TargetSegment); err != nil {
			return report, invalid("campaign %d: %v", campaignID, err)
		}
	}

	st, err := s.settings.Get(ctx)
	if err != nil {
		return report, fmt.Errorf("load settings: %w", err)
	}
	guests, err := s.guests.ListAll(ctx, "")
	if err != nil {
		return report, fmt.Errorf("load guests: %w", err)
	}
	recipients := segment.Resolve(sel, guests)

	claimed, err := s.campaigns.ClaimDispatch(ctx, campaignID, s.now().UTC().Truncate(time.Second))
	if err != nil {
		return report, fmt.Errorf("claim campaign: %w", err)
	}
	if !claimed {
		report.Skipped = true
		s.log.Info("campaign already dispatched", zap.Uint64("campaign_id", campaignID))
		return report, nil
	}
	report.Recipients = len(recipients)

	for _, g := range recipients {
		send := model.CampaignSend{CampaignID: c.ID, GuestID: g.ID}
		if err := s.campaigns.CreateSend(ctx, &send); err != nil {
			if report.Sent+report.Failed == 0 {
				s.release(ctx, c.ID)
			}
			return report, fmt.Errorf("record send: %w", err)
		}
		status, errMsg := s.deliver(ctx, st.BroadcastWebhookURL, c, g)
		var sentAt *time.Time
		if status == model.SendSent {
			t := s.now().UTC().Truncate(time.Second)
			sentAt = &t
			report.Sent++
		} else {
			report.Failed++
		}
		metrics.BroadcastDeliveries.WithLabelValues(status).Inc()
		if err := s.campaigns.FinishSend(ctx, send.ID, status, sentAt, errMsg); err != nil {
			return report, fmt.Errorf("finish send: %w", err)
		}
	}

	s.log.Info("campaign dispatched",
		zap.Uint64("campaign_id", c.ID),
		zap.String("segment", string(sel)),
		zap.Int("recipients", report.Recipients),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return report, nil
}

// release hands a claimed campaign back to RequeuePending.  Once a guest
// has been contacted the claim is kept, so nobody is messaged twice.
func (s *BroadcastService) release(ctx context.Context, id uint64) {
	if err := s.campaigns.ReleaseDispatch(context.WithoutCancel(ctx), id); err != nil {
		s.log.Error("release campaign claim", zap.Uint64("campaign_id", id), zap.Error(err))
		return
	}
	s.log.Warn("campaign claim released", zap.Uint64("campaign_id", id))
}

func (s *BroadcastService) deliver(ctx context.Context, url string, c model.Campaign, g model.Guest) (string, *string) {
	fail := func(msg string) (string, *string) { return model.SendFailed, &msg }
	if url == "" {
		return fail("broadcast webhook is not configured")
	}
	if s.sender == nil {
		return fail("no broadcast sender")
	}
	err := s.sender.SendBroadcast(ctx, url, notify.BroadcastMessage{
		CampaignID: c.ID,
		GuestID:    g.ID,
		Phone:      g.Phone,
		Name:       g.Name,
		Message:    c.MessageText,
		ImageURL:   c.ImageURL,
	})
	if err != nil {
		return fail(err.Error())
	}
	return model.SendSent, nil
}

// RequeuePending hands campaigns that were created but never claimed back
// to the publisher, e.g. after the broker was down.  Without a publisher,
// or when publishing fails, the campaign is dispatched directly.  Errors
// are logged per campaign.
func (s *BroadcastService) RequeuePending(ctx context.Context) int {
	ids, err := s.campaigns.ListUndispatched(ctx)
	if err != nil {
		s.log.Error("list undispatched campaigns", zap.Error(err))
		return 0
	}
	n := 0
	for _, id := range ids {
		if s.publisher != nil {
			err := s.publisher.PublishCampaignQueued(ctx, id)
			if err == nil {
				n++
				continue
			}
			s.log.Warn("republish campaign, dispatching directly", zap.Uint64("campaign_id", id), zap.Error(err))
		}
		if _, err := s.Dispatch(ctx, id); err != nil {
			s.log.Error("dispatch pending campaign", zap.Uint64("campaign_id", id), zap.Error(err))
			continue
		}
		n++
	}
	return n
}
