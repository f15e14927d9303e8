// Package app assembles services and handlers from a store bundle.
package app

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/config"
	"github.com/iliyamo/chinor-crm/internal/handler"
	"github.com/iliyamo/chinor-crm/internal/router"
	"github.com/iliyamo/chinor-crm/internal/service"
)

// Webhooks delivers broadcast messages and booking notifications.
type Webhooks interface {
	service.BroadcastSender
	service.BookingNotifier
}

// Services holds every use-case service.
type Services struct {
	Journal    *service.Journal
	Guests     *service.GuestService
	Bookings   *service.BookingService
	Broadcasts *service.BroadcastService
	Settings   *service.SettingsService
	Dashboard  *service.DashboardService
	Users      *service.UserService
	Auth       *service.AuthService
}

// NewServices wires the services over stores.  The broadcast service has
// no publisher yet; see SetPublisher.
func NewServices(stores service.Stores, cfg config.Config, hooks Webhooks, log *zap.Logger) *Services {
	loc := cfg.Location()
	journal := service.NewJournal(stores.Activity, log)
	return &Services{
		Journal:    journal,
		Guests:     service.NewGuestService(stores.Guests, stores.Settings, journal, log),
		Bookings:   service.NewBookingService(stores.Bookings, stores.Guests, stores.Settings, hooks, journal, log, loc),
		Broadcasts: service.NewBroadcastService(stores.Campaigns, stores.Guests, stores.Settings, nil, hooks, journal, log),
		Settings:   service.NewSettingsService(stores.Settings, journal, log),
		Dashboard:  service.NewDashboardService(stores.Bookings, stores.Guests, journal, log, loc),
		Users:      service.NewUserService(stores.Users, cfg.BcryptCost, log),
		Auth:       service.NewAuthService(stores.Users, cfg.JWTSecret, cfg.AccessTTL, log),
	}
}

// Dispatch sends one campaign.  It matches queue.Handler.
func (s *Services) Dispatch(ctx context.Context, campaignID uint64) error {
	_, err := s.Broadcasts.Dispatch(ctx, campaignID)
	return err
}

// Handlers builds the HTTP handlers.  ping may be nil.
func (s *Services) Handlers(ping func(context.Context) error) router.Handlers {
	return router.Handlers{
		Auth:       handler.NewAuthHandler(s.Auth),
		Guests:     handler.NewGuestHandler(s.Guests),
		Bookings:   handler.NewBookingHandler(s.Bookings),
		Broadcasts: handler.NewBroadcastHandler(s.Broadcasts),
		Settings:   handler.NewSettingsHandler(s.Settings, s.Guests),
		Dashboard:  handler.NewDashboardHandler(s.Dashboard),
		Users:      handler.NewUserHandler(s.Users),
		Public:     handler.NewPublicHandler(s.Guests, s.Bookings),
		Health:     handler.Health(ping),
	}
}

// RouterOptions returns the router options derived from cfg.
func RouterOptions(cfg config.Config, rdb *redis.Client, log *zap.Logger) router.Options {
	return router.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		Cache:       cfg.Cache,
		Redis:       rdb,
		Log:         log,
	}
}
