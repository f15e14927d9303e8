package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/model"
)

type actorKey struct{}

// Actor is the authenticated staff member performing a request.
type Actor struct {
	UserID uint64
	Role   string
}

// WithActor returns a context carrying the acting staff member.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the acting staff member, if any.  Public QR requests
// have none.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok && a.UserID != 0
}

// Journal writes staff actions to the activity log.  Journal failures are
// logged and never fail the action that was journaled.
type Journal struct {
	store ActivityStore
	log   *zap.Logger
}

// NewJournal returns a Journal writing to store.
func NewJournal(store ActivityStore, log *zap.Logger) *Journal {
	return &Journal{store: store, log: log}
}

// Record journals an action when ctx carries an actor.
func (j *Journal) Record(ctx context.Context, action, entity string, entityID uint64, summary string, details *string) {
	if j == nil || j.store == nil {
		return
	}
	actor, ok := ActorFrom(ctx)
	if !ok {
		return
	}
	a := &model.Activity{
		UserID:     actor.UserID,
		ActionType: action,
		EntityType: entity,
		EntityID:   entityID,
		Details:    details,
		Summary:    summary,
	}
	if err := j.store.Record(ctx, a); err != nil {
		j.log.Warn("activity journal write failed",
			zap.String("action", action),
			zap.Uint64("entity_id", entityID),
			zap.Error(err))
	}
}

// Recent returns the latest journal entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]model.Activity, error) {
	return j.store.Recent(ctx, limit)
}

// UserStats aggregates journal entries per staff user.
func (j *Journal) UserStats(ctx context.Context) ([]model.UserActivityStats, error) {
	return j.store.UserStats(ctx)
}
