package activitylog

import (
	"context"

	"github.com/DataDog/datadog-go/statsd"

	"github.com/lumora-app/lumora/model"
	"github.com/lumora-app/lumora/store"
	Logger "github.com/lumora-app/lumora/utils/log"
)

const (
	visitsPath       = "logs/visits"
	interactionsPath = "logs/interactions"

	ddVisitCounter       = "lumora.profile.visit"
	ddInteractionCounter = "lumora.content.interaction"
)

// ActivityLogger appends visit and interaction events under `logs/` and
// mirrors them to Datadog counters. Writes are fire-and-forget: a failed log
// never fails the user action that produced it.
type ActivityLogger struct {
	store  store.TreeStore
	statsd *statsd.Client
}

// NewActivityLogger builds a logger; statsd may be nil, in which case only
// the store write happens.
func NewActivityLogger(s store.TreeStore, d *statsd.Client) *ActivityLogger {
	return &ActivityLogger{store: s, statsd: d}
}

// VisitorRole classifies visitor against profile: self, friend when the
// visitor follows the profile owner, stranger otherwise.
func VisitorRole(visitor *model.User, profile *model.User) model.VisitorRole {
	if visitor.Id == profile.Id {
		return model.VisitorRoleSelf
	}
	if visitor.IsFollowing(profile.Id) {
		return model.VisitorRoleFriend
	}
	return model.VisitorRoleStranger
}

func (l *ActivityLogger) LogProfileVisit(ctx context.Context, visitor *model.User, profile *model.User) {
	if visitor == nil || profile == nil {
		return
	}
	role := VisitorRole(visitor, profile)
	_, err := l.store.Push(ctx, visitsPath, map[string]interface{}{
		"visitorId": visitor.Id,
		"profileId": profile.Id,
		"role":      string(role),
		"timestamp": store.ServerTimestamp,
	})
	if err != nil {
		Logger.Log.Warn("failed to log profile visit: ", err)
		return
	}
	l.incr(ddVisitCounter, []string{"role:" + string(role)})
}

func (l *ActivityLogger) LogInteraction(ctx context.Context, user *model.User, contentId string, contentType model.ContentType, interactionType model.InteractionType) {
	if user == nil || contentId == "" {
		return
	}
	_, err := l.store.Push(ctx, interactionsPath, map[string]interface{}{
		"userId":          user.Id,
		"contentId":       contentId,
		"contentType":     string(contentType),
		"interactionType": string(interactionType),
		"timestamp":       store.ServerTimestamp,
	})
	if err != nil {
		Logger.Log.Warn("failed to log interaction: ", err)
		return
	}
	l.incr(ddInteractionCounter, []string{
		"content_type:" + string(contentType),
		"interaction_type:" + string(interactionType),
	})
}

func (l *ActivityLogger) incr(name string, tags []string) {
	if l.statsd == nil {
		return
	}
	if err := l.statsd.Incr(name, tags, 1); err != nil {
		Logger.Log.Infoln("cannot report activity counter: ", err)
	}
}
