package alert

import (
	"context"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/lifecycle"
	"github.com/trezcool/portal/core/view"
)

type Service struct {
	*collection.Collection[Alert]
}

func NewService(src collection.Source[Alert], saver collection.Saver[Alert], logger core.Logger, opts ...collection.Options[Alert]) *Service {
	var o collection.Options[Alert]
	if len(opts) > 0 {
		o = opts[0]
	}
	o.Logger = logger
	o.Machine = lifecycle.Alerts
	o.StatusOf = func(a Alert) string { return a.Status }
	return &Service{Collection: collection.New(Schema, src, saver, o)}
}

func (svc *Service) MarkRead(ctx context.Context, id string) (Alert, error) {
	return svc.Transition(ctx, id, lifecycle.AlertRead)
}

func (svc *Service) MarkUnread(ctx context.Context, id string) (Alert, error) {
	return svc.Transition(ctx, id, lifecycle.AlertUnread)
}

func (svc *Service) Archive(ctx context.Context, id string) (Alert, error) {
	return svc.Transition(ctx, id, lifecycle.AlertArchived)
}

func (svc *Service) Resolve(ctx context.Context, id string) (Alert, error) {
	return svc.Transition(ctx, id, lifecycle.AlertResolved)
}

// MarkAllRead marks every unread alert as read and returns how many changed.
func (svc *Service) MarkAllRead(ctx context.Context) (int, error) {
	records, err := svc.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	unread := view.Filter(records, []view.Predicate{{Field: "status", Value: lifecycle.AlertUnread}}, Schema)
	for _, a := range unread {
		if _, err := svc.MarkRead(ctx, a.ID); err != nil && err != core.ErrNotFound {
			return 0, err
		}
	}
	return len(unread), nil
}

// Counts returns the number of unread alerts and of unread critical alerts.
func (svc *Service) Counts(ctx context.Context) (unread, critical int, err error) {
	records, err := svc.Snapshot(ctx)
	if err != nil {
		return 0, 0, err
	}
	unreadAlerts := view.Filter(records, []view.Predicate{{Field: "status", Value: lifecycle.AlertUnread}}, Schema)
	criticalAlerts := view.Filter(unreadAlerts, []view.Predicate{{Field: "priority", Value: core.PriorityCritical}}, Schema)
	return len(unreadAlerts), len(criticalAlerts), nil
}
