package meeting

import (
	"context"
	"time"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/lifecycle"
	"github.com/trezcool/portal/core/view"
)

type Meeting struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Organizer    string    `json:"organizer"`
	Participants []string  `json:"participants"`
	Location     string    `json:"location"`
	StartsAt     time.Time `json:"starts_at"`
	Duration     int       `json:"duration"` // minutes
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var Schema = view.Schema[Meeting]{
	Name: "meetings",
	Fields: map[string]view.Field[Meeting]{
		"id":           {Kind: view.String, Value: func(m Meeting) any { return m.ID }},
		"title":        {Kind: view.String, Value: func(m Meeting) any { return m.Title }},
		"organizer":    {Kind: view.String, Value: func(m Meeting) any { return m.Organizer }},
		"participants": {Kind: view.List, Value: func(m Meeting) any { return m.Participants }},
		"location":     {Kind: view.String, Value: func(m Meeting) any { return m.Location }},
		"startsAt":     {Kind: view.Time, Value: func(m Meeting) any { return m.StartsAt }},
		"duration":     {Kind: view.Number, Value: func(m Meeting) any { return m.Duration }},
		"status":       {Kind: view.String, Value: func(m Meeting) any { return m.Status }},
		"updatedAt":    {Kind: view.Time, Value: func(m Meeting) any { return m.UpdatedAt }},
	},
	Searchable:      []string{"title", "organizer", "participants", "location"},
	DefaultOrdering: []view.Ordering{{Field: "startsAt", Direction: view.Ascending}},
	ID:              func(m Meeting) string { return m.ID },
	WithStatus: func(m Meeting, status string, at time.Time) Meeting {
		m.Status = status
		m.UpdatedAt = at
		return m
	},
}

type Service struct {
	*collection.Collection[Meeting]
	now func() time.Time
}

func NewService(src collection.Source[Meeting], saver collection.Saver[Meeting], logger core.Logger, opts ...collection.Options[Meeting]) *Service {
	var o collection.Options[Meeting]
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	o.Logger = logger
	o.Machine = lifecycle.Meetings
	o.StatusOf = func(m Meeting) string { return m.Status }
	return &Service{Collection: collection.New(Schema, src, saver, o), now: o.Now}
}

func (svc *Service) Complete(ctx context.Context, id string) (Meeting, error) {
	return svc.Transition(ctx, id, lifecycle.MeetingCompleted)
}

func (svc *Service) Cancel(ctx context.Context, id string) (Meeting, error) {
	return svc.Transition(ctx, id, lifecycle.MeetingCancelled)
}

// Upcoming returns the scheduled meetings that have not started yet, soonest first.
func (svc *Service) Upcoming(ctx context.Context) ([]Meeting, error) {
	records, err := svc.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := svc.now()
	scheduled := view.Filter(records, []view.Predicate{{Field: "status", Value: lifecycle.MeetingScheduled}}, Schema)
	upcoming := make([]Meeting, 0, len(scheduled))
	for _, m := range scheduled {
		if m.StartsAt.After(now) {
			upcoming = append(upcoming, m)
		}
	}
	return view.Sort(upcoming, "startsAt", view.Ascending, Schema), nil
}
