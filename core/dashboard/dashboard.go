// Package dashboard builds the per-role summary shown on a portal landing page.
package dashboard

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/conversation"
	"github.com/trezcool/portal/core/meeting"
	"github.com/trezcool/portal/core/resource"
	"github.com/trezcool/portal/core/submission"
	"github.com/trezcool/portal/core/ticket"
	"github.com/trezcool/portal/core/user"
)

type (
	// Card computes the figures of one dashboard section.
	Card func(ctx context.Context) (map[string]float64, error)

	Section struct {
		Name   string             `json:"name"`
		Counts map[string]float64 `json:"counts,omitempty"`
		Error  string             `json:"error,omitempty"`
		Retry  bool               `json:"retry,omitempty"` // the section failed to load and may be reloaded
	}

	Summary struct {
		User     user.Identity `json:"user"`
		Sections []Section     `json:"sections"`
	}

	Services struct {
		Alerts        *alert.Service
		Meetings      *meeting.Service
		Submissions   *submission.Service
		Conversations *conversation.Service
		Resources     *resource.Service
		Tickets       *ticket.Service
	}
)

type Builder struct {
	cards  map[string]Card
	logger core.Logger
}

func NewBuilder(cards map[string]Card, logger core.Logger) *Builder {
	return &Builder{cards: cards, logger: logger}
}

// Cards returns the dashboard cards backed by the given services; nil services are skipped.
func Cards(svcs Services) map[string]Card {
	cards := make(map[string]Card)
	if svcs.Alerts != nil {
		cards[user.SectionAlerts] = func(ctx context.Context) (map[string]float64, error) {
			unread, critical, err := svcs.Alerts.Counts(ctx)
			return map[string]float64{"unread": float64(unread), "critical": float64(critical)}, err
		}
	}
	if svcs.Meetings != nil {
		cards[user.SectionMeetings] = func(ctx context.Context) (map[string]float64, error) {
			upcoming, err := svcs.Meetings.Upcoming(ctx)
			return map[string]float64{"upcoming": float64(len(upcoming))}, err
		}
	}
	if svcs.Submissions != nil {
		cards[user.SectionSubmissions] = func(ctx context.Context) (map[string]float64, error) {
			avg, graded, err := svcs.Submissions.Average(ctx)
			return map[string]float64{"average": avg, "graded": float64(graded)}, err
		}
	}
	if svcs.Conversations != nil {
		cards[user.SectionConversations] = func(ctx context.Context) (map[string]float64, error) {
			threads, messages, err := svcs.Conversations.UnreadCount(ctx)
			return map[string]float64{"threads": float64(threads), "messages": float64(messages)}, err
		}
	}
	if svcs.Resources != nil {
		cards[user.SectionResources] = func(ctx context.Context) (map[string]float64, error) {
			titles, available, err := svcs.Resources.Shelf(ctx)
			return map[string]float64{"titles": float64(titles), "available": float64(available)}, err
		}
	}
	if svcs.Tickets != nil {
		cards[user.SectionTickets] = func(ctx context.Context) (map[string]float64, error) {
			open, err := svcs.Tickets.OpenCount(ctx)
			return map[string]float64{"open": float64(open)}, err
		}
	}
	return cards
}

// Build computes the sections the identity may see concurrently. A failing section is reported
// in the summary and does not fail the others.
func (b *Builder) Build(ctx context.Context, id user.Identity) Summary {
	names := id.Sections()
	sections := make([]Section, 0, len(names))
	for _, name := range names {
		if _, ok := b.cards[name]; ok {
			sections = append(sections, Section{Name: name})
		}
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for i := range sections {
		i := i
		card := b.cards[sections[i].Name]
		g.Go(func() error {
			counts, err := card(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sections[i].Error = err.Error()
				sections[i].Retry = core.IsLoadError(err)
				if b.logger != nil {
					b.logger.Warn("dashboard section "+sections[i].Name+" failed", err, id)
				}
				return nil
			}
			sections[i].Counts = counts
			return nil
		})
	}
	_ = g.Wait()

	return Summary{User: id, Sections: sections}
}
