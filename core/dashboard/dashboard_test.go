package dashboard

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/alert"
	"github.com/trezcool/portal/core/lifecycle"
	"github.com/trezcool/portal/core/user"
)

func fixed(counts map[string]float64) Card {
	return func(context.Context) (map[string]float64, error) { return counts, nil }
}

func failing(err error) Card {
	return func(context.Context) (map[string]float64, error) { return nil, err }
}

func allCards() map[string]Card {
	return map[string]Card{
		user.SectionAlerts:        fixed(map[string]float64{"unread": 2}),
		user.SectionMeetings:      fixed(map[string]float64{"upcoming": 1}),
		user.SectionSubmissions:   fixed(map[string]float64{"average": 71.5}),
		user.SectionConversations: fixed(map[string]float64{"threads": 0}),
		user.SectionResources:     fixed(map[string]float64{"available": 12}),
		user.SectionTickets:       failing(core.NewLoadError("tickets", errors.New("connection refused"))),
	}
}

func sectionNames(s Summary) []string {
	var names []string
	for _, sec := range s.Sections {
		names = append(names, sec.Name)
	}
	return names
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(allCards(), nil)

	tests := []struct {
		role      string
		wantNames []string
	}{
		{user.RoleParent, []string{"alerts", "meetings", "submissions", "conversations", "tickets"}},
		{user.RoleEmployee, []string{"alerts", "meetings", "conversations", "resources", "tickets"}},
		{"visitor", nil},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			s := b.Build(context.Background(), user.NewIdentity("Jo", "", tt.role))
			assert.Equal(t, tt.wantNames, sectionNames(s))
		})
	}
}

func TestBuilder_Build_sectionFailure(t *testing.T) {
	b := NewBuilder(allCards(), nil)
	s := b.Build(context.Background(), user.NewIdentity("Jo", "", user.RoleLeader))

	for _, sec := range s.Sections {
		if sec.Name == user.SectionTickets {
			assert.Contains(t, sec.Error, "connection refused")
			assert.True(t, sec.Retry)
			assert.Nil(t, sec.Counts)
			continue
		}
		assert.Empty(t, sec.Error, sec.Name)
		assert.NotNil(t, sec.Counts, sec.Name)
	}
}

type staticAlerts []alert.Alert

func (s staticAlerts) Fetch(context.Context) ([]alert.Alert, error) { return s, nil }

func TestCards(t *testing.T) {
	alerts := alert.NewService(staticAlerts{
		{ID: "a1", Priority: core.PriorityCritical, Status: lifecycle.AlertUnread},
		{ID: "a2", Priority: core.PriorityLow, Status: lifecycle.AlertRead},
	}, nil, nil)

	cards := Cards(Services{Alerts: alerts})
	require.Len(t, cards, 1)

	s := NewBuilder(cards, nil).Build(context.Background(), user.NewIdentity("Amani", "", user.RoleStudent))
	require.Len(t, s.Sections, 1)
	assert.Equal(t, map[string]float64{"unread": 1, "critical": 1}, s.Sections[0].Counts)
}
