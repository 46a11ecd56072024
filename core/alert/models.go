package alert

import (
	"time"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/view"
)

// Categories
const (
	CategoryAcademic = "academic"
	CategoryFinance  = "finance"
	CategoryEvent    = "event"
	CategorySystem   = "system"
)

type Alert struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Category  string    `json:"category"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Audience  string    `json:"audience,omitempty"` // targeted role; empty for everyone
	CreatedAt time.Time `json:"created_at"`         // UTC
	UpdatedAt time.Time `json:"updated_at"`         // UTC
}

func withStatus(a Alert, status string, at time.Time) Alert {
	a.Status = status
	a.UpdatedAt = at
	return a
}

var Schema = view.Schema[Alert]{
	Name: "alerts",
	Fields: map[string]view.Field[Alert]{
		"id":           {Kind: view.String, Value: func(a Alert) any { return a.ID }},
		"title":        {Kind: view.String, Value: func(a Alert) any { return a.Title }},
		"message":      {Kind: view.String, Value: func(a Alert) any { return a.Message }},
		"category":     {Kind: view.String, Value: func(a Alert) any { return a.Category }},
		"priority":     {Kind: view.String, Value: func(a Alert) any { return a.Priority }},
		"priorityRank": {Kind: view.Number, Value: func(a Alert) any { return core.PriorityRank(a.Priority) }},
		"status":       {Kind: view.String, Value: func(a Alert) any { return a.Status }},
		"audience":     {Kind: view.String, Value: func(a Alert) any { return a.Audience }},
		"createdAt":    {Kind: view.Time, Value: func(a Alert) any { return a.CreatedAt }},
		"updatedAt":    {Kind: view.Time, Value: func(a Alert) any { return a.UpdatedAt }},
	},
	Searchable:      []string{"title", "message", "category"},
	DefaultOrdering: []view.Ordering{{Field: "createdAt", Direction: view.Descending}},
	ID:              func(a Alert) string { return a.ID },
	WithStatus:      withStatus,
}
