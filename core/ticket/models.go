package ticket

import (
	"time"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/view"
)

type (
	Ticket struct {
		ID          string    `json:"id"`
		Subject     string    `json:"subject"`
		Description string    `json:"description"`
		Category    string    `json:"category"`
		Priority    string    `json:"priority"`
		Status      string    `json:"status"`
		Requester   string    `json:"requester"`
		Assignee    string    `json:"assignee,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	NewTicket struct {
		Subject     string `json:"subject" validate:"required,notblank,max=200"`
		Description string `json:"description" validate:"required,notblank"`
		Category    string `json:"category" validate:"required,oneof=it facilities finance academic other"`
		Priority    string `json:"priority" validate:"required,priority"`
		Requester   string `json:"requester" validate:"required,notblank"`
		Assignee    string `json:"assignee"`
	}
)

// Categories accepted by NewTicket.
var Categories = []string{"it", "facilities", "finance", "academic", "other"}

func (nt *NewTicket) clean() {
	nt.Subject = core.CleanString(nt.Subject)
	nt.Description = core.CleanString(nt.Description)
	nt.Category = core.CleanString(nt.Category, true)
	nt.Priority = core.CleanString(nt.Priority, true)
	nt.Requester = core.CleanString(nt.Requester)
	nt.Assignee = core.CleanString(nt.Assignee)
}

var Schema = view.Schema[Ticket]{
	Name: "tickets",
	Fields: map[string]view.Field[Ticket]{
		"id":           {Kind: view.String, Value: func(t Ticket) any { return t.ID }},
		"subject":      {Kind: view.String, Value: func(t Ticket) any { return t.Subject }},
		"description":  {Kind: view.String, Value: func(t Ticket) any { return t.Description }},
		"category":     {Kind: view.String, Value: func(t Ticket) any { return t.Category }},
		"priority":     {Kind: view.String, Value: func(t Ticket) any { return t.Priority }},
		"priorityRank": {Kind: view.Number, Value: func(t Ticket) any { return core.PriorityRank(t.Priority) }},
		"status":       {Kind: view.String, Value: func(t Ticket) any { return t.Status }},
		"requester":    {Kind: view.String, Value: func(t Ticket) any { return t.Requester }},
		"assignee":     {Kind: view.String, Value: func(t Ticket) any { return t.Assignee }},
		"createdAt":    {Kind: view.Time, Value: func(t Ticket) any { return t.CreatedAt }},
		"updatedAt":    {Kind: view.Time, Value: func(t Ticket) any { return t.UpdatedAt }},
	},
	Searchable:      []string{"id", "subject", "description", "requester"},
	DefaultOrdering: []view.Ordering{{Field: "priorityRank", Direction: view.Descending}, {Field: "createdAt", Direction: view.Descending}},
	ID:              func(t Ticket) string { return t.ID },
	WithStatus: func(t Ticket, status string, at time.Time) Ticket {
		t.Status = status
		t.UpdatedAt = at
		return t
	},
}
