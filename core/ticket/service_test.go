package ticket

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/lifecycle"
	"github.com/trezcool/portal/core/view"
)

type memSource struct{ tickets []Ticket }

func (s *memSource) Fetch(context.Context) ([]Ticket, error) { return s.tickets, nil }

type memSaver struct{ saved map[string]Ticket }

func (s *memSaver) Save(_ context.Context, t Ticket) error {
	s.saved[t.ID] = t
	return nil
}

func (s *memSaver) Delete(_ context.Context, id string) error {
	delete(s.saved, id)
	return nil
}

var now = time.Date(2024, 10, 7, 9, 30, 0, 0, time.UTC)

func newService(tickets ...Ticket) (*Service, *memSaver) {
	saver := &memSaver{saved: make(map[string]Ticket)}
	svc := NewService(&memSource{tickets: tickets}, saver, nil, collection.Options[Ticket]{
		Now: func() time.Time { return now },
	})
	return svc, saver
}

func validTicket() NewTicket {
	return NewTicket{
		Subject:     "  Projector broken in B12 ",
		Description: "The projector does not turn on.",
		Category:    "Facilities",
		Priority:    "HIGH",
		Requester:   "Amani Mwangi",
	}
}

func TestService_Create(t *testing.T) {
	svc, saver := newService()
	ctx := context.Background()

	tk, err := svc.Create(ctx, validTicket())
	require.NoError(t, err)
	assert.Regexp(t, `^TK-[0-9A-F]{8}$`, tk.ID)
	assert.Equal(t, "Projector broken in B12", tk.Subject)
	assert.Equal(t, "facilities", tk.Category)
	assert.Equal(t, core.PriorityHigh, tk.Priority)
	assert.Equal(t, lifecycle.TicketOpen, tk.Status)
	assert.Equal(t, now, tk.CreatedAt)
	assert.Equal(t, tk, saver.saved[tk.ID])

	got, err := svc.Get(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk, got)
}

func TestService_Create_invalid(t *testing.T) {
	tests := []struct {
		name      string
		edit      func(nt *NewTicket)
		wantField string
	}{
		{"blank subject", func(nt *NewTicket) { nt.Subject = "   " }, "subject"},
		{"unknown priority", func(nt *NewTicket) { nt.Priority = "urgent" }, "priority"},
		{"unknown category", func(nt *NewTicket) { nt.Category = "canteen" }, "category"},
		{"no requester", func(nt *NewTicket) { nt.Requester = "" }, "requester"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, saver := newService()
			nt := validTicket()
			tt.edit(&nt)

			_, err := svc.Create(context.Background(), nt)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			assert.NotEmpty(t, vErr.Fields[0].Error)
			assert.Empty(t, saver.saved)
		})
	}
}

func TestService_lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(
		Ticket{ID: "TK-1", Subject: "Wifi down", Status: lifecycle.TicketOpen, Priority: core.PriorityCritical},
		Ticket{ID: "TK-2", Subject: "Printer jam", Status: lifecycle.TicketOpen, Priority: core.PriorityLow},
	)

	n, err := svc.OpenCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tk, err := svc.Start(ctx, "TK-1")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.TicketInProgress, tk.Status)

	_, err = svc.Resolve(ctx, "TK-1")
	require.NoError(t, err)
	_, err = svc.Start(ctx, "TK-1")
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "tickets only move forward")
	assert.True(t, errors.Is(vErr.Err, lifecycle.ErrIllegalTransition))

	_, err = svc.Close(ctx, "TK-2")
	require.NoError(t, err, "steps may be skipped")

	n, err = svc.OpenCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := svc.Query(ctx, view.Params{Filters: []view.Predicate{{Field: "status", Value: lifecycle.TicketClosed}}})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "TK-2", res.Items[0].ID)
}

func TestService_Create_idCollision(t *testing.T) {
	ctx := context.Background()
	existing := Ticket{ID: "TK-00C0FFEE", Subject: "Wifi down", Status: lifecycle.TicketInProgress, Priority: core.PriorityCritical}

	draws := func(ids ...string) func() string {
		return func() string {
			id := ids[0]
			if len(ids) > 1 {
				ids = ids[1:]
			}
			return id
		}
	}

	tests := []struct {
		name    string
		ids     func() string
		wantID  string
		wantErr error
	}{
		{name: "fresh id", ids: draws("TK-0000BEEF"), wantID: "TK-0000BEEF"},
		{name: "collision is redrawn", ids: draws("TK-00C0FFEE", "TK-0000BEEF"), wantID: "TK-0000BEEF"},
		{name: "gives up", ids: draws("TK-00C0FFEE"), wantErr: errIDsExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, saver := newService(existing)
			svc.newID = tt.ids

			tk, err := svc.Create(ctx, validTicket())
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Empty(t, saver.saved)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, tk.ID)
				assert.Equal(t, tk, saver.saved[tt.wantID])
			}

			// the existing ticket is never replaced
			got, err := svc.Get(ctx, existing.ID)
			require.NoError(t, err)
			assert.Equal(t, existing, got)
			_, overwritten := saver.saved[existing.ID]
			assert.False(t, overwritten)
		})
	}
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		from       string
		status     string
		wantStatus string
		wantErr    error
		wantText   string
	}{
		{name: "known status", from: lifecycle.TicketOpen, status: " In-Progress ", wantStatus: lifecycle.TicketInProgress},
		{name: "unknown status", from: lifecycle.TicketOpen, status: "on-hold", wantErr: errInvalidStatus, wantText: "status must be one of open, in-progress, resolved or closed"},
		{name: "blank", from: lifecycle.TicketOpen, status: "  ", wantErr: errInvalidStatus, wantText: "this field is required"},
		{name: "backwards", from: lifecycle.TicketInProgress, status: lifecycle.TicketOpen, wantErr: lifecycle.ErrIllegalTransition, wantText: "illegal status transition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(Ticket{ID: "TK-1", Status: tt.from})

			tk, err := svc.SetStatus(ctx, "TK-1", tt.status)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, tk.Status)
				return
			}
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.True(t, errors.Is(vErr.Err, tt.wantErr))
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, "status", vErr.Fields[0].Field)
			assert.Equal(t, tt.wantText, vErr.Fields[0].Error)
		})
	}
}
