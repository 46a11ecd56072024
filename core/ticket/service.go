package ticket

import (
	"context"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/collection"
	"github.com/trezcool/portal/core/lifecycle"
)

const maxIDAttempts = 5

var (
	errInvalidTicket = errors.New("invalid ticket")
	errInvalidStatus = errors.New("invalid ticket status")
	errIDsExhausted  = errors.New("could not allocate a free ticket id")
)

type Service struct {
	*collection.Collection[Ticket]
	validate   *validator.Validate
	translator ut.Translator
	now        func() time.Time
	newID      func() string
}

func NewService(src collection.Source[Ticket], saver collection.Saver[Ticket], logger core.Logger, opts ...collection.Options[Ticket]) *Service {
	var o collection.Options[Ticket]
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	o.Logger = logger
	o.Machine = lifecycle.Tickets
	o.StatusOf = func(t Ticket) string { return t.Status }

	validate, translator := core.NewValidator()
	return &Service{
		Collection: collection.New(Schema, src, saver, o),
		validate:   validate,
		translator: translator,
		now:        o.Now,
		newID:      newID,
	}
}

// Create validates nt and adds an open ticket with a fresh id.
func (svc *Service) Create(ctx context.Context, nt NewTicket) (Ticket, error) {
	nt.clean()
	if err := svc.validate.Struct(nt); err != nil {
		return Ticket{}, svc.validationError(errInvalidTicket, err)
	}

	now := svc.now()
	t := Ticket{
		Subject:     nt.Subject,
		Description: nt.Description,
		Category:    nt.Category,
		Priority:    nt.Priority,
		Status:      lifecycle.Tickets.Initial(),
		Requester:   nt.Requester,
		Assignee:    nt.Assignee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// short references collide eventually: draw again rather than replace a ticket
	for range maxIDAttempts {
		t.ID = svc.newID()
		created, err := svc.Insert(ctx, t)
		if errors.Is(err, collection.ErrDuplicateID) {
			continue
		}
		return created, err
	}
	return Ticket{}, errIDsExhausted
}

type statusChange struct {
	Status string `json:"status" validate:"required,ticketstatus"`
}

// SetStatus moves the ticket to status, which must be one of the ticket states.
func (svc *Service) SetStatus(ctx context.Context, id, status string) (Ticket, error) {
	sc := statusChange{Status: core.CleanString(status, true /* lower */)}
	if err := svc.validate.Struct(sc); err != nil {
		return Ticket{}, svc.validationError(errInvalidStatus, err)
	}
	return svc.Transition(ctx, id, sc.Status)
}

func (svc *Service) validationError(cause, err error) error {
	var fields []core.FieldError
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for _, fe := range vErrs {
			fields = append(fields, core.FieldError{Field: fe.Field(), Error: fe.Translate(svc.translator)})
		}
	}
	return core.NewValidationError(cause, fields...)
}

func (svc *Service) Start(ctx context.Context, id string) (Ticket, error) {
	return svc.Transition(ctx, id, lifecycle.TicketInProgress)
}

func (svc *Service) Resolve(ctx context.Context, id string) (Ticket, error) {
	return svc.Transition(ctx, id, lifecycle.TicketResolved)
}

func (svc *Service) Close(ctx context.Context, id string) (Ticket, error) {
	return svc.Transition(ctx, id, lifecycle.TicketClosed)
}

// OpenCount returns the number of tickets not yet resolved or closed.
func (svc *Service) OpenCount(ctx context.Context) (int, error) {
	records, err := svc.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	for _, t := range records {
		if t.Status == lifecycle.TicketOpen || t.Status == lifecycle.TicketInProgress {
			n++
		}
	}
	return n, nil
}

// newID returns a short ticket reference such as "TK-1A2B3C4D".
func newID() string {
	return "TK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
