// Package lifecycle holds the status machines of the records that have a status.
// All transitions are user-triggered; none are time-triggered.
package lifecycle

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrIllegalTransition is the cause of every error returned by Machine.Check.
var ErrIllegalTransition = errors.New("illegal status transition")

type Machine struct {
	name     string
	states   []string
	terminal map[string]bool
	edges    map[string]map[string]bool
}

// New returns a machine whose initial state is states[0].
func New(name string, states []string, terminal []string, edges map[string][]string) *Machine {
	m := &Machine{
		name:     name,
		states:   states,
		terminal: make(map[string]bool, len(terminal)),
		edges:    make(map[string]map[string]bool, len(edges)),
	}
	for _, s := range terminal {
		m.terminal[s] = true
	}
	for from, tos := range edges {
		m.edges[from] = make(map[string]bool, len(tos))
		for _, to := range tos {
			m.edges[from][to] = true
		}
	}
	return m
}

func (m *Machine) Name() string { return m.name }

func (m *Machine) Initial() string { return m.states[0] }

func (m *Machine) States() []string { return append([]string(nil), m.states...) }

func (m *Machine) IsState(s string) bool {
	for _, state := range m.states {
		if state == s {
			return true
		}
	}
	return false
}

func (m *Machine) IsTerminal(s string) bool { return m.terminal[s] }

// CanTransition reports whether from -> to is legal. Staying in the same state is always legal.
func (m *Machine) CanTransition(from, to string) bool {
	if !m.IsState(from) || !m.IsState(to) {
		return false
	}
	return from == to || m.edges[from][to]
}

// Check returns an error wrapping ErrIllegalTransition when from -> to is not legal.
func (m *Machine) Check(from, to string) error {
	if !m.IsState(to) {
		return errors.Wrap(ErrIllegalTransition, fmt.Sprintf("unknown %s status %q", m.name, to))
	}
	if !m.CanTransition(from, to) {
		return errors.Wrap(ErrIllegalTransition, fmt.Sprintf("%s cannot go from %q to %q", m.name, from, to))
	}
	return nil
}

// Alert statuses.
const (
	AlertUnread   = "unread"
	AlertRead     = "read"
	AlertArchived = "archived"
	AlertResolved = "resolved"
)

// Ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "in-progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// Meeting statuses.
const (
	MeetingScheduled = "scheduled"
	MeetingCompleted = "completed"
	MeetingCancelled = "cancelled"
)

var (
	// Alerts: unread <-> read is the only backward transition.
	Alerts = New("alert",
		[]string{AlertUnread, AlertRead, AlertArchived, AlertResolved},
		[]string{AlertArchived, AlertResolved},
		map[string][]string{
			AlertUnread: {AlertRead, AlertArchived, AlertResolved},
			AlertRead:   {AlertUnread, AlertArchived, AlertResolved},
		},
	)

	// Tickets only move forward; steps may be skipped.
	Tickets = New("ticket",
		[]string{TicketOpen, TicketInProgress, TicketResolved, TicketClosed},
		[]string{TicketClosed},
		map[string][]string{
			TicketOpen:       {TicketInProgress, TicketResolved, TicketClosed},
			TicketInProgress: {TicketResolved, TicketClosed},
			TicketResolved:   {TicketClosed},
		},
	)

	Meetings = New("meeting",
		[]string{MeetingScheduled, MeetingCompleted, MeetingCancelled},
		[]string{MeetingCompleted, MeetingCancelled},
		map[string][]string{
			MeetingScheduled: {MeetingCompleted, MeetingCancelled},
		},
	)
)
