package user

import (
	"slices"

	"github.com/trezcool/portal/core"
)

// Roles
const (
	RoleStudent  = "student"
	RoleParent   = "parent"
	RoleTeacher  = "teacher"
	RoleEmployee = "employee"
	RoleLeader   = "leader" // school leadership; the admin portal
)

// Sections are the record kinds a dashboard may show.
const (
	SectionAlerts        = "alerts"
	SectionMeetings      = "meetings"
	SectionSubmissions   = "submissions"
	SectionConversations = "conversations"
	SectionResources     = "resources"
	SectionTickets       = "tickets"
)

var (
	AllSections = []string{
		SectionAlerts, SectionMeetings, SectionSubmissions,
		SectionConversations, SectionResources, SectionTickets,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Employee", Value: RoleEmployee},
		{Name: "Leader", Value: RoleLeader},
	}

	roleSections = map[string][]string{
		RoleStudent:  AllSections,
		RoleParent:   {SectionAlerts, SectionMeetings, SectionSubmissions, SectionConversations, SectionTickets},
		RoleTeacher:  AllSections,
		RoleEmployee: {SectionAlerts, SectionMeetings, SectionConversations, SectionResources, SectionTickets},
		RoleLeader:   AllSections,
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func IsRole(role string) bool {
	_, ok := roleSections[role]
	return ok
}

// Identity is the current user as supplied by the session; it is trusted as is.
type Identity struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role"`
}

// NewIdentity cleans the supplied values; an unknown role leaves the identity without sections.
func NewIdentity(name, avatar, role string) Identity {
	return Identity{
		Name:   core.CleanString(name),
		Avatar: core.CleanString(avatar),
		Role:   core.CleanString(role, true /* lower */),
	}
}

// Sections returns the record kinds the identity's role may see.
func (id Identity) Sections() []string {
	return append([]string(nil), roleSections[id.Role]...)
}

func (id Identity) CanSee(section string) bool {
	return slices.Contains(roleSections[id.Role], section)
}

func (id Identity) IsLeader() bool {
	return id.Role == RoleLeader
}

// IsStaff reports whether the identity works for the university.
func (id Identity) IsStaff() bool {
	return id.Role == RoleLeader || id.Role == RoleEmployee || id.Role == RoleTeacher
}
