package groupcache

import (
	"slices"

	"github.com/edgard/basebot/internal/jid"
)

// AdminRank is a participant's capability level within a group.
type AdminRank string

// Admin ranks.
const (
	RankNone       AdminRank = ""
	RankAdmin      AdminRank = "admin"
	RankSuperAdmin AdminRank = "superadmin"
)

// Action is the kind of a participant update event.
type Action string

// Participant update actions.
const (
	ActionAdd     Action = "add"
	ActionRemove  Action = "remove"
	ActionPromote Action = "promote"
	ActionDemote  Action = "demote"
)

// Participant is one member of a group. ID is the stable ("lid") identifier and
// PhoneNumber the alternate phone-form identifier; either may be empty.
type Participant struct {
	ID          string
	PhoneNumber string
	Admin       AdminRank
}

// IsAdmin reports whether the participant holds admin or superadmin rank.
func (p Participant) IsAdmin() bool {
	return p.Admin == RankAdmin || p.Admin == RankSuperAdmin
}

// Matches reports whether id refers to this participant, comparing numeric prefixes
// against both identifier forms.
func (p Participant) Matches(id string) bool {
	return jid.SameUser(id, p.ID) || jid.SameUser(id, p.PhoneNumber)
}

// same reports whether p and other describe the same person.
func (p Participant) same(other Participant) bool {
	return (other.ID != "" && p.Matches(other.ID)) ||
		(other.PhoneNumber != "" && p.Matches(other.PhoneNumber))
}

// Settings are the group-level switches mirrored from the server.
type Settings struct {
	MemberAddMode     bool
	EphemeralDuration uint32
	JoinApprovalMode  bool
	Announce          bool
	Restrict          bool
}

// GroupState is a snapshot of one group's metadata.
type GroupState struct {
	ID           string
	Subject      string
	Owner        string
	Description  string
	Participants []Participant
	Size         int
	Settings     Settings
}

// Clone returns a deep copy of g.
func (g *GroupState) Clone() *GroupState {
	if g == nil {
		return nil
	}
	c := *g
	c.Participants = slices.Clone(g.Participants)
	return &c
}

// Find returns the participant matching id.
func (g *GroupState) Find(id string) (Participant, bool) {
	if g == nil {
		return Participant{}, false
	}
	if i := g.indexOf(id); i >= 0 {
		return g.Participants[i], true
	}
	return Participant{}, false
}

// IsParticipant reports whether id is a member of the group.
func (g *GroupState) IsParticipant(id string) bool {
	_, ok := g.Find(id)
	return ok
}

// IsAdmin reports whether id is a member holding admin rank.
func (g *GroupState) IsAdmin(id string) bool {
	p, ok := g.Find(id)
	return ok && p.IsAdmin()
}

func (g *GroupState) indexOf(id string) int {
	return slices.IndexFunc(g.Participants, func(p Participant) bool { return p.Matches(id) })
}

// apply mutates g for one participant of an update event.
func (g *GroupState) apply(p Participant, action Action) {
	i := slices.IndexFunc(g.Participants, func(existing Participant) bool { return existing.same(p) })
	switch action {
	case ActionAdd:
		if i < 0 {
			g.Participants = append(g.Participants, p)
		}
	case ActionRemove:
		if i >= 0 {
			g.Participants = slices.Delete(g.Participants, i, i+1)
		}
	case ActionPromote:
		if i >= 0 {
			g.Participants[i].Admin = RankAdmin
		}
	case ActionDemote:
		if i >= 0 {
			g.Participants[i].Admin = RankNone
		}
	}
}

// Patch is a partial group update. Nil fields are left untouched.
type Patch struct {
	Subject           *string
	Owner             *string
	Description       *string
	MemberAddMode     *bool
	EphemeralDuration *uint32
	JoinApprovalMode  *bool
	Announce          *bool
	Restrict          *bool
}

// IsEmpty reports whether the patch sets no field.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

func (p Patch) applyTo(g *GroupState) {
	setIf(&g.Subject, p.Subject)
	setIf(&g.Owner, p.Owner)
	setIf(&g.Description, p.Description)
	setIf(&g.Settings.MemberAddMode, p.MemberAddMode)
	setIf(&g.Settings.EphemeralDuration, p.EphemeralDuration)
	setIf(&g.Settings.JoinApprovalMode, p.JoinApprovalMode)
	setIf(&g.Settings.Announce, p.Announce)
	setIf(&g.Settings.Restrict, p.Restrict)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// ParticipantMatch is the result of a cross-group participant search.
type ParticipantMatch struct {
	GroupID           string
	Subject           string
	Participant       Participant
	TotalParticipants int
}
