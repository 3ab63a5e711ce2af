// Package clienttest provides an in-memory client.Client for tests.
package clienttest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/message"
)

// ErrNotFound is returned by GroupMetadata for unknown groups.
var ErrNotFound = errors.New("group not found")

// Sent is one recorded SendMessage call.
type Sent struct {
	Chat string
	Msg  client.Outgoing
	Key  message.Key
}

// ParticipantsCall is one recorded UpdateParticipants call.
type ParticipantsCall struct {
	GroupID string
	IDs     []string
	Action  groupcache.Action
}

// SettingsCall is one recorded UpdateSettings call.
type SettingsCall struct {
	GroupID string
	Patch   groupcache.Patch
}

// Fake records outbound calls and serves metadata from Groups.
type Fake struct {
	mu sync.Mutex

	Identity    client.Identity
	Groups      map[string]*groupcache.GroupState
	MetadataErr error
	SendErr     error
	UpdateErr   error
	RunErr      error

	metadataCalls int
	sent          []Sent
	participants  []ParticipantsCall
	subjects      map[string]string
	descriptions  map[string]string
	settings      []SettingsCall
	invites       map[string]int
	left          []string
	blocked       []string
	events        chan any
	nextID        int
}

// New creates a Fake connected as self.
func New(self client.Identity) *Fake {
	return &Fake{
		Identity: self,
		Groups:   make(map[string]*groupcache.GroupState),
		subjects:     make(map[string]string),
		descriptions: make(map[string]string),
		invites:      make(map[string]int),
		events:       make(chan any, 16),
	}
}

// AddGroup registers metadata served by GroupMetadata.
func (f *Fake) AddGroup(g *groupcache.GroupState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Groups[g.ID] = g.Clone()
}

// Emit queues an event for Run to deliver.
func (f *Fake) Emit(evt any) {
	f.events <- evt
}

// Self implements client.Client.
func (f *Fake) Self() client.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Identity
}

// Run delivers emitted events until ctx is done. A non-nil RunErr is returned
// immediately.
func (f *Fake) Run(ctx context.Context, handler client.EventHandler) error {
	if f.RunErr != nil {
		return f.RunErr
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-f.events:
			handler(ctx, evt)
		}
	}
}

// SendMessage implements client.Client.
func (f *Fake) SendMessage(_ context.Context, chat string, msg client.Outgoing) (message.Key, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendErr != nil {
		return message.Key{}, f.SendErr
	}
	var key message.Key
	if msg.Edit != nil {
		key = *msg.Edit
	} else {
		f.nextID++
		key = message.Key{RemoteJID: chat, ID: fmt.Sprintf("SENT%d", f.nextID), FromMe: true}
	}
	f.sent = append(f.sent, Sent{Chat: chat, Msg: msg, Key: key})
	return key, nil
}

// GroupMetadata implements client.Client.
func (f *Fake) GroupMetadata(_ context.Context, groupID string) (*groupcache.GroupState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.metadataCalls++
	if f.MetadataErr != nil {
		return nil, f.MetadataErr
	}
	g, ok := f.Groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, groupID)
	}
	return g.Clone(), nil
}

// UpdateParticipants implements client.Client.
func (f *Fake) UpdateParticipants(_ context.Context, groupID string, ids []string, action groupcache.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.participants = append(f.participants, ParticipantsCall{GroupID: groupID, IDs: slices.Clone(ids), Action: action})
	return nil
}

// UpdateSubject implements client.Client.
func (f *Fake) UpdateSubject(_ context.Context, groupID, subject string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.subjects[groupID] = subject
	return nil
}

// UpdateDescription implements client.Client.
func (f *Fake) UpdateDescription(_ context.Context, groupID, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.descriptions[groupID] = description
	return nil
}

// UpdateSettings implements client.Client.
func (f *Fake) UpdateSettings(_ context.Context, groupID string, patch groupcache.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.settings = append(f.settings, SettingsCall{GroupID: groupID, Patch: patch})
	return nil
}

// InviteLink implements client.Client.
func (f *Fake) InviteLink(_ context.Context, groupID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.link(groupID), nil
}

// RevokeInvite implements client.Client.
func (f *Fake) RevokeInvite(_ context.Context, groupID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return "", f.UpdateErr
	}
	f.invites[groupID]++
	return f.link(groupID), nil
}

func (f *Fake) link(groupID string) string {
	return fmt.Sprintf("https://chat.example/%s/%d", groupID, f.invites[groupID])
}

// LeaveGroup implements client.Client.
func (f *Fake) LeaveGroup(_ context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.left = append(f.left, groupID)
	return nil
}

// BlockList implements client.Client.
func (f *Fake) BlockList(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.blocked), nil
}

// UpdateBlockStatus implements client.Client.
func (f *Fake) UpdateBlockStatus(_ context.Context, id string, block bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.blocked = slices.DeleteFunc(f.blocked, func(b string) bool { return b == id })
	if block {
		f.blocked = append(f.blocked, id)
	}
	return nil
}

// Sent returns the recorded SendMessage calls.
func (f *Fake) Sent() []Sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sent)
}

// Texts returns the text of every recorded SendMessage call.
func (f *Fake) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	texts := make([]string, len(f.sent))
	for i, s := range f.sent {
		texts[i] = s.Msg.Text
	}
	return texts
}

// ParticipantCalls returns the recorded UpdateParticipants calls.
func (f *Fake) ParticipantCalls() []ParticipantsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.participants)
}

// Subject returns the last subject set for groupID.
func (f *Fake) Subject(groupID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subjects[groupID]
}

// Description returns the last description set for groupID.
func (f *Fake) Description(groupID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.descriptions[groupID]
}

// SettingsCalls returns the recorded UpdateSettings calls.
func (f *Fake) SettingsCalls() []SettingsCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.settings)
}

// Left returns the groups left through LeaveGroup.
func (f *Fake) Left() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.left)
}

// MetadataCalls returns how many times GroupMetadata was called.
func (f *Fake) MetadataCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.metadataCalls
}

var _ client.Client = (*Fake)(nil)
