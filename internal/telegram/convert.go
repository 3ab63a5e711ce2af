package telegram

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/jid"
	"github.com/edgard/basebot/internal/message"
)

var errBadID = errors.New("not a telegram identifier")

func userJID(id int64) string {
	return jid.New(strconv.FormatInt(id, 10), jid.UserServer)
}

// chatJID maps a chat id to an identifier. Group and channel ids are negative.
func chatJID(id int64) string {
	if id < 0 {
		return jid.New(strconv.FormatInt(-id, 10), jid.GroupServer)
	}
	return userJID(id)
}

// parseChatID is the inverse of chatJID.
func parseChatID(id string) (int64, error) {
	user, server := jid.Split(id)
	n, err := strconv.ParseInt(jid.Number(user), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", errBadID, id)
	}
	if server == jid.GroupServer {
		return -n, nil
	}
	return n, nil
}

func parseUserID(id string) (int64, error) {
	if jid.IsGroup(id) {
		return 0, fmt.Errorf("%w: %q is a group", errBadID, id)
	}
	return parseChatID(id)
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// stripBotSuffix rewrites "/cmd@botname args" to "/cmd args".
func stripBotSuffix(text, username string) string {
	if username == "" {
		return text
	}
	end := strings.IndexFunc(text, func(r rune) bool { return r == ' ' || r == '\n' || r == '\t' })
	if end < 0 {
		end = len(text)
	}
	suffix := "@" + username
	head := text[:end]
	if len(head) > len(suffix) && strings.EqualFold(head[len(head)-len(suffix):], suffix) {
		return head[:len(head)-len(suffix)] + text[end:]
	}
	return text
}

// convertMessage builds the raw message for msg. selfID and username identify the
// connected bot.
func convertMessage(msg *models.Message, selfID int64, username string) message.Raw {
	chat := chatJID(msg.Chat.ID)
	raw := message.Raw{
		Key: message.Key{
			RemoteJID: chat,
			ID:        strconv.Itoa(msg.ID),
		},
		PushName:  displayName(msg.From),
		Timestamp: time.Unix(int64(msg.Date), 0),
	}
	if msg.From != nil {
		raw.Key.FromMe = msg.From.ID == selfID
		if jid.IsGroup(chat) {
			raw.Key.Participant = userJID(msg.From.ID)
		}
	}
	raw.Message = convertContent(msg, username)
	return raw
}

func convertContent(msg *models.Message, username string) *message.Content {
	ci := contextInfo(msg, username)

	switch {
	case len(msg.Photo) > 0:
		return &message.Content{Image: &message.Media{Caption: msg.Caption, Context: ci}}
	case msg.Video != nil:
		return &message.Content{Video: &message.Media{Caption: msg.Caption, Context: ci}}
	case msg.Audio != nil || msg.Voice != nil:
		return &message.Content{Audio: &message.Media{Caption: msg.Caption, Context: ci}}
	case msg.Sticker != nil:
		return &message.Content{Sticker: &message.Media{Context: ci}}
	case msg.Document != nil:
		return &message.Content{Document: &message.Media{
			Caption:  msg.Caption,
			FileName: msg.Document.FileName,
			Context:  ci,
		}}
	}

	text := stripBotSuffix(msg.Text, username)
	if ci == nil {
		if text == "" {
			return nil
		}
		return &message.Content{Conversation: text}
	}
	return &message.Content{ExtendedText: &message.ExtendedText{Text: text, Context: ci}}
}

// contextInfo carries reply and text-mention metadata, or nil when there is none.
func contextInfo(msg *models.Message, username string) *message.ContextInfo {
	var ci message.ContextInfo

	for _, e := range slices.Concat(msg.Entities, msg.CaptionEntities) {
		if e.Type == models.MessageEntityTypeTextMention && e.User != nil {
			ci.MentionedJIDs = append(ci.MentionedJIDs, userJID(e.User.ID))
		}
	}

	if r := msg.ReplyToMessage; r != nil {
		ci.StanzaID = strconv.Itoa(r.ID)
		ci.RemoteJID = chatJID(r.Chat.ID)
		if r.From != nil {
			ci.Participant = userJID(r.From.ID)
		}
		ci.QuotedMessage = convertContent(&models.Message{
			Text:     r.Text,
			Caption:  r.Caption,
			Photo:    r.Photo,
			Video:    r.Video,
			Audio:    r.Audio,
			Voice:    r.Voice,
			Sticker:  r.Sticker,
			Document: r.Document,
		}, username)
		if ci.QuotedMessage == nil {
			ci.QuotedMessage = &message.Content{}
		}
	}

	if ci.StanzaID == "" && len(ci.MentionedJIDs) == 0 {
		return nil
	}
	return &ci
}

// serviceEvents derives membership and subject events from service messages.
func serviceEvents(msg *models.Message) []any {
	if msg.Chat.ID >= 0 {
		return nil
	}
	group := chatJID(msg.Chat.ID)

	var events []any
	if len(msg.NewChatMembers) > 0 {
		ps := make([]groupcache.Participant, len(msg.NewChatMembers))
		for i, u := range msg.NewChatMembers {
			ps[i] = groupcache.Participant{ID: userJID(u.ID)}
		}
		events = append(events, client.ParticipantsUpdate{GroupID: group, Participants: ps, Action: groupcache.ActionAdd})
	}
	if u := msg.LeftChatMember; u != nil {
		events = append(events, client.ParticipantsUpdate{
			GroupID:      group,
			Participants: []groupcache.Participant{{ID: userJID(u.ID)}},
			Action:       groupcache.ActionRemove,
		})
	}
	if msg.NewChatTitle != "" {
		title := msg.NewChatTitle
		events = append(events, client.GroupsUpdate{Updates: []client.GroupUpdate{
			{ID: group, Patch: groupcache.Patch{Subject: &title}},
		}})
	}
	return events
}

// userID accepts both forms the chat member variants use for their user.
func userID[U models.User | *models.User](u U) int64 {
	switch v := any(u).(type) {
	case models.User:
		return v.ID
	case *models.User:
		if v != nil {
			return v.ID
		}
	}
	return 0
}

// adminParticipants converts a chat administrator list.
func adminParticipants(members []models.ChatMember) []groupcache.Participant {
	out := make([]groupcache.Participant, 0, len(members))
	for _, m := range members {
		switch {
		case m.Owner != nil:
			if id := userID(m.Owner.User); id != 0 {
				out = append(out, groupcache.Participant{ID: userJID(id), Admin: groupcache.RankSuperAdmin})
			}
		case m.Administrator != nil:
			if id := userID(m.Administrator.User); id != 0 {
				out = append(out, groupcache.Participant{ID: userJID(id), Admin: groupcache.RankAdmin})
			}
		}
	}
	return out
}

// permissionSettings maps the default member permissions of a chat to group switches.
// A chat without permissions allows everything.
func permissionSettings(p *models.ChatPermissions) groupcache.Settings {
	if p == nil {
		return groupcache.Settings{MemberAddMode: true}
	}
	return groupcache.Settings{
		Announce:      !p.CanSendMessages,
		Restrict:      !p.CanChangeInfo,
		MemberAddMode: p.CanInviteUsers,
	}
}

// patchPermissions returns p with the switches of patch applied. Join approval and
// the ephemeral timer have no Bot API equivalent.
func patchPermissions(p *models.ChatPermissions, patch groupcache.Patch) (models.ChatPermissions, error) {
	if patch.JoinApprovalMode != nil || patch.EphemeralDuration != nil {
		return models.ChatPermissions{}, client.ErrUnsupported
	}

	out := models.ChatPermissions{CanSendMessages: true, CanChangeInfo: true, CanInviteUsers: true}
	if p != nil {
		out = *p
	}
	if patch.Announce != nil {
		out.CanSendMessages = !*patch.Announce
	}
	if patch.Restrict != nil {
		out.CanChangeInfo = !*patch.Restrict
	}
	if patch.MemberAddMode != nil {
		out.CanInviteUsers = *patch.MemberAddMode
	}
	return out, nil
}
