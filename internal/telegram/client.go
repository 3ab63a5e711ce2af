package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/message"
)

// Client is a client.Client backed by the Telegram Bot API. Telegram only exposes
// the administrators of a group, so metadata starts with those and other members
// are learned from their messages and join events.
type Client struct {
	bot    *bot.Bot
	logger *slog.Logger

	mu      sync.RWMutex
	me      *models.User
	handler client.EventHandler
}

// New creates a Client for token.
func New(token string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{logger: logger.With("component", "telegram_client")}

	b, err := NewTelegramBot(token, logger, bot.WithDefaultHandler(c.onUpdate))
	if err != nil {
		return nil, err
	}
	c.bot = b
	return c, nil
}

// Self implements client.Client.
func (c *Client) Self() client.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.me == nil {
		return client.Identity{}
	}
	return client.Identity{ID: userJID(c.me.ID)}
}

// Run polls for updates until ctx is cancelled.
func (c *Client) Run(ctx context.Context, handler client.EventHandler) error {
	handler(ctx, client.ConnectionUpdate{State: client.StateConnecting})

	me, err := c.bot.GetMe(ctx)
	if err != nil {
		handler(ctx, client.ConnectionUpdate{State: client.StateClosed, Err: err})
		return fmt.Errorf("failed to get bot info: %w", err)
	}

	c.mu.Lock()
	c.me = me
	c.handler = handler
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Retrieved bot info", "bot_id", me.ID, "bot_username", me.Username)
	handler(ctx, client.ConnectionUpdate{State: client.StateOpen})

	c.bot.Start(ctx)
	return nil
}

func (c *Client) onUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c.mu.RLock()
	handler, me := c.handler, c.me
	c.mu.RUnlock()

	if handler == nil || me == nil || update.Message == nil {
		return
	}
	msg := update.Message

	for _, evt := range serviceEvents(msg) {
		handler(ctx, evt)
	}
	if msg.From != nil && msg.Chat.ID < 0 && msg.From.ID != me.ID {
		handler(ctx, client.ParticipantsUpdate{
			GroupID:      chatJID(msg.Chat.ID),
			Participants: []groupcache.Participant{{ID: userJID(msg.From.ID)}},
			Action:       groupcache.ActionAdd,
		})
	}

	raw := convertMessage(msg, me.ID, me.Username)
	if raw.Message == nil {
		return
	}
	handler(ctx, client.MessagesUpsert{Kind: client.UpsertNotify, Messages: []message.Raw{raw}})
}

// SendMessage implements client.Client. Mentions are sent as plain text.
func (c *Client) SendMessage(ctx context.Context, chat string, msg client.Outgoing) (message.Key, error) {
	chatID, err := parseChatID(chat)
	if err != nil {
		return message.Key{}, err
	}

	if msg.Edit != nil {
		messageID, err := strconv.Atoi(msg.Edit.ID)
		if err != nil {
			return message.Key{}, fmt.Errorf("invalid message id %q: %w", msg.Edit.ID, err)
		}
		if _, err := c.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: messageID,
			Text:      msg.Text,
		}); err != nil {
			return message.Key{}, fmt.Errorf("failed to edit message: %w", err)
		}
		return *msg.Edit, nil
	}

	params := &bot.SendMessageParams{ChatID: chatID, Text: msg.Text}
	if msg.Quoted != nil {
		if replyTo, err := strconv.Atoi(msg.Quoted.ID); err == nil {
			params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
		}
	}

	sent, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return message.Key{}, fmt.Errorf("failed to send message: %w", err)
	}
	return message.Key{RemoteJID: chat, ID: strconv.Itoa(sent.ID), FromMe: true}, nil
}

// GroupMetadata implements client.Client. Participants are the group's administrators.
func (c *Client) GroupMetadata(ctx context.Context, groupID string) (*groupcache.GroupState, error) {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return nil, err
	}

	info, err := c.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	admins, err := c.bot.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: chatID})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat administrators: %w", err)
	}

	g := &groupcache.GroupState{
		ID:           groupID,
		Subject:      info.Title,
		Description:  info.Description,
		Participants: adminParticipants(admins),
		Settings:     permissionSettings(info.Permissions),
	}
	for _, p := range g.Participants {
		if p.Admin == groupcache.RankSuperAdmin {
			g.Owner = p.ID
		}
	}
	g.Size = len(g.Participants)
	return g, nil
}

// UpdateParticipants implements client.Client. Telegram bots cannot add members.
func (c *Client) UpdateParticipants(ctx context.Context, groupID string, ids []string, action groupcache.Action) error {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return err
	}

	for _, id := range ids {
		uid, err := parseUserID(id)
		if err != nil {
			return err
		}
		if err := c.updateParticipant(ctx, chatID, uid, action); err != nil {
			return fmt.Errorf("%s %s: %w", action, id, err)
		}
	}
	return nil
}

func (c *Client) updateParticipant(ctx context.Context, chatID, uid int64, action groupcache.Action) error {
	switch action {
	case groupcache.ActionRemove:
		if _, err := c.bot.BanChatMember(ctx, &bot.BanChatMemberParams{ChatID: chatID, UserID: uid}); err != nil {
			return err
		}
		// Unbanning right away turns the ban into a kick.
		_, err := c.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{ChatID: chatID, UserID: uid, OnlyIfBanned: true})
		return err
	case groupcache.ActionPromote:
		_, err := c.bot.PromoteChatMember(ctx, &bot.PromoteChatMemberParams{
			ChatID:             chatID,
			UserID:             uid,
			CanManageChat:      true,
			CanDeleteMessages:  true,
			CanRestrictMembers: true,
			CanInviteUsers:     true,
			CanPinMessages:     true,
		})
		return err
	case groupcache.ActionDemote:
		_, err := c.bot.PromoteChatMember(ctx, &bot.PromoteChatMemberParams{ChatID: chatID, UserID: uid})
		return err
	default:
		return client.ErrUnsupported
	}
}

// UpdateSubject implements client.Client.
func (c *Client) UpdateSubject(ctx context.Context, groupID, subject string) error {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return err
	}
	if _, err := c.bot.SetChatTitle(ctx, &bot.SetChatTitleParams{ChatID: chatID, Title: subject}); err != nil {
		return fmt.Errorf("failed to set chat title: %w", err)
	}
	return nil
}

// UpdateDescription implements client.Client.
func (c *Client) UpdateDescription(ctx context.Context, groupID, description string) error {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return err
	}
	if _, err := c.bot.SetChatDescription(ctx, &bot.SetChatDescriptionParams{ChatID: chatID, Description: description}); err != nil {
		return fmt.Errorf("failed to set chat description: %w", err)
	}
	return nil
}

// UpdateSettings implements client.Client through the chat's default member
// permissions: announce clears can_send_messages, restrict clears can_change_info and
// member add mode maps to can_invite_users.
func (c *Client) UpdateSettings(ctx context.Context, groupID string, patch groupcache.Patch) error {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return err
	}

	info, err := c.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return fmt.Errorf("failed to get chat: %w", err)
	}
	perms, err := patchPermissions(info.Permissions, patch)
	if err != nil {
		return err
	}
	if _, err := c.bot.SetChatPermissions(ctx, &bot.SetChatPermissionsParams{ChatID: chatID, Permissions: perms}); err != nil {
		return fmt.Errorf("failed to set chat permissions: %w", err)
	}
	return nil
}

// InviteLink implements client.Client. A chat without a primary link gets one.
func (c *Client) InviteLink(ctx context.Context, groupID string) (string, error) {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return "", err
	}

	info, err := c.bot.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		return "", fmt.Errorf("failed to get chat: %w", err)
	}
	if info.InviteLink != "" {
		return info.InviteLink, nil
	}
	return c.exportInviteLink(ctx, chatID)
}

// RevokeInvite implements client.Client. Exporting a new primary link revokes the
// previous one.
func (c *Client) RevokeInvite(ctx context.Context, groupID string) (string, error) {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return "", err
	}
	return c.exportInviteLink(ctx, chatID)
}

func (c *Client) exportInviteLink(ctx context.Context, chatID int64) (string, error) {
	link, err := c.bot.ExportChatInviteLink(ctx, &bot.ExportChatInviteLinkParams{ChatID: chatID})
	if err != nil {
		return "", fmt.Errorf("failed to export invite link: %w", err)
	}
	return link, nil
}

// LeaveGroup implements client.Client.
func (c *Client) LeaveGroup(ctx context.Context, groupID string) error {
	chatID, err := parseChatID(groupID)
	if err != nil {
		return err
	}
	if _, err := c.bot.LeaveChat(ctx, &bot.LeaveChatParams{ChatID: chatID}); err != nil {
		return fmt.Errorf("failed to leave chat: %w", err)
	}
	return nil
}

// BlockList implements client.Client. Bots have no block list.
func (c *Client) BlockList(context.Context) ([]string, error) {
	return nil, client.ErrUnsupported
}

// UpdateBlockStatus implements client.Client. Bots have no block list.
func (c *Client) UpdateBlockStatus(context.Context, string, bool) error {
	return client.ErrUnsupported
}

var _ client.Client = (*Client)(nil)
