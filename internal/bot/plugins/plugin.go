// Package plugins defines command plugins and the registry the dispatcher looks them
// up in.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/edgard/basebot/internal/client"
	"github.com/edgard/basebot/internal/groupcache"
	"github.com/edgard/basebot/internal/message"
)

// ErrInvalidPlugin is returned when a plugin fails validation.
var ErrInvalidPlugin = errors.New("invalid plugin")

// HandlerFunc runs a command.
type HandlerFunc func(ctx context.Context, req *Request) error

// Plugin is one command handler with its permission requirements.
type Plugin struct {
	Name        string
	Commands    []string
	Description string
	OwnerOnly   bool
	GroupOnly   bool
	AdminOnly   bool
	Handler     HandlerFunc
}

// Validate checks that the plugin can be registered. Commands must be non-empty,
// lower-case and free of whitespace since invocations are matched lower-cased.
func (p Plugin) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidPlugin)
	}
	if p.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidPlugin, p.Name)
	}
	if len(p.Commands) == 0 {
		return fmt.Errorf("%w: %s has no commands", ErrInvalidPlugin, p.Name)
	}
	for _, cmd := range p.Commands {
		switch {
		case cmd == "":
			return fmt.Errorf("%w: %s has an empty command", ErrInvalidPlugin, p.Name)
		case strings.IndexFunc(cmd, unicode.IsSpace) >= 0:
			return fmt.Errorf("%w: %s command %q contains whitespace", ErrInvalidPlugin, p.Name, cmd)
		case strings.ToLower(cmd) != cmd:
			return fmt.Errorf("%w: %s command %q is not lower-case", ErrInvalidPlugin, p.Name, cmd)
		}
	}
	return nil
}

// Request is the per-invocation context handed to a plugin.
type Request struct {
	Invocation *message.Invocation
	Client     client.Client
	Groups     *groupcache.Cache
	Registry   *Registry
	Logger     *slog.Logger
	Received   time.Time
}

// Reply sends text to the invocation's chat quoting the invocation.
func (r *Request) Reply(ctx context.Context, text string) (message.Key, error) {
	key := r.Invocation.Key
	return r.Client.SendMessage(ctx, r.Invocation.Chat, client.Outgoing{Text: text, Quoted: &key})
}

// ReplyMentions is Reply with mentioned identifiers.
func (r *Request) ReplyMentions(ctx context.Context, text string, mentions []string) (message.Key, error) {
	key := r.Invocation.Key
	return r.Client.SendMessage(ctx, r.Invocation.Chat, client.Outgoing{Text: text, Quoted: &key, Mentions: mentions})
}

// Send sends text to the invocation's chat without quoting.
func (r *Request) Send(ctx context.Context, text string) (message.Key, error) {
	return r.Client.SendMessage(ctx, r.Invocation.Chat, client.Outgoing{Text: text})
}

// Edit replaces the text of a message sent earlier.
func (r *Request) Edit(ctx context.Context, key message.Key, text string) error {
	_, err := r.Client.SendMessage(ctx, key.RemoteJID, client.Outgoing{Text: text, Edit: &key})
	return err
}
