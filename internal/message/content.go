// Package message models inbound chat messages and turns them into command
// invocations.
//
// Message content is a tagged union: exactly one variant field of Content is expected
// to be populated. Some variants only wrap another Content (ephemeral and view-once
// messages, edits); those are unwrapped a bounded number of times.
package message

import "time"

// maxUnwrapDepth bounds every walk through nested wrapper variants.
const maxUnwrapDepth = 5

// Type names the populated variant of a Content.
type Type string

// Content variant types.
const (
	TypeNone          Type = ""
	TypeConversation  Type = "conversation"
	TypeExtendedText  Type = "extendedTextMessage"
	TypeImage         Type = "imageMessage"
	TypeVideo         Type = "videoMessage"
	TypeAudio         Type = "audioMessage"
	TypeDocument      Type = "documentMessage"
	TypeSticker       Type = "stickerMessage"
	TypeLottieSticker Type = "lottieStickerMessage"
	TypeButtons       Type = "buttonsMessage"
	TypeTemplate      Type = "templateMessage"
	TypeList          Type = "listMessage"
	TypeProtocol      Type = "protocolMessage"
	TypeEphemeral     Type = "ephemeralMessage"
	TypeViewOnce      Type = "viewOnceMessage"
)

// Key identifies a message within a chat.
type Key struct {
	RemoteJID      string
	RemoteJIDAlt   string
	Participant    string
	ParticipantAlt string
	ID             string
	FromMe         bool
}

// Raw is one inbound message as delivered by the client.
type Raw struct {
	Key       Key
	PushName  string
	Timestamp time.Time
	Message   *Content
}

// ContextInfo carries reply and mention metadata attached to a content variant.
type ContextInfo struct {
	StanzaID      string
	Participant   string
	RemoteJID     string
	QuotedMessage *Content
	MentionedJIDs []string
}

// ExtendedText is a text message with formatting or context.
type ExtendedText struct {
	Text    string
	Context *ContextInfo
}

// Media is any attachment variant (image, video, audio, document, sticker).
type Media struct {
	Caption  string
	Mimetype string
	FileName string
	ViewOnce bool
	Context  *ContextInfo
}

// Buttons is an interactive button message.
type Buttons struct {
	ContentText string
	Context     *ContextInfo
}

// HydratedTemplate is the rendered body of a template message.
type HydratedTemplate struct {
	HydratedContentText string
}

// Template is a templated message.
type Template struct {
	Hydrated *HydratedTemplate
	Context  *ContextInfo
}

// List is a list-picker message.
type List struct {
	Description string
	Context     *ContextInfo
}

// Protocol is a control message. Edits carry the replacement content.
type Protocol struct {
	Key           *Key
	EditedMessage *Content
}

// Wrapper wraps another content (ephemeral and view-once messages).
type Wrapper struct {
	Message *Content
}

// Content is the tagged union of message payloads.
type Content struct {
	Conversation  string
	ExtendedText  *ExtendedText
	Image         *Media
	Video         *Media
	Audio         *Media
	Document      *Media
	Sticker       *Media
	LottieSticker *Media
	Buttons       *Buttons
	Template      *Template
	List          *List
	Protocol      *Protocol
	Ephemeral     *Wrapper
	ViewOnce      *Wrapper
}

// Type returns the first populated variant in declaration order.
func (c *Content) Type() Type {
	switch {
	case c == nil:
		return TypeNone
	case c.Conversation != "":
		return TypeConversation
	case c.ExtendedText != nil:
		return TypeExtendedText
	case c.Image != nil:
		return TypeImage
	case c.Video != nil:
		return TypeVideo
	case c.Audio != nil:
		return TypeAudio
	case c.Document != nil:
		return TypeDocument
	case c.Sticker != nil:
		return TypeSticker
	case c.LottieSticker != nil:
		return TypeLottieSticker
	case c.Buttons != nil:
		return TypeButtons
	case c.Template != nil:
		return TypeTemplate
	case c.List != nil:
		return TypeList
	case c.Protocol != nil:
		return TypeProtocol
	case c.Ephemeral != nil:
		return TypeEphemeral
	case c.ViewOnce != nil:
		return TypeViewOnce
	}
	return TypeNone
}

// Unwrap returns the content inside a wrapper variant, or nil when c is not a wrapper.
func (c *Content) Unwrap() *Content {
	if c == nil {
		return nil
	}
	switch {
	case c.Ephemeral != nil:
		return c.Ephemeral.Message
	case c.ViewOnce != nil:
		return c.ViewOnce.Message
	}
	return nil
}

// Normalize strips wrapper variants until a non-wrapper is reached.
func Normalize(c *Content) *Content {
	for range maxUnwrapDepth {
		inner := c.Unwrap()
		if inner == nil {
			return c
		}
		c = inner
	}
	return c
}

// ContextInfo returns the context attached to the populated variant, if any.
func (c *Content) ContextInfo() *ContextInfo {
	switch c.Type() {
	case TypeExtendedText:
		return c.ExtendedText.Context
	case TypeImage:
		return c.Image.Context
	case TypeVideo:
		return c.Video.Context
	case TypeAudio:
		return c.Audio.Context
	case TypeDocument:
		return c.Document.Context
	case TypeSticker:
		return c.Sticker.Context
	case TypeLottieSticker:
		return c.LottieSticker.Context
	case TypeButtons:
		return c.Buttons.Context
	case TypeTemplate:
		return c.Template.Context
	case TypeList:
		return c.List.Context
	}
	return nil
}

// media returns the populated media variant, if any.
func (c *Content) media() *Media {
	switch c.Type() {
	case TypeImage:
		return c.Image
	case TypeVideo:
		return c.Video
	case TypeAudio:
		return c.Audio
	case TypeDocument:
		return c.Document
	case TypeSticker:
		return c.Sticker
	case TypeLottieSticker:
		return c.LottieSticker
	}
	return nil
}

// Text extracts the display text of a content tree. The first non-empty source in a
// fixed precedence order wins; edits and ephemeral wrappers are searched last.
func Text(c *Content) string {
	return extractText(c, 0)
}

func extractText(c *Content, depth int) string {
	if c == nil || depth > maxUnwrapDepth {
		return ""
	}
	if c.ExtendedText != nil && c.ExtendedText.Text != "" {
		return c.ExtendedText.Text
	}
	if c.Conversation != "" {
		return c.Conversation
	}
	for _, m := range []*Media{c.Image, c.Video, c.Document} {
		if m != nil && m.Caption != "" {
			return m.Caption
		}
	}
	if c.Buttons != nil && c.Buttons.ContentText != "" {
		return c.Buttons.ContentText
	}
	if c.Template != nil && c.Template.Hydrated != nil && c.Template.Hydrated.HydratedContentText != "" {
		return c.Template.Hydrated.HydratedContentText
	}
	if c.List != nil && c.List.Description != "" {
		return c.List.Description
	}
	if c.Protocol != nil && c.Protocol.EditedMessage != nil {
		if text := extractText(c.Protocol.EditedMessage, depth+1); text != "" {
			return text
		}
	}
	if c.Ephemeral != nil && c.Ephemeral.Message != nil {
		if text := extractText(c.Ephemeral.Message, depth+1); text != "" {
			return text
		}
	}
	return ""
}
