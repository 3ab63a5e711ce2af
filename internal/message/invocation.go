package message

import (
	"strings"
	"unicode"

	"github.com/edgard/basebot/internal/jid"
)

// MediaKind flags which attachment a content carries.
type MediaKind struct {
	Image   bool
	Video   bool
	Audio   bool
	Sticker bool
}

// Any reports whether any media flag is set.
func (m MediaKind) Any() bool {
	return m.Image || m.Video || m.Audio || m.Sticker
}

// Quoted describes the message an invocation replies to.
type Quoted struct {
	ID       string
	Chat     string
	Sender   string
	Type     Type
	Text     string
	Media    MediaKind
	ViewOnce bool
	Content  *Content
}

// Invocation is the structured form of one inbound message. It is built once by the
// Normalizer and must be treated as read-only afterwards.
type Invocation struct {
	Key       Key
	ID        string
	Chat      string
	Sender    string
	SenderAlt string
	PushName  string
	IsGroup   bool
	FromMe    bool

	Type  Type
	Text  string
	Media MediaKind

	Prefix  string
	Command string
	Args    string
	RawArgs string
	ArgList []string

	Mentions []string
	Quoted   *Quoted
}

// IsCommand reports whether a prefix matched and a command token was found.
func (inv *Invocation) IsCommand() bool {
	return inv.Prefix != "" && inv.Command != ""
}

// Normalizer turns raw messages into invocations using a fixed prefix list.
type Normalizer struct {
	prefixes []string
}

// NewNormalizer creates a Normalizer. Prefixes are matched in order; empty entries are
// ignored.
func NewNormalizer(prefixes []string) *Normalizer {
	clean := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			clean = append(clean, p)
		}
	}
	return &Normalizer{prefixes: clean}
}

// Prefixes returns the active prefix list.
func (n *Normalizer) Prefixes() []string {
	return append([]string(nil), n.prefixes...)
}

// Normalize builds the invocation for raw. It never fails: missing content yields an
// invocation with empty derived fields.
func (n *Normalizer) Normalize(raw *Raw) *Invocation {
	if raw == nil {
		return &Invocation{}
	}
	inv := &Invocation{
		Key:      raw.Key,
		ID:       raw.Key.ID,
		Chat:     raw.Key.RemoteJID,
		PushName: raw.PushName,
		IsGroup:  jid.IsGroup(raw.Key.RemoteJID),
		FromMe:   raw.Key.FromMe,
	}
	if inv.IsGroup {
		inv.Sender = raw.Key.Participant
		inv.SenderAlt = raw.Key.ParticipantAlt
	} else {
		inv.Sender = raw.Key.RemoteJID
		inv.SenderAlt = raw.Key.RemoteJIDAlt
	}

	content := Normalize(raw.Message)
	inv.Type = content.Type()
	inv.Media = mediaKind(inv.Type)
	inv.Text = Text(content)

	if ci := content.ContextInfo(); ci != nil {
		inv.Mentions = append([]string(nil), ci.MentionedJIDs...)
		if ci.StanzaID != "" && ci.QuotedMessage != nil {
			inv.Quoted = newQuoted(ci, inv.Chat)
		}
	}

	n.parse(inv)
	return inv
}

// parse fills prefix, command and argument fields from inv.Text.
func (n *Normalizer) parse(inv *Invocation) {
	fields := strings.Fields(inv.Text)
	if len(fields) == 0 {
		return
	}

	first := strings.ToLower(fields[0])
	for _, p := range n.prefixes {
		if strings.HasPrefix(first, p) {
			inv.Prefix = p
			break
		}
	}
	if inv.Prefix == "" {
		return
	}

	// consumed counts the tokens that make up prefix + command.
	consumed := 1
	if rest := first[len(inv.Prefix):]; rest != "" {
		inv.Command = rest
	} else if len(fields) > 1 {
		inv.Command = strings.ToLower(fields[1])
		consumed = 2
	}
	if inv.Command == "" {
		return
	}

	inv.ArgList = fields[consumed:]
	inv.Args = strings.Join(inv.ArgList, " ")
	inv.RawArgs = strings.TrimSpace(afterCommand(inv.Text, inv.Command, consumed))
}

// afterCommand returns the text following the last case-insensitive occurrence of
// command. When command cannot be located byte-for-byte it skips the first n tokens
// instead.
func afterCommand(text, command string, n int) string {
	lower := strings.ToLower(text)
	if len(lower) == len(text) {
		if i := strings.LastIndex(lower, command); i >= 0 {
			return text[i+len(command):]
		}
	}
	return skipTokens(text, n)
}

// skipTokens returns s after its first n whitespace-delimited tokens, keeping the
// remaining text byte-for-byte.
func skipTokens(s string, n int) string {
	for range n {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		s = s[end:]
	}
	return s
}

func newQuoted(ci *ContextInfo, chat string) *Quoted {
	content := Normalize(ci.QuotedMessage)
	q := &Quoted{
		ID:      ci.StanzaID,
		Chat:    ci.RemoteJID,
		Sender:  ci.Participant,
		Type:    content.Type(),
		Text:    Text(content),
		Content: content,
	}
	if q.Chat == "" {
		q.Chat = chat
	}
	q.Media = mediaKind(q.Type)
	if m := content.media(); m != nil && q.Media.Any() {
		q.ViewOnce = m.ViewOnce
	}
	return q
}

func mediaKind(t Type) MediaKind {
	return MediaKind{
		Image:   t == TypeImage,
		Video:   t == TypeVideo,
		Audio:   t == TypeAudio,
		Sticker: t == TypeSticker || t == TypeLottieSticker,
	}
}
