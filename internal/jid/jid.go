// Package jid provides helpers for the "user@server" identifiers used to address
// chats and participants.
//
// Identifiers are kept as plain strings throughout the bot. A person can appear under
// two forms (a phone-number identifier and an opaque "lid" identifier) and both forms
// start with the same run of digits, so equality between people is decided on that
// numeric prefix rather than on the full string.
package jid

import (
	"strings"
)

// Known identifier servers.
const (
	UserServer      = "s.whatsapp.net"
	HiddenServer    = "lid"
	GroupServer     = "g.us"
	BroadcastServer = "broadcast"

	// StatusBroadcast is the pseudo-chat that carries status updates.
	StatusBroadcast = "status@broadcast"
)

// New joins a user part and a server into an identifier.
func New(user, server string) string {
	if server == "" {
		return user
	}
	return user + "@" + server
}

// Split returns the user and server parts of an identifier. Identifiers without a
// server yield an empty server.
func Split(id string) (user, server string) {
	user, server, _ = strings.Cut(id, "@")
	return user, server
}

// Server returns the server part of an identifier.
func Server(id string) string {
	_, server := Split(id)
	return server
}

// User returns the user part of an identifier with any device suffix removed.
func User(id string) string {
	user, _ := Split(id)
	user, _, _ = strings.Cut(user, ":")
	return user
}

// IsGroup reports whether the identifier names a group chat.
func IsGroup(id string) bool {
	return Server(id) == GroupServer
}

// IsBroadcast reports whether the identifier names a broadcast list or the status
// broadcast pseudo-chat.
func IsBroadcast(id string) bool {
	return Server(id) == BroadcastServer
}

// Normalize strips the device suffix ("123:7@s.whatsapp.net" → "123@s.whatsapp.net").
func Normalize(id string) string {
	if id == "" {
		return ""
	}
	return New(User(id), Server(id))
}

// Number returns the leading run of ASCII digits of an identifier, or "" when the
// identifier does not start with a digit.
func Number(id string) string {
	end := 0
	for end < len(id) && id[end] >= '0' && id[end] <= '9' {
		end++
	}
	return id[:end]
}

// SameUser reports whether two identifiers share a non-empty numeric prefix.
func SameUser(a, b string) bool {
	na := Number(a)
	return na != "" && na == Number(b)
}
