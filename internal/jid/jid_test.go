package jid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/basebot/internal/jid"
)

func TestNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   string
		want string
	}{
		{name: "phone form", id: "6281234@s.whatsapp.net", want: "6281234"},
		{name: "lid form with device", id: "99887:12@lid", want: "99887"},
		{name: "bare number", id: "12345", want: "12345"},
		{name: "no leading digits", id: "status@broadcast", want: ""},
		{name: "empty", id: "", want: ""},
		{name: "negative telegram chat", id: "-100123@g.us", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, jid.Number(tc.id))
		})
	}
}

func TestClassification(t *testing.T) {
	t.Parallel()

	assert.True(t, jid.IsGroup("120363@g.us"))
	assert.False(t, jid.IsGroup("628123@s.whatsapp.net"))
	assert.True(t, jid.IsBroadcast(jid.StatusBroadcast))
	assert.True(t, jid.IsBroadcast("1234@broadcast"))
	assert.False(t, jid.IsBroadcast("120363@g.us"))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "628123@s.whatsapp.net", jid.Normalize("628123:14@s.whatsapp.net"))
	assert.Equal(t, "555@lid", jid.Normalize("555@lid"))
	assert.Equal(t, "", jid.Normalize(""))
	assert.Equal(t, "628123", jid.User("628123:3@s.whatsapp.net"))
}

func TestSameUser(t *testing.T) {
	t.Parallel()

	assert.True(t, jid.SameUser("628123@s.whatsapp.net", "628123:2@s.whatsapp.net"))
	assert.True(t, jid.SameUser("628123", "628123@lid"))
	assert.False(t, jid.SameUser("628123@s.whatsapp.net", "628124@s.whatsapp.net"))
	assert.False(t, jid.SameUser("abc@lid", "abc@lid"))
}
