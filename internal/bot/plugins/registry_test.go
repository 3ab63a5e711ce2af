package plugins_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/basebot/internal/bot/plugins"
	"github.com/edgard/basebot/internal/logger"
)

func noop(context.Context, *plugins.Request) error { return nil }

func plugin(name string, commands ...string) plugins.Plugin {
	return plugins.Plugin{Name: name, Commands: commands, Handler: noop}
}

func TestLookupFirstMatchWins(t *testing.T) {
	t.Parallel()

	r := plugins.NewRegistry(nil, logger.Discard())
	require.NoError(t, r.Load(
		plugin("ping", "ping", "p"),
		plugin("admins", "checkadmin", "cekadmin"),
		plugin("shadow", "p", "other"),
	))

	p, ok := r.Lookup("p")
	require.True(t, ok)
	assert.Equal(t, "ping", p.Name)

	p, ok = r.Lookup("cekadmin")
	require.True(t, ok)
	assert.Equal(t, "admins", p.Name)

	p, ok = r.Lookup("other")
	require.True(t, ok)
	assert.Equal(t, "shadow", p.Name)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)

	_, ok = r.Lookup("PING")
	assert.False(t, ok, "lookup is on the already lower-cased command")

	assert.Len(t, r.Plugins(), 3)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		plugin plugins.Plugin
	}{
		{name: "empty name", plugin: plugins.Plugin{Commands: []string{"x"}, Handler: noop}},
		{name: "no handler", plugin: plugins.Plugin{Name: "x", Commands: []string{"x"}}},
		{name: "no commands", plugin: plugins.Plugin{Name: "x", Handler: noop}},
		{name: "empty command", plugin: plugin("x", "")},
		{name: "whitespace", plugin: plugin("x", "two words")},
		{name: "upper case", plugin: plugin("x", "Ping")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, tc.plugin.Validate(), plugins.ErrInvalidPlugin)
		})
	}

	require.NoError(t, plugin("ok", "ok").Validate())
}

func TestReload(t *testing.T) {
	t.Parallel()

	generation := 0
	loader := func() []plugins.Plugin {
		generation++
		switch generation {
		case 1:
			return []plugins.Plugin{plugin("v1", "cmd")}
		case 2:
			return []plugins.Plugin{plugin("v2", "cmd"), plugin("new", "fresh")}
		default:
			return []plugins.Plugin{plugin("broken", "Bad Command")}
		}
	}

	r := plugins.NewRegistry(loader, nil)
	require.NoError(t, r.Reload())
	p, _ := r.Lookup("cmd")
	assert.Equal(t, "v1", p.Name)

	require.NoError(t, r.Reload())
	p, _ = r.Lookup("cmd")
	assert.Equal(t, "v2", p.Name)
	_, ok := r.Lookup("fresh")
	assert.True(t, ok)

	err := r.Reload()
	require.ErrorIs(t, err, plugins.ErrInvalidPlugin)
	p, ok = r.Lookup("cmd")
	require.True(t, ok, "a failed reload keeps the previous list")
	assert.Equal(t, "v2", p.Name)
}

func TestReloadWithoutLoader(t *testing.T) {
	t.Parallel()
	require.Error(t, plugins.NewRegistry(nil, nil).Reload())
}

func TestEmptyRegistry(t *testing.T) {
	t.Parallel()

	r := plugins.NewRegistry(nil, nil)
	_, ok := r.Lookup("ping")
	assert.False(t, ok)
	assert.Empty(t, r.Plugins())
}
