package plugins

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
)

// Loader produces the plugin set. Reload calls it again.
type Loader func() []Plugin

type snapshot struct {
	plugins []Plugin
	// index maps a command to the first plugin declaring it.
	index map[string]int
}

// Registry holds the active plugin list. Lookups are lock-free; Load and Reload swap
// the list atomically so in-flight dispatches keep the list they started with.
type Registry struct {
	current atomic.Pointer[snapshot]
	loader  Loader
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. loader may be nil if Reload is never used.
func NewRegistry(loader Loader, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	r := &Registry{loader: loader, logger: logger.With("component", "plugin_registry")}
	r.current.Store(&snapshot{index: map[string]int{}})
	return r
}

// Load validates plugins and replaces the active list. On error the active list is
// left untouched.
func (r *Registry) Load(plugins ...Plugin) error {
	for _, p := range plugins {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	next := &snapshot{plugins: slices.Clone(plugins), index: make(map[string]int)}
	for i, p := range next.plugins {
		for _, cmd := range p.Commands {
			if first, taken := next.index[cmd]; taken {
				if first == i {
					continue
				}
				r.logger.Warn("Command shadowed by earlier plugin",
					"command", cmd, "plugin", p.Name, "shadowed_by", next.plugins[first].Name)
				continue
			}
			next.index[cmd] = i
		}
	}

	r.current.Store(next)
	r.logger.Info("Loaded plugins", "count", len(next.plugins), "commands", len(next.index))
	return nil
}

// Reload rebuilds the list from the loader.
func (r *Registry) Reload() error {
	if r.loader == nil {
		return errors.New("plugin registry has no loader")
	}
	return r.Load(r.loader()...)
}

// Lookup returns the first plugin whose command set contains command.
func (r *Registry) Lookup(command string) (Plugin, bool) {
	s := r.current.Load()
	i, ok := s.index[command]
	if !ok {
		return Plugin{}, false
	}
	return s.plugins[i], true
}

// Plugins returns the active plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	return slices.Clone(r.current.Load().plugins)
}
