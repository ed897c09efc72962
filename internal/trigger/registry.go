package trigger

import (
	"fmt"
	"sort"
)

// Registry resolves Crowdin trigger names to plugins. It is built once at
// startup and only read afterwards.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry indexes each plugin under its trigger and its cancelling
// trigger. Two plugins claiming the same name is an error.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{plugins: make(map[string]Plugin, 2*len(plugins))}
	for _, p := range plugins {
		if p.Trigger() == "" {
			return nil, fmt.Errorf("trigger plugin %T has no trigger name", p)
		}
		for _, name := range []string{p.Trigger(), p.CancellingTrigger()} {
			if name == "" {
				continue
			}
			if prev, ok := r.plugins[name]; ok {
				return nil, fmt.Errorf("trigger %q registered by both %T and %T", name, prev, p)
			}
			r.plugins[name] = p
		}
	}
	return r, nil
}

// Resolve returns the plugin handling trigger.
func (r *Registry) Resolve(trigger string) (Plugin, bool) {
	p, ok := r.plugins[trigger]
	return p, ok
}

// Triggers returns the registered trigger names, sorted.
func (r *Registry) Triggers() []string {
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultPlugins returns the built-in plugins.
func DefaultPlugins() []Plugin {
	return []Plugin{
		NewStringCommentPlugin(),
		NewSuggestionAddedPlugin(),
		NewSuggestionApprovedPlugin(),
	}
}
