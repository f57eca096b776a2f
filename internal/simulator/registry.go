package simulator

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/banshee-data/bodysim/internal/fsutil"
)

// Built-in plugin names.
const (
	BasePlugin    = "Trajectory"
	ChannelPlugin = "Channel"
)

var (
	// ErrUnknownPlugin is returned for a plugin name absent from the registry.
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrUnknownVariable is returned when a selection names a variable the
	// plugin does not declare.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrInvalidDescriptor is returned for a malformed plugin descriptor.
	ErrInvalidDescriptor = errors.New("invalid plugin descriptor")
)

// UnitGroup is a set of variables sharing the same plot axes.
type UnitGroup struct {
	X         string   `toml:"x"`
	Y         string   `toml:"y"`
	Variables []string `toml:"variables"`
}

// Plugin describes one simulator.
type Plugin struct {
	Name        string      `toml:"name"`
	File        string      `toml:"file"`
	Interpreter string      `toml:"interpreter"`
	Groups      []UnitGroup `toml:"group"`
}

// VariableSpec is one selectable simulator output.
type VariableSpec struct {
	Plugin string
	Name   string
	XUnit  string
	YUnit  string
}

// Variables enumerates the plugin's outputs in descriptor order.
func (p Plugin) Variables() []VariableSpec {
	var out []VariableSpec
	for _, g := range p.Groups {
		for _, v := range g.Variables {
			out = append(out, VariableSpec{Plugin: p.Name, Name: v, XUnit: g.X, YUnit: g.Y})
		}
	}
	return out
}

// HasVariable reports whether the plugin declares name.
func (p Plugin) HasVariable(name string) bool {
	for _, g := range p.Groups {
		if slices.Contains(g.Variables, name) {
			return true
		}
	}
	return false
}

// Registry maps plugin names to their descriptions.
type Registry map[string]Plugin

// descriptor is the on-disk shape of plugins.toml.
type descriptor struct {
	Simulators []Plugin `toml:"simulator"`
}

// BuiltinPlugins returns the plugins every registry carries.
func BuiltinPlugins() []Plugin {
	return []Plugin{
		{
			Name: BasePlugin,
			Groups: []UnitGroup{
				{X: "frame", Y: "position", Variables: []string{"x", "y", "z"}},
				{X: "frame", Y: "orientation", Variables: []string{"w", "rx", "ry", "rz"}},
			},
		},
		{
			Name: ChannelPlugin,
			Groups: []UnitGroup{
				{X: "time (s)", Y: "path loss (dB)", Variables: []string{"path_loss"}},
			},
		},
	}
}

// NewRegistry returns a registry holding only the built-in plugins.
func NewRegistry() Registry {
	r := make(Registry)
	for _, p := range BuiltinPlugins() {
		r[p.Name] = p
	}
	return r
}

// ParseRegistry decodes a plugin descriptor and merges it over the
// built-ins. Unknown keys are rejected.
func ParseRegistry(data []byte) (Registry, error) {
	var d descriptor
	md, err := toml.Decode(string(data), &d)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDescriptor, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalidDescriptor, strings.Join(keys, ", "))
	}

	r := NewRegistry()
	seen := make(map[string]bool, len(d.Simulators))
	for i, p := range d.Simulators {
		if err := validatePlugin(p); err != nil {
			return nil, fmt.Errorf("%w: simulator %d: %w", ErrInvalidDescriptor, i, err)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%w: duplicate simulator %q", ErrInvalidDescriptor, p.Name)
		}
		if _, builtin := r[p.Name]; builtin {
			return nil, fmt.Errorf("%w: %q is built in", ErrInvalidDescriptor, p.Name)
		}
		seen[p.Name] = true
		r[p.Name] = p
	}
	return r, nil
}

func validatePlugin(p Plugin) error {
	if p.Name == "" {
		return errors.New("missing name")
	}
	if p.File == "" {
		return fmt.Errorf("%q: missing file", p.Name)
	}
	if filepath.IsAbs(p.File) || strings.Contains(filepath.ToSlash(p.File), "..") {
		return fmt.Errorf("%q: file must be relative to the plugin directory", p.Name)
	}
	vars := make(map[string]bool)
	for _, g := range p.Groups {
		for _, v := range g.Variables {
			if v == "" {
				return fmt.Errorf("%q: empty variable name", p.Name)
			}
			if vars[v] {
				return fmt.Errorf("%q: duplicate variable %q", p.Name, v)
			}
			vars[v] = true
		}
	}
	return nil
}

// LoadRegistry reads a plugin descriptor from fs.
func LoadRegistry(fs fsutil.FileSystem, path string) (Registry, error) {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load plugins: %w", err)
	}
	r, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Names returns the plugin names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named plugin.
func (r Registry) Lookup(name string) (Plugin, error) {
	p, ok := r[name]
	if !ok {
		return Plugin{}, fmt.Errorf("%q: %w", name, ErrUnknownPlugin)
	}
	return p, nil
}

// CheckVariables verifies every name is declared by plugin.
func (r Registry) CheckVariables(plugin string, names []string) error {
	p, err := r.Lookup(plugin)
	if err != nil {
		return err
	}
	for _, n := range names {
		if !p.HasVariable(n) {
			return fmt.Errorf("%s.%s: %w", plugin, n, ErrUnknownVariable)
		}
	}
	return nil
}
