package listener

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/roach88/uniflux/internal/state"
)

// FieldMapping maps one dotted path in the state tree to a field of a
// narrower per-consumer view. Source paths are rooted at "persistent"
// or "transient", e.g. "persistent.counter".
type FieldMapping struct {
	SourcePath  string
	TargetField string
}

// Projection is a declarative mapping table from the global state tree
// to a consumer-facing view. It replaces generated observer-forwarding
// boilerplate: a generic diff-and-forward routine evaluates the table
// and republishes only changed fields.
type Projection struct {
	Name     string
	Mappings []FieldMapping
}

// Validate checks structural invariants of the mapping table.
func (p Projection) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("projection: name is required")
	}
	if len(p.Mappings) == 0 {
		return fmt.Errorf("projection %q: at least one mapping is required", p.Name)
	}
	seen := make(map[string]bool, len(p.Mappings))
	for i, m := range p.Mappings {
		if m.SourcePath == "" {
			return fmt.Errorf("projection %q: mapping[%d]: source path is required", p.Name, i)
		}
		root := strings.SplitN(m.SourcePath, ".", 2)[0]
		if root != "persistent" && root != "transient" {
			return fmt.Errorf("projection %q: mapping[%d]: source path must be rooted at persistent or transient, got %q", p.Name, i, m.SourcePath)
		}
		if m.TargetField == "" {
			return fmt.Errorf("projection %q: mapping[%d]: target field is required", p.Name, i)
		}
		if seen[m.TargetField] {
			return fmt.Errorf("projection %q: duplicate target field %q", p.Name, m.TargetField)
		}
		seen[m.TargetField] = true
	}
	return nil
}

// View is one changed-fields delivery from a projection: target field
// name to new value.
type View map[string]any

// ProjectionListener evaluates a Projection against each published
// state and forwards only the fields whose values changed since the
// last delivery. The first delivery forwards every resolvable field.
type ProjectionListener struct {
	proj    Projection
	forward func(View)
	last    View
	zombie  atomic.Bool
}

var _ Listener = (*ProjectionListener)(nil)

// NewProjectionListener creates a diff-and-forward listener. The
// projection must validate.
func NewProjectionListener(proj Projection, forward func(View)) (*ProjectionListener, error) {
	if err := proj.Validate(); err != nil {
		return nil, err
	}
	return &ProjectionListener{
		proj:    proj,
		forward: forward,
		last:    View{},
	}, nil
}

// Zombie reports whether Close has been called.
func (p *ProjectionListener) Zombie() bool { return p.zombie.Load() }

// Close marks the listener dead for pruning.
func (p *ProjectionListener) Close() { p.zombie.Store(true) }

// UpdateState resolves every mapping against the new state and forwards
// the changed subset. Nothing is forwarded when no mapped field changed.
// Called only from the store loop, so last needs no lock.
func (p *ProjectionListener) UpdateState(h state.StateHolder) {
	tree, err := stateTree(h.State())
	if err != nil {
		return
	}

	changed := View{}
	for _, m := range p.proj.Mappings {
		value, ok := resolvePath(tree, m.SourcePath)
		if !ok {
			continue
		}
		prev, seen := p.last[m.TargetField]
		if seen && state.Equal(prev, value) {
			continue
		}
		changed[m.TargetField] = value
		p.last[m.TargetField] = value
	}

	if len(changed) > 0 {
		p.forward(changed)
	}
}

// stateTree converts an AppState into a generic map rooted at
// "persistent"/"transient" for path resolution.
func stateTree(st state.AppState) (map[string]any, error) {
	raw, err := json.Marshal(map[string]any{
		"persistent": st.Persistent,
		"transient":  st.Transient,
	})
	if err != nil {
		return nil, fmt.Errorf("projection: marshal state tree: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("projection: unmarshal state tree: %w", err)
	}
	return tree, nil
}

// resolvePath walks a dotted path through nested JSON objects.
func resolvePath(root map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = root
	for _, part := range parts {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
