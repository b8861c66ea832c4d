package vision

import "fmt"

// ToolType describes one constructible tool.
type ToolType struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Category    string `json:"category"`

	New func() Tool `json:"-"`
}

// Registry maps type identifiers to constructors. The zero value is not
// usable; call NewRegistry.
type Registry struct {
	types map[string]ToolType
	order []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]ToolType)}
}

// Register adds a tool type. Registering an id twice replaces the earlier
// entry but keeps its position.
func (r *Registry) Register(t ToolType) {
	if t.ID == "" || t.New == nil {
		panic(fmt.Sprintf("vision: invalid tool type registration %q", t.ID))
	}
	if _, ok := r.types[t.ID]; !ok {
		r.order = append(r.order, t.ID)
	}
	r.types[t.ID] = t
}

// Create instantiates a tool. Unknown identifiers return false.
func (r *Registry) Create(id string) (Tool, bool) {
	t, ok := r.types[id]
	if !ok {
		return nil, false
	}
	return t.New(), true
}

// Lookup returns the registration for id.
func (r *Registry) Lookup(id string) (ToolType, bool) {
	t, ok := r.types[id]
	return t, ok
}

// DisplayName returns the human-readable name of a type, or the id itself
// when unknown.
func (r *Registry) DisplayName(id string) string {
	if t, ok := r.types[id]; ok {
		return t.DisplayName
	}
	return id
}

// Types lists registrations in registration order.
func (r *Registry) Types() []ToolType {
	out := make([]ToolType, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.types[id])
	}
	return out
}

// Categories groups type ids by category, preserving registration order
// within and across categories.
func (r *Registry) Categories() (names []string, byCategory map[string][]string) {
	byCategory = make(map[string][]string)
	for _, id := range r.order {
		c := r.types[id].Category
		if _, seen := byCategory[c]; !seen {
			names = append(names, c)
		}
		byCategory[c] = append(byCategory[c], id)
	}
	return names, byCategory
}
