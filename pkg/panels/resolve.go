package panels

import "sort"

// Config is the loaded panel tree.
type Config struct {
	// Panels are the configured panels, in file order.
	Panels []*Panel

	byID map[string]*Panel
}

// PanelByID returns the panel with the given stable identifier.
func (c *Config) PanelByID(id string) (*Panel, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// ActionByID returns the action with the given stable identifier within a
// panel, skipping empty slots.
func (p *Panel) ActionByID(id string) (*Action, bool) {
	for _, a := range p.Actions {
		if a != nil && a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// ActionRef is an action together with its owning panel.
type ActionRef struct {
	Panel  *Panel
	Action *Action
}

// ListActions flattens every panel's non-empty action slots into
// (action, owning panel) pairs, in configuration order.
func (c *Config) ListActions() []ActionRef {
	var refs []ActionRef
	for _, p := range c.Panels {
		for _, a := range p.Actions {
			if a == nil {
				continue
			}
			refs = append(refs, ActionRef{Panel: p, Action: a})
		}
	}
	return refs
}

// Resolve looks up an overridable key with the precedence: server mapping
// override, then action value, then panel value. The second return is false
// when the key is unconfigured at every level; callers treat that as "use
// the system default" or reject, depending on the key.
func Resolve(key Key, panel *Panel, action *Action, serverIdentifier string) (any, bool) {
	if serverIdentifier != "" && panel.ServerMapping != nil {
		if o, ok := panel.ServerMapping[serverIdentifier]; ok {
			if v, ok := o.value(key); ok {
				return v, true
			}
		}
	}
	if action != nil {
		if v, ok := action.Overrides.value(key); ok {
			return v, true
		}
	}
	if v, ok := panel.Overrides.value(key); ok {
		return v, true
	}
	return nil, false
}

// ResolveString resolves a string-valued key, returning "" when unset.
func ResolveString(key Key, panel *Panel, action *Action, serverIdentifier string) string {
	v, ok := Resolve(key, panel, action, serverIdentifier)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ResolveBool resolves a bool-valued key, returning false when unset.
func ResolveBool(key Key, panel *Panel, action *Action, serverIdentifier string) bool {
	v, ok := Resolve(key, panel, action, serverIdentifier)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ResolveRoles resolves the role permissions key, returning nil when unset.
func ResolveRoles(panel *Panel, action *Action, serverIdentifier string) []string {
	v, ok := Resolve(KeyRolePermissions, panel, action, serverIdentifier)
	if !ok {
		return nil
	}
	roles, _ := v.([]string)
	return roles
}

// ResolveJoinStr resolves the index join string, defaulting to "-".
func ResolveJoinStr(panel *Panel, action *Action, serverIdentifier string) string {
	if s := ResolveString(KeyIndexJoinStr, panel, action, serverIdentifier); s != "" {
		return s
	}
	return "-"
}

func sortStrings(s []string) {
	sort.Strings(s)
}
