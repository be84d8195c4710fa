package identity

// PermissionSource answers permission membership questions. The session
// store satisfies this, as does *Identity itself.
type PermissionSource interface {
	HasPermission(permission string) bool
}

// Entry is a permission-gated UI descriptor: a navigation item or an
// action the portal may offer. An empty Permission means visible to any
// authenticated operator.
type Entry struct {
	Label      string `json:"label"`
	Path       string `json:"path"`
	Permission string `json:"permission,omitempty"`
}

// Allow is the declarative gate: true when the entry may be shown. It
// has no side effects and is safe to call in render loops.
func Allow(src PermissionSource, permission string) bool {
	if permission == "" {
		return true
	}
	if src == nil {
		return false
	}
	return src.HasPermission(permission)
}

// FilterEntries returns the entries the source is allowed to see,
// preserving order. Blocked entries are dropped outright, never
// replaced with a placeholder.
func FilterEntries(src PermissionSource, entries []Entry) []Entry {
	allowed := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if Allow(src, e.Permission) {
			allowed = append(allowed, e)
		}
	}
	return allowed
}
