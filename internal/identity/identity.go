package identity

import "strings"

// Identity is the authenticated operator record returned by the academy
// API and mirrored into durable storage. Permissions are opaque tokens
// owned by the upstream API; they are replaced wholesale with the
// identity and never mutated here.
type Identity struct {
	ID                 int64    `json:"id"`
	FirstName          string   `json:"firstName"`
	LastName           string   `json:"lastName"`
	Email              string   `json:"email"`
	Permissions        []string `json:"permissions,omitempty"`
	MustChangePassword bool     `json:"mustChangePassword"`
}

func (i *Identity) HasPermission(permission string) bool {
	if i == nil {
		return false
	}
	for _, p := range i.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (i *Identity) HasAnyPermission(permissions ...string) bool {
	if i == nil {
		return false
	}
	for _, p := range i.Permissions {
		for _, required := range permissions {
			if p == required {
				return true
			}
		}
	}
	return false
}

func (i *Identity) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(i.FirstName) + " " + strings.TrimSpace(i.LastName))
}

// Incomplete reports whether a persisted record is too damaged to adopt
// during rehydration.
func (i *Identity) Incomplete() bool {
	return i == nil || i.ID == 0
}
