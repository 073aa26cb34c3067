package domain

import "time"

// Claims is the identity carried by a verified token. Roles are a snapshot
// taken when the token was minted.
type Claims struct {
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HasRoles reports whether the claim roles are a superset of required.
// An empty requirement is always satisfied.
func (c *Claims) HasRoles(required ...string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(c.Roles))
	for _, r := range c.Roles {
		have[r] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

// HasAnyRole reports whether at least one of roles is present.
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, r := range c.Roles {
			if r == want {
				return true
			}
		}
	}
	return false
}
