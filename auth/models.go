package auth

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
)

// Capability is a permission checked by the Guard. Roles map to capability
// sets so new roles can be added without touching call sites.
type Capability string

const (
	CapManageDeals Capability = "deals:manage"
)

var roleCapabilities = map[Role]map[Capability]struct{}{
	RoleAdmin: {
		CapManageDeals: {},
	},
}

// Can reports whether the role holds the capability.
func (r Role) Can(c Capability) bool {
	caps, ok := roleCapabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// Claims is the verified content of a session token.
type Claims struct {
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginRequest contains the staff login credential.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResult bundles the issued token and its expiry.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}
