package domain

// Scope identifies the caller of a request. It is resolved once from the
// session token and handed explicitly to every store call.
type Scope struct {
	UserID  string `json:"userId"`
	OrgID   string `json:"orgId"`
	OrgRole string `json:"orgRole,omitempty"`
	OrgName string `json:"orgName,omitempty"`
}

// RoleAdmin is the organization role allowed to see cross-team dashboards.
const RoleAdmin = "org:admin"

// IsAdmin reports whether the caller holds the admin organization role.
func (s Scope) IsAdmin() bool {
	return s.OrgRole == RoleAdmin
}
