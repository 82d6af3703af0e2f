package domain

import "strings"

// Role is a capability granted by the identity provider.
type Role string

const (
	RoleRider    Role = "rider"
	RoleDriver   Role = "driver"
	RoleOperator Role = "operator"
)

// Principal carries authenticated user info supplied by the identity provider.
type Principal struct {
	ID        string `json:"principalId"`
	Roles     []Role `json:"roles"`
	CompanyID string `json:"companyId,omitempty"`
}

// Has reports whether the principal was granted role.
func (p Principal) Has(role Role) bool {
	for _, r := range p.Roles {
		if Role(strings.ToLower(string(r))) == role {
			return true
		}
	}
	return false
}

// RequireRole returns AuthorizationError unless the principal holds one of roles.
func RequireRole(p Principal, roles ...Role) error {
	if strings.TrimSpace(p.ID) == "" {
		return AuthorizationError{}
	}
	for _, r := range roles {
		if p.Has(r) {
			return nil
		}
	}
	return AuthorizationError{}
}

// RequireOperatorOf checks the principal operates the given company.
func RequireOperatorOf(p Principal, companyID string) error {
	if err := RequireRole(p, RoleOperator); err != nil {
		return err
	}
	if companyID == "" || p.CompanyID != companyID {
		return AuthorizationError{}
	}
	return nil
}
