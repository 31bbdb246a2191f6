package models

// Kind is the resolved role of a principal.
type Kind string

const (
	KindUser         Kind = "user"
	KindOrganization Kind = "organization"
)

// Principal is an authenticated identity as carried by a verified token.
type Principal struct {
	UID              string `json:"uid"`
	Email            string `json:"email"`
	IsOrganization   bool   `json:"isOrganization"`
	Role             string `json:"role,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// ClaimsOrganization reports whether the token claims mark an organization.
func (p Principal) ClaimsOrganization() bool {
	return p.IsOrganization || p.Role == string(KindOrganization)
}

// Resolution is the outcome of role resolution for a principal.
type Resolution struct {
	Kind    Kind                 `json:"kind"`
	Profile *OrganizationProfile `json:"profile"`
	User    *User                `json:"user,omitempty"`
}

// OrganizationID returns the directory id of an organization principal, or "".
func (r Resolution) OrganizationID() string {
	if r.Kind != KindOrganization || r.Profile == nil {
		return ""
	}
	return r.Profile.OrganizationID
}

// Actor is a principal together with its resolved role, as seen by services.
type Actor struct {
	Principal
	Resolution
}

// ActsAsOrganization reports whether the actor resolved to an organization.
func (a Actor) ActsAsOrganization() bool {
	return a.Kind == KindOrganization
}
