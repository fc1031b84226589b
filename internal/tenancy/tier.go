// Package tenancy implements the organization tier model: device quotas
// and which enrollment flows are legal for a given tier.
package tenancy

// Tier is the billing/capability class of an organization.
type Tier string

const (
	PersonalFree Tier = "personal_free"
	PersonalPro  Tier = "personal_pro"
	Organization Tier = "organization"
)

// ParseTier maps a stored tier string to a Tier, accepting "enterprise"
// as a read-time alias of Organization for backwards compatibility.
// Unrecognized values default to PersonalFree, matching org creation's
// default tier.
func ParseTier(s string) Tier {
	switch s {
	case string(PersonalFree):
		return PersonalFree
	case string(PersonalPro):
		return PersonalPro
	case string(Organization), "enterprise":
		return Organization
	default:
		return PersonalFree
	}
}

// MaxDevices returns the device quota for the tier. For Organization tier
// the quota lives on the organization row itself (max_agents); callers
// pass that value through as maxAgents and it is returned unchanged.
func MaxDevices(t Tier, maxAgents int) int {
	switch t {
	case PersonalFree:
		return 1
	case PersonalPro:
		return 10
	case Organization:
		return maxAgents
	default:
		return 1
	}
}

// CanMintEnrollmentTokens reports whether organizations of this tier may
// create OrganizationToken rows.
func CanMintEnrollmentTokens(t Tier) bool {
	return t == Organization
}

// AllowsPersonalEnroll reports whether this tier's endpoints may be
// created via the personal-enroll flow.
func AllowsPersonalEnroll(t Tier) bool {
	return t == PersonalFree || t == PersonalPro
}

// AllowsOrgEnroll reports whether this tier's endpoints may be created
// via the org-token-enroll flow.
func AllowsOrgEnroll(t Tier) bool {
	return t == Organization
}
