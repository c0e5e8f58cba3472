package domain

type Role string

const (
	RoleUser          Role = "user"
	RoleMerchantStaff Role = "merchant_staff"
	RoleMerchantOwner Role = "merchant_owner"
	RoleAdmin         Role = "admin"
	RoleSuperAdmin    Role = "super_admin"
)

// roleRanks is a flat ordered ranking; higher satisfies lower.
var roleRanks = map[Role]int{
	RoleUser:          1,
	RoleMerchantStaff: 2,
	RoleMerchantOwner: 3,
	RoleAdmin:         4,
	RoleSuperAdmin:    5,
}

// Rank returns the privilege rank of the role; unknown roles rank 0.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Satisfies reports whether a principal holding `have` meets the privilege
// level `want`.
func Satisfies(have, want Role) bool {
	return have.Rank() >= want.Rank()
}

// Principal is the authenticated caller as supplied by the authentication
// collaborator. MerchantID is set only for merchant staff and owners.
type Principal struct {
	ID         string
	Role       Role
	MerchantID string
}

// OwnsOrDelegated reports whether the principal is the resource owner or an
// admin acting on their behalf.
func (p *Principal) OwnsOrDelegated(resourceOwnerID string) bool {
	return p.ID == resourceOwnerID || Satisfies(p.Role, RoleAdmin)
}

// OwnsMerchantResource reports whether the principal belongs to the merchant
// owning the resource, with the same admin bypass.
func (p *Principal) OwnsMerchantResource(resourceMerchantID string) bool {
	if Satisfies(p.Role, RoleAdmin) {
		return true
	}
	return p.MerchantID != "" && p.MerchantID == resourceMerchantID
}
