package authz

const (
	RoleAdmin      = "admin"
	RoleCompliance = "compliance"
	RoleCertified  = "certified"
	RoleMember     = "member"
	RoleAnonymous  = "anonymous"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionAdmin = "admin"
)

const (
	ObjectAccessCheck        = "access.check"
	ObjectEntityACL          = "entity.acl"
	ObjectEntityBenefactor   = "entity.benefactor"
	ObjectEntityPermissions  = "entity.permissions"
	ObjectAccessRequirements = "access.requirements"
	ObjectAccessApprovals    = "access.approvals"
	ObjectAccessRules        = "access.rules"
)

// IsPlatformAdmin reports whether a role slug carries the unconditional
// bypass in the authorization evaluator.
func IsPlatformAdmin(roleSlug string) bool {
	return roleSlug == RoleAdmin
}

// IsComplianceTeam reports whether a role slug may manage access
// requirements and non-self-sign approvals.
func IsComplianceTeam(roleSlug string) bool {
	return roleSlug == RoleCompliance || roleSlug == RoleAdmin
}
