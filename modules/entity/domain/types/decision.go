package types

// UserInfo is the caller identity the evaluator works with. The HTTP layer
// builds it from the session principal and platform config; the core never
// consults role policy itself.
type UserInfo struct {
	PrincipalID        int64
	Groups             []int64
	IsAnonymous        bool
	IsAdmin            bool
	IsComplianceTeam   bool
	IsCertified        bool
	AcceptedTermsOfUse bool
}

// Principals returns the id set used for ACL lookups: the user plus every
// group they belong to.
func (u UserInfo) Principals() []int64 {
	out := make([]int64, 0, len(u.Groups)+1)
	out = append(out, u.PrincipalID)
	out = append(out, u.Groups...)
	return out
}

// AuthorizationDecision is the result of one access check. Denial is a
// normal value, never an error; ReasonCode is a stable machine code and
// Reason the user-facing message.
type AuthorizationDecision struct {
	Authorized bool
	ReasonCode string
	Reason     string
}

func Authorized() AuthorizationDecision {
	return AuthorizationDecision{Authorized: true}
}

func AccessDenied(code string, reason string) AuthorizationDecision {
	return AuthorizationDecision{Authorized: false, ReasonCode: code, Reason: reason}
}

// UserEntityPermissions is the one-call bundle the UI renders from.
type UserEntityPermissions struct {
	CanView              bool
	CanEdit              bool
	CanDelete            bool
	CanAddChild          bool
	CanDownload          bool
	CanUpload            bool
	CanModerate          bool
	CanChangePermissions bool
	CanChangeSettings    bool
	CanEnableInheritance bool
	CanPublicRead        bool
	OwnerPrincipalID     int64
	IsCertifiedUser      bool
}
