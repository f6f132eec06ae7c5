package services

import (
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/httperr"
)

const (
	errACLResourceRequired   = "ACL_RESOURCE_REQUIRED"
	errACLPrincipalRequired  = "ACL_PRINCIPAL_REQUIRED"
	errACLEmptyAccessSet     = "ACL_EMPTY_ACCESS_SET"
	errACLSelfLockout        = "ACL_SELF_LOCKOUT"
	errRequirementSubjects   = "REQUIREMENT_SUBJECTS_REQUIRED"
	errRequirementKind       = "REQUIREMENT_KIND_INVALID"
	errRequirementAction     = "REQUIREMENT_ACTION_REQUIRED"
	errRequirementUploadKind = "REQUIREMENT_UPLOAD_NOT_ALLOWED"
	errPostMessageRetired    = "POST_MESSAGE_REQUIREMENT_RETIRED"
)

// ValidateACLContent enforces the ACL write invariants before any persist.
// The caller, unless they are the resource owner or an administrator, must
// keep CHANGE_PERMISSIONS for themself in the submitted ACL so a write can
// never lock its own author out.
func ValidateACLContent(acl types.AccessControlList, caller types.UserInfo, ownerID int64) error {
	if acl.ResourceID == 0 {
		return httperr.NewInvalidModel(errACLResourceRequired)
	}
	for _, ra := range acl.ResourceAccess {
		if ra.PrincipalID == 0 {
			return httperr.NewInvalidModel(errACLPrincipalRequired)
		}
		if len(ra.AccessTypes) == 0 {
			return httperr.NewInvalidModel(errACLEmptyAccessSet)
		}
	}

	if caller.IsAdmin || caller.PrincipalID == ownerID {
		return nil
	}
	if ra, ok := acl.AccessFor(caller.PrincipalID); ok && ra.Allows(types.ActionChangePermissions) {
		return nil
	}
	return httperr.NewInvalidModel(errACLSelfLockout)
}

// ValidateAccessRequirement dispatches on the requirement kind; each kind
// keeps its own validation function.
func ValidateAccessRequirement(req types.AccessRequirement) error {
	if req.RequiredAction == "" {
		return httperr.NewInvalidModel(errRequirementAction)
	}
	if req.RequiredAction == types.ActionUpload {
		return httperr.NewInvalidModel(errRequirementUploadKind)
	}
	switch req.Kind {
	case types.ApprovalKindTermsOfUse:
		return validateTermsOfUseRequirement(req)
	case types.ApprovalKindACT:
		return validateACTRequirement(req)
	case types.ApprovalKindSelfSign:
		return validateSelfSignRequirement(req)
	case types.ApprovalKindPostMessage:
		return validatePostMessageRequirement(req)
	default:
		return httperr.NewInvalidModel(errRequirementKind)
	}
}

func validateTermsOfUseRequirement(req types.AccessRequirement) error {
	return requireSubjects(req)
}

func validateACTRequirement(req types.AccessRequirement) error {
	return requireSubjects(req)
}

func validateSelfSignRequirement(req types.AccessRequirement) error {
	return requireSubjects(req)
}

// Post-message requirements are retired; existing rows still evaluate but
// new ones are rejected.
func validatePostMessageRequirement(types.AccessRequirement) error {
	return httperr.NewInvalidModel(errPostMessageRetired)
}

func requireSubjects(req types.AccessRequirement) error {
	if len(req.Subjects) == 0 {
		return httperr.NewInvalidModel(errRequirementSubjects)
	}
	for _, s := range req.Subjects {
		if s.ID == 0 {
			return httperr.NewInvalidModel(errRequirementSubjects)
		}
	}
	return nil
}
