package services

import (
	"context"
	"fmt"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/ports"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
)

const (
	ReasonAnonymousReadOnly       = "ANONYMOUS_READ_ONLY"
	ReasonEntityInTrashCan        = "ENTITY_IN_TRASH_CAN"
	ReasonMissingPermission       = "MISSING_PERMISSION"
	ReasonCertifiedUserRequired   = "CERTIFIED_USER_REQUIRED"
	ReasonTermsOfUseNotAccepted   = "TERMS_OF_USE_NOT_ACCEPTED"
	ReasonUnmetAccessRequirements = "UNMET_ACCESS_REQUIREMENTS"
	ReasonComplianceTeamOnly      = "COMPLIANCE_TEAM_ONLY"
	ReasonApprovalAccessorOnly    = "APPROVAL_ACCESSOR_ONLY"
	ReasonUnsupportedResourceType = "RESOURCE_TYPE_NOT_SUPPORTED"
	ReasonNoParent                = "PARENT_REQUIRED"
)

const msgCertifiedUserContent = "only certified users may create or update content"

// PlatformPolicy carries the well-known topology the evaluator special-cases.
type PlatformPolicy struct {
	TrashNodeID          int64
	AnonymousPrincipalID int64
	PublicGroupID        int64
	// DisableCertifiedUserChecks turns off the certified-user gate globally.
	DisableCertifiedUserChecks bool
}

// AnonymousUser returns the identity used for public-read probes.
func (p PlatformPolicy) AnonymousUser() types.UserInfo {
	return types.UserInfo{
		PrincipalID: p.AnonymousPrincipalID,
		Groups:      []int64{p.PublicGroupID},
		IsAnonymous: true,
	}
}

// AuthorizationEvaluator is the single read-side entry point for access
// decisions. It takes no locks and may race with in-flight mutations:
// a decision reflects state at read time.
type AuthorizationEvaluator interface {
	CanAccess(ctx context.Context, user types.UserInfo, resourceID int64, resourceType types.ResourceType, action types.ActionType) (types.AuthorizationDecision, error)
	CanCreate(ctx context.Context, user types.UserInfo, parentID int64, kind types.EntityKind) (types.AuthorizationDecision, error)
	GetUserEntityPermissions(ctx context.Context, user types.UserInfo, entityID int64) (types.UserEntityPermissions, error)
	GetNonvisibleChildren(ctx context.Context, user types.UserInfo, parentID int64) ([]int64, error)
}

type authorizationEvaluator struct {
	tree         ports.TreeStore
	benefactors  ports.BenefactorStore
	acls         ports.ACLStore
	requirements ports.RequirementStore
	gate         RequirementGate
	policy       PlatformPolicy
}

func NewAuthorizationEvaluator(tree ports.TreeStore, benefactors ports.BenefactorStore, acls ports.ACLStore, requirements ports.RequirementStore, gate RequirementGate, policy PlatformPolicy) AuthorizationEvaluator {
	return &authorizationEvaluator{
		tree:         tree,
		benefactors:  benefactors,
		acls:         acls,
		requirements: requirements,
		gate:         gate,
		policy:       policy,
	}
}

// CanAccess evaluates in a fixed, short-circuiting order: anonymous
// read-only, administrator bypass, trash subtree, then the per-type rule.
func (e *authorizationEvaluator) CanAccess(ctx context.Context, user types.UserInfo, resourceID int64, resourceType types.ResourceType, action types.ActionType) (types.AuthorizationDecision, error) {
	if user.IsAnonymous && !anonymousMayAttempt(resourceType, action) {
		return types.AccessDenied(ReasonAnonymousReadOnly, "anonymous users have only READ access permission"), nil
	}
	if user.IsAdmin {
		return types.Authorized(), nil
	}

	switch resourceType {
	case types.ResourceEntity:
		return e.entityAccess(ctx, user, resourceID, action)
	case types.ResourceTeam:
		return e.teamAccess(ctx, user, resourceID, action)
	case types.ResourceAccessRequirement:
		return e.requirementAccess(user, action), nil
	case types.ResourceAccessApproval:
		return e.approvalAccess(ctx, user, resourceID, action)
	default:
		return types.AccessDenied(ReasonUnsupportedResourceType, fmt.Sprintf("no access policy for resource type %s", resourceType)), nil
	}
}

// anonymousMayAttempt lists the narrow anonymous exceptions: READ anywhere,
// plus DOWNLOAD of entities (still ACL- and requirement-gated) and of team
// icons (public).
func anonymousMayAttempt(resourceType types.ResourceType, action types.ActionType) bool {
	if action == types.ActionRead {
		return true
	}
	if action == types.ActionDownload {
		return resourceType == types.ResourceEntity || resourceType == types.ResourceTeam
	}
	return false
}

func (e *authorizationEvaluator) entityAccess(ctx context.Context, user types.UserInfo, entityID int64, action types.ActionType) (types.AuthorizationDecision, error) {
	benefactor, err := e.benefactors.GetBenefactor(ctx, entityID)
	if err != nil {
		return types.AuthorizationDecision{}, err
	}

	// The only operations allowed over the trash subtree are CREATE (moving
	// items into the trash) and DELETE (purging it). The distinguished
	// reason code lets callers raise a different user-facing error.
	if benefactor == e.policy.TrashNodeID && action != types.ActionCreate && action != types.ActionDelete {
		return types.AccessDenied(ReasonEntityInTrashCan, fmt.Sprintf("entity %d is in the trash can", entityID)), nil
	}

	if action == types.ActionCreate || action == types.ActionUpdate {
		ok, err := e.certifiedOrExempt(ctx, user, entityID, action)
		if err != nil {
			return types.AuthorizationDecision{}, err
		}
		if !ok {
			return types.AccessDenied(ReasonCertifiedUserRequired, msgCertifiedUserContent), nil
		}
	}

	switch action {
	case types.ActionDownload:
		return e.canDownload(ctx, user, entityID, benefactor)
	case types.ActionUpload:
		return e.canUpload(user), nil
	}

	allowed, err := e.acls.CanAccess(ctx, user.Principals(), benefactor, types.ResourceEntity, action)
	if err != nil {
		return types.AuthorizationDecision{}, err
	}
	if !allowed {
		return types.AccessDenied(ReasonMissingPermission, fmt.Sprintf("caller lacks %s permission on the requested entity", action)), nil
	}
	return types.Authorized(), nil
}

// certifiedOrExempt implements the certified-user rule: entity CREATE and
// UPDATE require certification unless the feature is globally disabled or
// the target is a project (projects stay open so new users can bootstrap).
func (e *authorizationEvaluator) certifiedOrExempt(ctx context.Context, user types.UserInfo, entityID int64, action types.ActionType) (bool, error) {
	if e.policy.DisableCertifiedUserChecks || user.IsCertified {
		return true, nil
	}
	if action == types.ActionUpdate {
		node, err := e.tree.GetNode(ctx, entityID)
		if err != nil {
			return false, err
		}
		if node.Kind == types.EntityKindProject {
			return true, nil
		}
	}
	return false, nil
}

// canDownload: the ACL alone never grants DOWNLOAD. The caller must also
// have accepted the platform terms of use (checked once per call, not per
// node) and clear every access requirement on the entity and its ancestors.
func (e *authorizationEvaluator) canDownload(ctx context.Context, user types.UserInfo, entityID int64, benefactor int64) (types.AuthorizationDecision, error) {
	if !user.IsAnonymous && !user.AcceptedTermsOfUse {
		return types.AccessDenied(ReasonTermsOfUseNotAccepted, "caller has not yet accepted the platform terms of use"), nil
	}

	allowed, err := e.acls.CanAccess(ctx, user.Principals(), benefactor, types.ResourceEntity, types.ActionDownload)
	if err != nil {
		return types.AuthorizationDecision{}, err
	}
	if !allowed {
		return types.AccessDenied(ReasonMissingPermission, "caller lacks DOWNLOAD permission on the requested entity"), nil
	}

	unmet, err := e.gate.UnmetRequirementIDs(ctx, user, entityID, types.SubjectEntity)
	if err != nil {
		return types.AuthorizationDecision{}, err
	}
	if len(unmet) > 0 {
		return types.AccessDenied(ReasonUnmetAccessRequirements, "there are unmet access requirements that must be met before download"), nil
	}
	return types.Authorized(), nil
}

func (e *authorizationEvaluator) canUpload(user types.UserInfo) types.AuthorizationDecision {
	if !user.AcceptedTermsOfUse {
		return types.AccessDenied(ReasonTermsOfUseNotAccepted, "caller has not yet accepted the platform terms of use")
	}
	return types.Authorized()
}

// teamAccess: team icons download publicly; everything else goes through
// the team's own ACL.
func (e *authorizationEvaluator) teamAccess(ctx context.Context, user types.UserInfo, teamID int64, action types.ActionType) (types.AuthorizationDecision, error) {
	if action == types.ActionDownload {
		return types.Authorized(), nil
	}
	allowed, err := e.acls.CanAccess(ctx, user.Principals(), teamID, types.ResourceTeam, action)
	if err != nil {
		return types.AuthorizationDecision{}, err
	}
	if !allowed {
		return types.AccessDenied(ReasonMissingPermission, fmt.Sprintf("caller lacks %s permission on the requested team", action)), nil
	}
	return types.Authorized(), nil
}

// requirementAccess: anyone may read requirements; only the compliance
// team (or an administrator, handled above) may change them.
func (e *authorizationEvaluator) requirementAccess(user types.UserInfo, action types.ActionType) types.AuthorizationDecision {
	if action == types.ActionRead {
		return types.Authorized()
	}
	if user.IsComplianceTeam {
		return types.Authorized()
	}
	return types.AccessDenied(ReasonComplianceTeamOnly, "only the access compliance team may manage access requirements")
}

// approvalAccess: an approval concerns exactly one accessor; only that
// accessor or the compliance team may act on it.
func (e *authorizationEvaluator) approvalAccess(ctx context.Context, user types.UserInfo, approvalID int64, _ types.ActionType) (types.AuthorizationDecision, error) {
	if user.IsComplianceTeam {
		return types.Authorized(), nil
	}
	approval, err := e.requirements.GetApproval(ctx, approvalID)
	if err != nil {
		return types.AuthorizationDecision{}, err
	}
	if approval.AccessorID == user.PrincipalID {
		return types.Authorized(), nil
	}
	return types.AccessDenied(ReasonApprovalAccessorOnly, "only the approval's accessor or the compliance team may act on it"), nil
}

// CanCreate answers whether user may create a child of the given kind
// under parentID.
func (e *authorizationEvaluator) CanCreate(ctx context.Context, user types.UserInfo, parentID int64, kind types.EntityKind) (types.AuthorizationDecision, error) {
	if user.IsAdmin {
		return types.Authorized(), nil
	}
	if parentID == 0 {
		return types.AccessDenied(ReasonNoParent, "cannot create an entity having no parent"), nil
	}
	if kind != types.EntityKindProject && !e.policy.DisableCertifiedUserChecks && !user.IsCertified {
		return types.AccessDenied(ReasonCertifiedUserRequired, msgCertifiedUserContent), nil
	}
	return e.CanAccess(ctx, user, parentID, types.ResourceEntity, types.ActionCreate)
}

// GetUserEntityPermissions bundles every per-action decision for one
// entity; the UI renders straight from it.
func (e *authorizationEvaluator) GetUserEntityPermissions(ctx context.Context, user types.UserInfo, entityID int64) (types.UserEntityPermissions, error) {
	node, err := e.tree.GetNode(ctx, entityID)
	if err != nil {
		return types.UserEntityPermissions{}, err
	}

	perms := types.UserEntityPermissions{
		OwnerPrincipalID: node.CreatedBy,
		IsCertifiedUser:  user.IsCertified,
	}

	checks := []struct {
		action types.ActionType
		out    *bool
	}{
		{types.ActionRead, &perms.CanView},
		{types.ActionUpdate, &perms.CanEdit},
		{types.ActionDelete, &perms.CanDelete},
		{types.ActionCreate, &perms.CanAddChild},
		{types.ActionDownload, &perms.CanDownload},
		{types.ActionUpload, &perms.CanUpload},
		{types.ActionModerate, &perms.CanModerate},
		{types.ActionChangePermissions, &perms.CanChangePermissions},
		{types.ActionChangeSettings, &perms.CanChangeSettings},
	}
	for _, c := range checks {
		decision, err := e.CanAccess(ctx, user, entityID, types.ResourceEntity, c.action)
		if err != nil {
			return types.UserEntityPermissions{}, err
		}
		*c.out = decision.Authorized
	}

	publicRead, err := e.CanAccess(ctx, e.policy.AnonymousUser(), entityID, types.ResourceEntity, types.ActionRead)
	if err != nil {
		return types.UserEntityPermissions{}, err
	}
	perms.CanPublicRead = publicRead.Authorized

	switch {
	case user.IsAdmin:
		perms.CanEnableInheritance = !node.IsParentRoot()
	case user.IsAnonymous:
		perms.CanEnableInheritance = false
	default:
		perms.CanEnableInheritance = !node.IsParentRoot() && perms.CanChangePermissions
	}
	return perms, nil
}

// GetNonvisibleChildren filters a container's children down to the ids the
// user cannot READ. Denial here is aggregate and non-exceptional: one
// store query, no per-item errors.
func (e *authorizationEvaluator) GetNonvisibleChildren(ctx context.Context, user types.UserInfo, parentID int64) ([]int64, error) {
	if user.IsAdmin {
		return nil, nil
	}
	return e.acls.NonVisibleChildren(ctx, user.Principals(), parentID)
}
