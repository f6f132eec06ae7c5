package server

import (
	"context"
	"errors"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/services"
)

type stubEvaluator struct {
	canAccessFn             func(ctx context.Context, user types.UserInfo, resourceID int64, resourceType types.ResourceType, action types.ActionType) (types.AuthorizationDecision, error)
	canCreateFn             func(ctx context.Context, user types.UserInfo, parentID int64, kind types.EntityKind) (types.AuthorizationDecision, error)
	userEntityPermissionsFn func(ctx context.Context, user types.UserInfo, entityID int64) (types.UserEntityPermissions, error)
	nonvisibleChildrenFn    func(ctx context.Context, user types.UserInfo, parentID int64) ([]int64, error)
}

var _ services.AuthorizationEvaluator = (*stubEvaluator)(nil)

func (s *stubEvaluator) CanAccess(ctx context.Context, user types.UserInfo, resourceID int64, resourceType types.ResourceType, action types.ActionType) (types.AuthorizationDecision, error) {
	if s.canAccessFn == nil {
		return types.Authorized(), nil
	}
	return s.canAccessFn(ctx, user, resourceID, resourceType, action)
}

func (s *stubEvaluator) CanCreate(ctx context.Context, user types.UserInfo, parentID int64, kind types.EntityKind) (types.AuthorizationDecision, error) {
	if s.canCreateFn == nil {
		return types.Authorized(), nil
	}
	return s.canCreateFn(ctx, user, parentID, kind)
}

func (s *stubEvaluator) GetUserEntityPermissions(ctx context.Context, user types.UserInfo, entityID int64) (types.UserEntityPermissions, error) {
	if s.userEntityPermissionsFn == nil {
		return types.UserEntityPermissions{}, nil
	}
	return s.userEntityPermissionsFn(ctx, user, entityID)
}

func (s *stubEvaluator) GetNonvisibleChildren(ctx context.Context, user types.UserInfo, parentID int64) ([]int64, error) {
	if s.nonvisibleChildrenFn == nil {
		return nil, nil
	}
	return s.nonvisibleChildrenFn(ctx, user, parentID)
}

type stubResolver struct {
	getBenefactorFn       func(ctx context.Context, nodeID int64) (int64, error)
	getACLFn              func(ctx context.Context, user types.UserInfo, nodeID int64) (services.ACLResult, error)
	overrideInheritanceFn func(ctx context.Context, user types.UserInfo, nodeID int64, acl types.AccessControlList, nodeEtag string) (types.AccessControlList, error)
	restoreInheritanceFn  func(ctx context.Context, user types.UserInfo, nodeID int64, nodeEtag string) error
	updateACLFn           func(ctx context.Context, user types.UserInfo, acl types.AccessControlList) (types.AccessControlList, error)
	nodeParentChangedFn   func(ctx context.Context, user types.UserInfo, nodeID int64, newParentID int64, skipSelfBenefactor bool) error
}

var _ services.InheritanceResolver = (*stubResolver)(nil)

func (s *stubResolver) GetBenefactor(ctx context.Context, nodeID int64) (int64, error) {
	if s.getBenefactorFn == nil {
		return nodeID, nil
	}
	return s.getBenefactorFn(ctx, nodeID)
}

func (s *stubResolver) GetACL(ctx context.Context, user types.UserInfo, nodeID int64) (services.ACLResult, error) {
	if s.getACLFn == nil {
		return services.ACLResult{}, errors.New("getACLFn not set")
	}
	return s.getACLFn(ctx, user, nodeID)
}

func (s *stubResolver) OverrideInheritance(ctx context.Context, user types.UserInfo, nodeID int64, acl types.AccessControlList, nodeEtag string) (types.AccessControlList, error) {
	if s.overrideInheritanceFn == nil {
		return types.AccessControlList{}, errors.New("overrideInheritanceFn not set")
	}
	return s.overrideInheritanceFn(ctx, user, nodeID, acl, nodeEtag)
}

func (s *stubResolver) RestoreInheritance(ctx context.Context, user types.UserInfo, nodeID int64, nodeEtag string) error {
	if s.restoreInheritanceFn == nil {
		return errors.New("restoreInheritanceFn not set")
	}
	return s.restoreInheritanceFn(ctx, user, nodeID, nodeEtag)
}

func (s *stubResolver) UpdateACL(ctx context.Context, user types.UserInfo, acl types.AccessControlList) (types.AccessControlList, error) {
	if s.updateACLFn == nil {
		return types.AccessControlList{}, errors.New("updateACLFn not set")
	}
	return s.updateACLFn(ctx, user, acl)
}

func (s *stubResolver) NodeParentChanged(ctx context.Context, user types.UserInfo, nodeID int64, newParentID int64, skipSelfBenefactor bool) error {
	if s.nodeParentChangedFn == nil {
		return errors.New("nodeParentChangedFn not set")
	}
	return s.nodeParentChangedFn(ctx, user, nodeID, newParentID, skipSelfBenefactor)
}

type stubRequirementService struct {
	getRequirementFn    func(ctx context.Context, id int64) (types.AccessRequirement, error)
	createRequirementFn func(ctx context.Context, user types.UserInfo, req types.AccessRequirement) (types.AccessRequirement, error)
	createApprovalFn    func(ctx context.Context, user types.UserInfo, approval types.AccessApproval) (types.AccessApproval, error)
	unmetFn             func(ctx context.Context, user types.UserInfo, subjectID int64, subjectType types.SubjectType) ([]int64, error)
}

var _ services.AccessRequirementService = (*stubRequirementService)(nil)

func (s *stubRequirementService) GetRequirement(ctx context.Context, id int64) (types.AccessRequirement, error) {
	if s.getRequirementFn == nil {
		return types.AccessRequirement{}, errors.New("getRequirementFn not set")
	}
	return s.getRequirementFn(ctx, id)
}

func (s *stubRequirementService) CreateRequirement(ctx context.Context, user types.UserInfo, req types.AccessRequirement) (types.AccessRequirement, error) {
	if s.createRequirementFn == nil {
		return types.AccessRequirement{}, errors.New("createRequirementFn not set")
	}
	return s.createRequirementFn(ctx, user, req)
}

func (s *stubRequirementService) CreateApproval(ctx context.Context, user types.UserInfo, approval types.AccessApproval) (types.AccessApproval, error) {
	if s.createApprovalFn == nil {
		return types.AccessApproval{}, errors.New("createApprovalFn not set")
	}
	return s.createApprovalFn(ctx, user, approval)
}

func (s *stubRequirementService) UnmetRequirementIDs(ctx context.Context, user types.UserInfo, subjectID int64, subjectType types.SubjectType) ([]int64, error) {
	if s.unmetFn == nil {
		return nil, nil
	}
	return s.unmetFn(ctx, user, subjectID, subjectType)
}

type stubAuthorizer struct {
	authorizeFn func(subject string, object string, action string) (bool, bool, error)
}

func (s *stubAuthorizer) Authorize(subject string, object string, action string) (bool, bool, error) {
	if s.authorizeFn == nil {
		return true, true, nil
	}
	return s.authorizeFn(subject, object, action)
}

func testPlatformConfig() PlatformConfig {
	return PlatformConfig{
		RootNodeID:           1,
		TrashNodeID:          2,
		AnonymousPrincipalID: 10,
		PublicGroupID:        11,
	}
}
