package services

import (
	"context"
	"errors"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/ports"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/httperr"
)

const (
	errRequirementNotFound      = "ACCESS_REQUIREMENT_NOT_FOUND"
	errRequirementWriteDenied   = "COMPLIANCE_TEAM_REQUIRED"
	errApprovalAccessorMismatch = "APPROVAL_ACCESSOR_MISMATCH"
	errApprovalKindNotSelfServe = "APPROVAL_KIND_NOT_SELF_SERVE"
)

// AccessRequirementService manages requirement and approval rows. Rows
// outlive the entities they gate; nothing here cascades on entity delete.
type AccessRequirementService interface {
	GetRequirement(ctx context.Context, id int64) (types.AccessRequirement, error)
	CreateRequirement(ctx context.Context, user types.UserInfo, req types.AccessRequirement) (types.AccessRequirement, error)
	CreateApproval(ctx context.Context, user types.UserInfo, approval types.AccessApproval) (types.AccessApproval, error)
	UnmetRequirementIDs(ctx context.Context, user types.UserInfo, subjectID int64, subjectType types.SubjectType) ([]int64, error)
}

type accessRequirementService struct {
	requirements ports.RequirementStore
	gate         RequirementGate
}

func NewAccessRequirementService(requirements ports.RequirementStore, gate RequirementGate) AccessRequirementService {
	return &accessRequirementService{requirements: requirements, gate: gate}
}

func (s *accessRequirementService) GetRequirement(ctx context.Context, id int64) (types.AccessRequirement, error) {
	req, err := s.requirements.GetRequirement(ctx, id)
	if errors.Is(err, ports.ErrRequirementNotFound) {
		return types.AccessRequirement{}, httperr.NewNotFound(errRequirementNotFound)
	}
	if err != nil {
		return types.AccessRequirement{}, err
	}
	return req, nil
}

func (s *accessRequirementService) CreateRequirement(ctx context.Context, user types.UserInfo, req types.AccessRequirement) (types.AccessRequirement, error) {
	if !user.IsAdmin && !user.IsComplianceTeam {
		return types.AccessRequirement{}, httperr.NewUnauthorized(errRequirementWriteDenied)
	}
	// Requirements gate DOWNLOAD unless stated otherwise. An empty action
	// would never match the gate's filter and the row would gate nothing.
	if req.RequiredAction == "" {
		req.RequiredAction = types.ActionDownload
	}
	if err := ValidateAccessRequirement(req); err != nil {
		return types.AccessRequirement{}, err
	}
	req.CreatedBy = user.PrincipalID
	req.Etag = newEtag()
	return s.requirements.CreateRequirement(ctx, req)
}

// CreateApproval records that approval.AccessorID satisfied a requirement.
// Who may file it depends on the requirement kind: self-satisfiable kinds
// are filed by the accessor themself, everything else only by the
// compliance team.
func (s *accessRequirementService) CreateApproval(ctx context.Context, user types.UserInfo, approval types.AccessApproval) (types.AccessApproval, error) {
	req, err := s.requirements.GetRequirement(ctx, approval.RequirementID)
	if errors.Is(err, ports.ErrRequirementNotFound) {
		return types.AccessApproval{}, httperr.NewNotFound(errRequirementNotFound)
	}
	if err != nil {
		return types.AccessApproval{}, err
	}

	if !user.IsAdmin && !user.IsComplianceTeam {
		if !req.Kind.SelfSatisfiable() {
			return types.AccessApproval{}, httperr.NewUnauthorized(errApprovalKindNotSelfServe)
		}
		if approval.AccessorID != user.PrincipalID {
			return types.AccessApproval{}, httperr.NewUnauthorized(errApprovalAccessorMismatch)
		}
	}

	approval.Kind = req.Kind
	approval.CreatedBy = user.PrincipalID
	return s.requirements.CreateApproval(ctx, approval)
}

func (s *accessRequirementService) UnmetRequirementIDs(ctx context.Context, user types.UserInfo, subjectID int64, subjectType types.SubjectType) ([]int64, error) {
	return s.gate.UnmetRequirementIDs(ctx, user, subjectID, subjectType)
}
