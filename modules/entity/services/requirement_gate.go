package services

import (
	"context"
	"slices"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/ports"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
)

// RequirementGate answers which access requirements still stand between a
// user and a subject. It takes no locks; a result reflects state at read
// time.
type RequirementGate interface {
	UnmetRequirementIDs(ctx context.Context, user types.UserInfo, subjectID int64, subjectType types.SubjectType) ([]int64, error)
}

type requirementGate struct {
	tree         ports.TreeStore
	requirements ports.RequirementStore
}

func NewRequirementGate(tree ports.TreeStore, requirements ports.RequirementStore) RequirementGate {
	return &requirementGate{tree: tree, requirements: requirements}
}

// UnmetRequirementIDs collects the subject plus, for entity subjects, its
// whole ancestor chain (a requirement on a container restricts everything
// beneath it), then keeps every DOWNLOAD requirement with no approval for
// the user. Self-satisfiable kinds never block evaluation: the user can
// complete them in one step at accept time. Administrators pass without
// evaluation. The result is sorted ascending.
func (g *requirementGate) UnmetRequirementIDs(ctx context.Context, user types.UserInfo, subjectID int64, subjectType types.SubjectType) ([]int64, error) {
	if user.IsAdmin {
		return nil, nil
	}

	subjectIDs := []int64{subjectID}
	if subjectType == types.SubjectEntity {
		path, err := g.tree.GetPathIDs(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		subjectIDs = append(subjectIDs, path...)
	}

	reqs, err := g.requirements.GetRequirementsForSubjects(ctx, subjectIDs, subjectType)
	if err != nil {
		return nil, err
	}

	var unmet []int64
	for _, req := range reqs {
		if req.RequiredAction != types.ActionDownload {
			continue
		}
		if req.Kind.SelfSatisfiable() {
			continue
		}
		ok, err := g.requirements.HasApproval(ctx, req.ID, user.PrincipalID)
		if err != nil {
			return nil, err
		}
		if !ok {
			unmet = append(unmet, req.ID)
		}
	}
	slices.Sort(unmet)
	return slices.Compact(unmet), nil
}
