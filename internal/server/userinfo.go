package server

import (
	"context"
	"slices"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/authz"
)

// userInfoFrom translates the edge principal into the identity the
// evaluator works with. Authenticated callers implicitly belong to the
// everyone group; an absent principal is the anonymous user.
func userInfoFrom(ctx context.Context, cfg PlatformConfig) types.UserInfo {
	p, ok := currentPrincipal(ctx)
	if !ok {
		return cfg.Policy().AnonymousUser()
	}
	groups := slices.Clone(p.Groups)
	if !slices.Contains(groups, cfg.PublicGroupID) {
		groups = append(groups, cfg.PublicGroupID)
	}
	return types.UserInfo{
		PrincipalID:        p.ID,
		Groups:             groups,
		IsAdmin:            authz.IsPlatformAdmin(p.RoleSlug),
		IsComplianceTeam:   authz.IsComplianceTeam(p.RoleSlug),
		IsCertified:        p.Certified || p.RoleSlug == authz.RoleCertified,
		AcceptedTermsOfUse: p.AcceptedTermsOfUse,
	}
}
