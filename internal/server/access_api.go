package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/services"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/entityid"
)

type accessCheckRequest struct {
	ID           string `json:"id"`
	ResourceType string `json:"resource_type"`
	Action       string `json:"action"`
}

type accessCheckResponse struct {
	Authorized bool   `json:"authorized"`
	ReasonCode string `json:"reason_code,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func handleAccessCheckAPI(w http.ResponseWriter, r *http.Request, evaluator services.AuthorizationEvaluator, cfg PlatformConfig) {
	var req accessCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	id, err := entityid.Parse(req.ID)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_id", "invalid entity id")
		return
	}
	resourceType := types.ResourceType(strings.ToUpper(strings.TrimSpace(req.ResourceType)))
	if resourceType == "" {
		resourceType = types.ResourceEntity
	}
	action := types.ActionType(strings.ToUpper(strings.TrimSpace(req.Action)))
	if action == "" {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_action", "action required")
		return
	}

	decision, err := evaluator.CanAccess(r.Context(), userInfoFrom(r.Context(), cfg), id, resourceType, action)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accessCheckResponse{
		Authorized: decision.Authorized,
		ReasonCode: decision.ReasonCode,
		Reason:     decision.Reason,
	})
}

type benefactorResponse struct {
	ID           string `json:"id"`
	BenefactorID string `json:"benefactor_id"`
}

func handleBenefactorAPI(w http.ResponseWriter, r *http.Request, resolver services.InheritanceResolver) {
	id, ok := entityIDQueryParam(w, r)
	if !ok {
		return
	}
	benefactor, err := resolver.GetBenefactor(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, benefactorResponse{
		ID:           entityid.Format(id),
		BenefactorID: entityid.Format(benefactor),
	})
}

func handlePermissionsAPI(w http.ResponseWriter, r *http.Request, evaluator services.AuthorizationEvaluator, cfg PlatformConfig) {
	id, ok := entityIDQueryParam(w, r)
	if !ok {
		return
	}
	perms, err := evaluator.GetUserEntityPermissions(r.Context(), userInfoFrom(r.Context(), cfg), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userEntityPermissionsJSON(perms))
}

type nonvisibleChildrenResponse struct {
	ID       string   `json:"id"`
	ChildIDs []string `json:"nonvisible_child_ids"`
}

func handleNonvisibleChildrenAPI(w http.ResponseWriter, r *http.Request, evaluator services.AuthorizationEvaluator, cfg PlatformConfig) {
	id, ok := entityIDQueryParam(w, r)
	if !ok {
		return
	}
	hidden, err := evaluator.GetNonvisibleChildren(r.Context(), userInfoFrom(r.Context(), cfg), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := nonvisibleChildrenResponse{ID: entityid.Format(id), ChildIDs: make([]string, 0, len(hidden))}
	for _, child := range hidden {
		out.ChildIDs = append(out.ChildIDs, entityid.Format(child))
	}
	writeJSON(w, http.StatusOK, out)
}

func entityIDQueryParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := entityid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_id", "invalid entity id")
		return 0, false
	}
	return id, true
}

type userEntityPermissionsResponse struct {
	CanView              bool  `json:"can_view"`
	CanEdit              bool  `json:"can_edit"`
	CanDelete            bool  `json:"can_delete"`
	CanAddChild          bool  `json:"can_add_child"`
	CanDownload          bool  `json:"can_download"`
	CanUpload            bool  `json:"can_upload"`
	CanModerate          bool  `json:"can_moderate"`
	CanChangePermissions bool  `json:"can_change_permissions"`
	CanChangeSettings    bool  `json:"can_change_settings"`
	CanEnableInheritance bool  `json:"can_enable_inheritance"`
	CanPublicRead        bool  `json:"can_public_read"`
	OwnerPrincipalID     int64 `json:"owner_principal_id"`
	IsCertifiedUser      bool  `json:"is_certified_user"`
}

func userEntityPermissionsJSON(p types.UserEntityPermissions) userEntityPermissionsResponse {
	return userEntityPermissionsResponse{
		CanView:              p.CanView,
		CanEdit:              p.CanEdit,
		CanDelete:            p.CanDelete,
		CanAddChild:          p.CanAddChild,
		CanDownload:          p.CanDownload,
		CanUpload:            p.CanUpload,
		CanModerate:          p.CanModerate,
		CanChangePermissions: p.CanChangePermissions,
		CanChangeSettings:    p.CanChangeSettings,
		CanEnableInheritance: p.CanEnableInheritance,
		CanPublicRead:        p.CanPublicRead,
		OwnerPrincipalID:     p.OwnerPrincipalID,
		IsCertifiedUser:      p.IsCertifiedUser,
	}
}
