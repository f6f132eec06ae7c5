package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/services"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/entityid"
)

type subjectJSON struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type requirementCreateRequest struct {
	Kind           string        `json:"kind"`
	RequiredAction string        `json:"required_action"`
	Subjects       []subjectJSON `json:"subjects"`
}

type requirementResponse struct {
	ID             int64         `json:"id"`
	Kind           string        `json:"kind"`
	RequiredAction string        `json:"required_action"`
	Subjects       []subjectJSON `json:"subjects"`
	CreatedBy      int64         `json:"created_by"`
	Etag           string        `json:"etag"`
}

func handleRequirementCreateAPI(w http.ResponseWriter, r *http.Request, svc services.AccessRequirementService, cfg PlatformConfig) {
	var req requirementCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	requirement := types.AccessRequirement{
		Kind:           types.ApprovalKind(strings.ToUpper(strings.TrimSpace(req.Kind))),
		RequiredAction: types.ActionType(strings.ToUpper(strings.TrimSpace(req.RequiredAction))),
	}
	for _, s := range req.Subjects {
		id, err := entityid.Parse(s.ID)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "invalid_subject_id", "invalid subject id")
			return
		}
		requirement.Subjects = append(requirement.Subjects, types.Subject{
			ID:   id,
			Type: types.SubjectType(strings.ToUpper(strings.TrimSpace(s.Type))),
		})
	}
	created, err := svc.CreateRequirement(r.Context(), userInfoFrom(r.Context(), cfg), requirement)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requirementToJSON(created))
}

type approvalCreateRequest struct {
	RequirementID int64 `json:"requirement_id"`
	AccessorID    int64 `json:"accessor_id"`
}

type approvalResponse struct {
	ID            int64  `json:"id"`
	RequirementID int64  `json:"requirement_id"`
	AccessorID    int64  `json:"accessor_id"`
	Kind          string `json:"kind"`
	CreatedBy     int64  `json:"created_by"`
}

func handleApprovalCreateAPI(w http.ResponseWriter, r *http.Request, svc services.AccessRequirementService, cfg PlatformConfig) {
	var req approvalCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	user := userInfoFrom(r.Context(), cfg)
	accessor := req.AccessorID
	if accessor == 0 {
		accessor = user.PrincipalID
	}
	created, err := svc.CreateApproval(r.Context(), user, types.AccessApproval{
		RequirementID: req.RequirementID,
		AccessorID:    accessor,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, approvalResponse{
		ID:            created.ID,
		RequirementID: created.RequirementID,
		AccessorID:    created.AccessorID,
		Kind:          string(created.Kind),
		CreatedBy:     created.CreatedBy,
	})
}

type unmetRequirementsResponse struct {
	SubjectID      string  `json:"subject_id"`
	SubjectType    string  `json:"subject_type"`
	RequirementIDs []int64 `json:"requirement_ids"`
}

func handleUnmetRequirementsAPI(w http.ResponseWriter, r *http.Request, svc services.AccessRequirementService, cfg PlatformConfig) {
	rawID := r.URL.Query().Get("subject_id")
	id, err := entityid.Parse(rawID)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_subject_id", "invalid subject id")
		return
	}
	subjectType := types.SubjectType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("subject_type"))))
	if subjectType == "" {
		subjectType = types.SubjectEntity
	}
	ids, err := svc.UnmetRequirementIDs(r.Context(), userInfoFrom(r.Context(), cfg), id, subjectType)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, unmetRequirementsResponse{
		SubjectID:      rawID,
		SubjectType:    string(subjectType),
		RequirementIDs: ids,
	})
}

func requirementToJSON(req types.AccessRequirement) requirementResponse {
	out := requirementResponse{
		ID:             req.ID,
		Kind:           string(req.Kind),
		RequiredAction: string(req.RequiredAction),
		Subjects:       make([]subjectJSON, 0, len(req.Subjects)),
		CreatedBy:      req.CreatedBy,
		Etag:           req.Etag,
	}
	for _, s := range req.Subjects {
		out.Subjects = append(out.Subjects, subjectJSON{ID: entityid.Format(s.ID), Type: string(s.Type)})
	}
	return out
}
