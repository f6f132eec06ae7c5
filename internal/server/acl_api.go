package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/services"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/entityid"
)

type resourceAccessJSON struct {
	PrincipalID int64    `json:"principal_id"`
	AccessTypes []string `json:"access_types"`
}

type aclJSON struct {
	ID             string               `json:"id"`
	ResourceAccess []resourceAccessJSON `json:"resource_access"`
	Etag           string               `json:"etag"`
}

type aclResultResponse struct {
	aclJSON
	BenefactorID string `json:"benefactor_id"`
	Inherited    bool   `json:"inherited"`
}

type aclWriteRequest struct {
	ID             string               `json:"id"`
	Etag           string               `json:"etag"`
	ResourceAccess []resourceAccessJSON `json:"resource_access"`
}

func handleACLGetAPI(w http.ResponseWriter, r *http.Request, resolver services.InheritanceResolver, cfg PlatformConfig) {
	id, ok := entityIDQueryParam(w, r)
	if !ok {
		return
	}
	res, err := resolver.GetACL(r.Context(), userInfoFrom(r.Context(), cfg), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aclResultResponse{
		aclJSON:      aclToJSON(res.ACL),
		BenefactorID: entityid.Format(res.BenefactorID),
		Inherited:    res.Inherited,
	})
}

func handleACLOverrideAPI(w http.ResponseWriter, r *http.Request, resolver services.InheritanceResolver, cfg PlatformConfig) {
	req, id, ok := decodeACLWriteRequest(w, r)
	if !ok {
		return
	}
	created, err := resolver.OverrideInheritance(r.Context(), userInfoFrom(r.Context(), cfg), id, aclFromJSON(req), req.Etag)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, aclToJSON(created))
}

func handleACLUpdateAPI(w http.ResponseWriter, r *http.Request, resolver services.InheritanceResolver, cfg PlatformConfig) {
	req, id, ok := decodeACLWriteRequest(w, r)
	if !ok {
		return
	}
	acl := aclFromJSON(req)
	acl.ResourceID = id
	acl.Etag = req.Etag
	updated, err := resolver.UpdateACL(r.Context(), userInfoFrom(r.Context(), cfg), acl)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, aclToJSON(updated))
}

type aclRestoreRequest struct {
	ID   string `json:"id"`
	Etag string `json:"etag"`
}

func handleACLRestoreAPI(w http.ResponseWriter, r *http.Request, resolver services.InheritanceResolver, cfg PlatformConfig) {
	var req aclRestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return
	}
	id, err := entityid.Parse(req.ID)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_id", "invalid entity id")
		return
	}
	user := userInfoFrom(r.Context(), cfg)
	if err := resolver.RestoreInheritance(r.Context(), user, id, req.Etag); err != nil {
		writeServiceError(w, r, err)
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

func decodeACLWriteRequest(w http.ResponseWriter, r *http.Request) (aclWriteRequest, int64, bool) {
	var req aclWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "bad_json", "bad json")
		return aclWriteRequest{}, 0, false
	}
	id, err := entityid.Parse(req.ID)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "invalid_id", "invalid entity id")
		return aclWriteRequest{}, 0, false
	}
	return req, id, true
}

func aclFromJSON(req aclWriteRequest) types.AccessControlList {
	acl := types.AccessControlList{ResourceType: types.ResourceEntity}
	for _, ra := range req.ResourceAccess {
		row := types.ResourceAccess{PrincipalID: ra.PrincipalID}
		for _, a := range ra.AccessTypes {
			row.AccessTypes = append(row.AccessTypes, types.ActionType(strings.ToUpper(strings.TrimSpace(a))))
		}
		acl.ResourceAccess = append(acl.ResourceAccess, row)
	}
	return acl
}

func aclToJSON(acl types.AccessControlList) aclJSON {
	out := aclJSON{
		ID:             entityid.Format(acl.ResourceID),
		ResourceAccess: make([]resourceAccessJSON, 0, len(acl.ResourceAccess)),
		Etag:           acl.Etag,
	}
	for _, ra := range acl.ResourceAccess {
		row := resourceAccessJSON{PrincipalID: ra.PrincipalID, AccessTypes: make([]string, 0, len(ra.AccessTypes))}
		for _, a := range ra.AccessTypes {
			row.AccessTypes = append(row.AccessTypes, string(a))
		}
		out.ResourceAccess = append(out.ResourceAccess, row)
	}
	return out
}
