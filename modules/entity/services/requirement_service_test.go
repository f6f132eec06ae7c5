package services

import (
	"context"
	"slices"
	"testing"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/httperr"
)

func TestCreateRequirementRequiresComplianceTeam(t *testing.T) {
	f := newFixture(t)
	req := types.AccessRequirement{
		Kind:           types.ApprovalKindACT,
		Subjects:       []types.Subject{{ID: 100, Type: types.SubjectEntity}},
		RequiredAction: types.ActionDownload,
	}

	_, err := f.reqsvc.CreateRequirement(context.Background(), memberUser(20), req)
	if !httperr.IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized for member, got %v", err)
	}

	created, err := f.reqsvc.CreateRequirement(context.Background(), complianceUser(30), req)
	if err != nil {
		t.Fatalf("CreateRequirement: %v", err)
	}
	if created.ID == 0 || created.Etag == "" {
		t.Fatalf("created requirement missing id or etag: %+v", created)
	}
	if created.CreatedBy != 30 {
		t.Fatalf("CreatedBy = %d, want 30", created.CreatedBy)
	}
}

func TestCreateRequirementValidates(t *testing.T) {
	f := newFixture(t)
	_, err := f.reqsvc.CreateRequirement(context.Background(), complianceUser(30), types.AccessRequirement{
		Kind:           types.ApprovalKindPostMessage,
		Subjects:       []types.Subject{{ID: 100, Type: types.SubjectEntity}},
		RequiredAction: types.ActionDownload,
	})
	if !httperr.IsInvalidModel(err) {
		t.Fatalf("expected InvalidModel for retired kind, got %v", err)
	}
}

func TestCreateRequirementDefaultsActionToDownload(t *testing.T) {
	f := projectFixture(t)
	created, err := f.reqsvc.CreateRequirement(context.Background(), complianceUser(30), types.AccessRequirement{
		Kind:     types.ApprovalKindACT,
		Subjects: []types.Subject{{ID: 100, Type: types.SubjectEntity}},
	})
	if err != nil {
		t.Fatalf("CreateRequirement: %v", err)
	}
	if created.RequiredAction != types.ActionDownload {
		t.Fatalf("RequiredAction = %q, want %s", created.RequiredAction, types.ActionDownload)
	}

	// The defaulted row must actually gate: an unapproved user sees it.
	unmet, err := f.gate.UnmetRequirementIDs(context.Background(), memberUser(20), 100, types.SubjectEntity)
	if err != nil {
		t.Fatalf("UnmetRequirementIDs: %v", err)
	}
	if !slices.Contains(unmet, created.ID) {
		t.Fatalf("unmet = %v, want it to contain %d", unmet, created.ID)
	}
}

func TestCreateApprovalKindRules(t *testing.T) {
	f := newFixture(t)
	f.stores.reqs[7] = types.AccessRequirement{
		ID: 7, Kind: types.ApprovalKindACT,
		Subjects:       []types.Subject{{ID: 100, Type: types.SubjectEntity}},
		RequiredAction: types.ActionDownload,
	}
	f.stores.reqs[8] = types.AccessRequirement{
		ID: 8, Kind: types.ApprovalKindSelfSign,
		Subjects:       []types.Subject{{ID: 100, Type: types.SubjectEntity}},
		RequiredAction: types.ActionDownload,
	}

	// ACT approvals are a compliance-team act, never self-serve
	_, err := f.reqsvc.CreateApproval(context.Background(), memberUser(21), types.AccessApproval{RequirementID: 7, AccessorID: 21})
	if !httperr.IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized for self-serve ACT approval, got %v", err)
	}
	approved, err := f.reqsvc.CreateApproval(context.Background(), complianceUser(30), types.AccessApproval{RequirementID: 7, AccessorID: 21})
	if err != nil {
		t.Fatalf("CreateApproval: %v", err)
	}
	if approved.Kind != types.ApprovalKindACT || approved.CreatedBy != 30 {
		t.Fatalf("approval = %+v, want kind ACT created by 30", approved)
	}

	// self-sign is filed by the accessor themself, for themself only
	_, err = f.reqsvc.CreateApproval(context.Background(), memberUser(21), types.AccessApproval{RequirementID: 8, AccessorID: 22})
	if !httperr.IsUnauthorized(err) {
		t.Fatalf("expected Unauthorized for mismatched accessor, got %v", err)
	}
	if _, err := f.reqsvc.CreateApproval(context.Background(), memberUser(21), types.AccessApproval{RequirementID: 8, AccessorID: 21}); err != nil {
		t.Fatalf("self-sign approval: %v", err)
	}

	ok, err := f.stores.HasApproval(context.Background(), 7, 21)
	if err != nil || !ok {
		t.Fatalf("approval for (7,21) not recorded: %v", err)
	}
}

func TestCreateApprovalUnknownRequirement(t *testing.T) {
	f := newFixture(t)
	_, err := f.reqsvc.CreateApproval(context.Background(), complianceUser(30), types.AccessApproval{RequirementID: 99, AccessorID: 21})
	if !httperr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestGetRequirementNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.reqsvc.GetRequirement(context.Background(), 99)
	if !httperr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
