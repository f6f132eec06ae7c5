package services

import (
	"context"
	"slices"
	"testing"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/ports"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
)

// memStores is an in-memory implementation of all four store ports, enough
// for exercising the resolver, evaluator and gate without a database. Every
// rewrite batch is recorded so tests can assert on lock ordering.
type memStores struct {
	nodes       map[int64]types.Node
	benefactors map[int64]int64
	entityACLs  map[int64]types.AccessControlList
	teamACLs    map[int64]types.AccessControlList
	reqs        map[int64]types.AccessRequirement
	approvals   []types.AccessApproval
	nextReqID   int64
	rewriteLog  [][]int64
}

func newMemStores() *memStores {
	return &memStores{
		nodes:       map[int64]types.Node{},
		benefactors: map[int64]int64{},
		entityACLs:  map[int64]types.AccessControlList{},
		teamACLs:    map[int64]types.AccessControlList{},
		reqs:        map[int64]types.AccessRequirement{},
		nextReqID:   100,
	}
}

// addNode registers a node inheriting from its parent's benefactor. Pass
// parent 0 for a node hanging off the forest root.
func (m *memStores) addNode(id int64, parent int64, kind types.EntityKind, createdBy int64) {
	n := types.Node{ID: id, Kind: kind, CreatedBy: createdBy, Etag: "v1"}
	if parent != 0 {
		p := parent
		n.ParentID = &p
		m.benefactors[id] = m.benefactors[parent]
	}
	m.nodes[id] = n
}

// setSelfACL gives a node its own ACL and makes it self-benefactoring.
func (m *memStores) setSelfACL(id int64, rows ...types.ResourceAccess) {
	m.entityACLs[id] = types.AccessControlList{
		ResourceID:     id,
		ResourceType:   types.ResourceEntity,
		ResourceAccess: rows,
		Etag:           "acl-v1",
	}
	m.benefactors[id] = id
}

func grant(principal int64, actions ...types.ActionType) types.ResourceAccess {
	return types.ResourceAccess{PrincipalID: principal, AccessTypes: actions}
}

// TreeStore

func (m *memStores) GetNode(_ context.Context, id int64) (types.Node, error) {
	n, ok := m.nodes[id]
	if !ok {
		return types.Node{}, ports.ErrNodeNotFound
	}
	return n, nil
}

func (m *memStores) GetChildIDs(_ context.Context, id int64) ([]int64, error) {
	var out []int64
	for _, n := range m.nodes {
		if n.ParentID != nil && *n.ParentID == id {
			out = append(out, n.ID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *memStores) GetPathIDs(_ context.Context, id int64) ([]int64, error) {
	n, ok := m.nodes[id]
	if !ok {
		return nil, ports.ErrNodeNotFound
	}
	var out []int64
	for n.ParentID != nil {
		out = append(out, *n.ParentID)
		n = m.nodes[*n.ParentID]
	}
	return out, nil
}

func (m *memStores) GetCreatedBy(_ context.Context, id int64) (int64, error) {
	n, ok := m.nodes[id]
	if !ok {
		return 0, ports.ErrNodeNotFound
	}
	return n.CreatedBy, nil
}

// bumpEtag is the in-memory stand-in for the store-side etag CAS every
// benefactor write runs under.
func (m *memStores) bumpEtag(id int64, expectedEtag string) error {
	n, ok := m.nodes[id]
	if !ok {
		return ports.ErrNodeNotFound
	}
	if n.Etag != expectedEtag {
		return ports.ErrEtagConflict
	}
	n.Etag = n.Etag + "+"
	m.nodes[id] = n
	return nil
}

// BenefactorStore

func (m *memStores) GetBenefactor(_ context.Context, id int64) (int64, error) {
	b, ok := m.benefactors[id]
	if !ok {
		return 0, ports.ErrNodeNotFound
	}
	return b, nil
}

func (m *memStores) CreateACLAndSelfBenefactor(_ context.Context, acl types.AccessControlList, nodeEtag string) (types.AccessControlList, error) {
	if err := m.bumpEtag(acl.ResourceID, nodeEtag); err != nil {
		return types.AccessControlList{}, err
	}
	m.entityACLs[acl.ResourceID] = acl
	m.benefactors[acl.ResourceID] = acl.ResourceID
	return acl, nil
}

func (m *memStores) DeleteACLAndRewrite(_ context.Context, resourceID int64, nodeEtag string, ids []int64, matchKey int64, newBenefactorID int64) error {
	if err := m.bumpEtag(resourceID, nodeEtag); err != nil {
		return err
	}
	delete(m.entityACLs, resourceID)
	return m.ApplyRewrites(context.Background(), ids, matchKey, newBenefactorID)
}

func (m *memStores) ApplyRewrites(_ context.Context, ids []int64, matchKey int64, newBenefactorID int64) error {
	m.rewriteLog = append(m.rewriteLog, slices.Clone(ids))
	for _, id := range ids {
		if m.benefactors[id] != matchKey {
			continue
		}
		m.benefactors[id] = newBenefactorID
	}
	return nil
}

// ACLStore

func (m *memStores) aclMap(resourceType types.ResourceType) map[int64]types.AccessControlList {
	if resourceType == types.ResourceTeam {
		return m.teamACLs
	}
	return m.entityACLs
}

func (m *memStores) GetACL(_ context.Context, resourceID int64, resourceType types.ResourceType) (types.AccessControlList, error) {
	acl, ok := m.aclMap(resourceType)[resourceID]
	if !ok {
		return types.AccessControlList{}, ports.ErrACLNotFound
	}
	return acl, nil
}

func (m *memStores) CreateACL(_ context.Context, acl types.AccessControlList) (types.AccessControlList, error) {
	m.aclMap(acl.ResourceType)[acl.ResourceID] = acl
	return acl, nil
}

func (m *memStores) UpdateACL(_ context.Context, acl types.AccessControlList) (types.AccessControlList, error) {
	stored, ok := m.aclMap(acl.ResourceType)[acl.ResourceID]
	if !ok {
		return types.AccessControlList{}, ports.ErrACLNotFound
	}
	if stored.Etag != acl.Etag {
		return types.AccessControlList{}, ports.ErrEtagConflict
	}
	acl.Etag = stored.Etag + "+"
	m.aclMap(acl.ResourceType)[acl.ResourceID] = acl
	return acl, nil
}

func (m *memStores) DeleteACL(_ context.Context, resourceID int64, resourceType types.ResourceType) error {
	delete(m.aclMap(resourceType), resourceID)
	return nil
}

func (m *memStores) CanAccess(_ context.Context, principals []int64, resourceID int64, resourceType types.ResourceType, action types.ActionType) (bool, error) {
	acl, ok := m.aclMap(resourceType)[resourceID]
	if !ok {
		return false, nil
	}
	return acl.Grants(principals, action), nil
}

func (m *memStores) NonVisibleChildren(ctx context.Context, principals []int64, parentID int64) ([]int64, error) {
	children, err := m.GetChildIDs(ctx, parentID)
	if err != nil {
		return nil, err
	}
	var out []int64
	for _, c := range children {
		acl, ok := m.entityACLs[m.benefactors[c]]
		if !ok || !acl.Grants(principals, types.ActionRead) {
			out = append(out, c)
		}
	}
	return out, nil
}

// RequirementStore

func (m *memStores) GetRequirement(_ context.Context, id int64) (types.AccessRequirement, error) {
	req, ok := m.reqs[id]
	if !ok {
		return types.AccessRequirement{}, ports.ErrRequirementNotFound
	}
	return req, nil
}

func (m *memStores) GetRequirementsForSubjects(_ context.Context, subjectIDs []int64, subjectType types.SubjectType) ([]types.AccessRequirement, error) {
	var out []types.AccessRequirement
	for _, req := range m.reqs {
		for _, s := range req.Subjects {
			if s.Type == subjectType && slices.Contains(subjectIDs, s.ID) {
				out = append(out, req)
				break
			}
		}
	}
	slices.SortFunc(out, func(a, b types.AccessRequirement) int { return int(a.ID - b.ID) })
	return out, nil
}

func (m *memStores) CreateRequirement(_ context.Context, req types.AccessRequirement) (types.AccessRequirement, error) {
	if req.ID == 0 {
		m.nextReqID++
		req.ID = m.nextReqID
	}
	m.reqs[req.ID] = req
	return req, nil
}

func (m *memStores) HasApproval(_ context.Context, requirementID int64, accessorID int64) (bool, error) {
	for _, a := range m.approvals {
		if a.RequirementID == requirementID && a.AccessorID == accessorID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStores) CreateApproval(_ context.Context, approval types.AccessApproval) (types.AccessApproval, error) {
	if approval.ID == 0 {
		approval.ID = int64(len(m.approvals) + 1)
	}
	m.approvals = append(m.approvals, approval)
	return approval, nil
}

func (m *memStores) GetApproval(_ context.Context, id int64) (types.AccessApproval, error) {
	for _, a := range m.approvals {
		if a.ID == id {
			return a, nil
		}
	}
	return types.AccessApproval{}, ports.ErrRequirementNotFound
}

// Well-known fixture topology ids.
const (
	fixTrashID     = 2
	fixAnonymousID = 10
	fixPublicID    = 11
)

func testPolicy() PlatformPolicy {
	return PlatformPolicy{
		TrashNodeID:          fixTrashID,
		AnonymousPrincipalID: fixAnonymousID,
		PublicGroupID:        fixPublicID,
	}
}

type fixture struct {
	stores    *memStores
	gate      RequirementGate
	evaluator AuthorizationEvaluator
	resolver  InheritanceResolver
	reqsvc    AccessRequirementService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := newMemStores()
	gate := NewRequirementGate(stores, stores)
	evaluator := NewAuthorizationEvaluator(stores, stores, stores, stores, gate, testPolicy())
	return &fixture{
		stores:    stores,
		gate:      gate,
		evaluator: evaluator,
		resolver:  NewInheritanceResolver(stores, stores, stores, evaluator),
		reqsvc:    NewAccessRequirementService(stores, gate),
	}
}

func memberUser(id int64, groups ...int64) types.UserInfo {
	return types.UserInfo{PrincipalID: id, Groups: groups, IsCertified: true, AcceptedTermsOfUse: true}
}

func adminUser() types.UserInfo {
	return types.UserInfo{PrincipalID: 1, IsAdmin: true, IsCertified: true, AcceptedTermsOfUse: true}
}

func anonymousUser() types.UserInfo {
	return types.UserInfo{PrincipalID: fixAnonymousID, Groups: []int64{fixPublicID}, IsAnonymous: true}
}

func complianceUser(id int64) types.UserInfo {
	return types.UserInfo{PrincipalID: id, IsComplianceTeam: true, IsCertified: true, AcceptedTermsOfUse: true}
}
