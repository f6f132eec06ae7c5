package ports

import (
	"context"
	"errors"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
)

var (
	ErrNodeNotFound        = errors.New("node_not_found")
	ErrACLNotFound         = errors.New("acl_not_found")
	ErrRequirementNotFound = errors.New("requirement_not_found")
	ErrEtagConflict        = errors.New("etag_conflict")
)

// TreeStore owns node rows. Structural writes happen elsewhere; the engine
// only reads topology and takes per-node optimistic locks.
type TreeStore interface {
	GetNode(ctx context.Context, id int64) (types.Node, error)
	GetChildIDs(ctx context.Context, id int64) ([]int64, error)
	// GetPathIDs returns the ancestor chain of id, nearest parent first,
	// excluding id itself.
	GetPathIDs(ctx context.Context, id int64) ([]int64, error)
	GetCreatedBy(ctx context.Context, id int64) (int64, error)
}

// BenefactorStore is the persistent nodeId -> benefactorId index. Only the
// inheritance resolver writes to it. Every write method is a single
// transaction, and implementations MUST acquire the per-node locks in
// ascending id order regardless of the order of ids passed in; that total
// order is what keeps overlapping cascades deadlock-free, so it lives here
// in the store contract rather than in caller convention.
type BenefactorStore interface {
	GetBenefactor(ctx context.Context, id int64) (int64, error)
	// CreateACLAndSelfBenefactor creates the ACL and sets
	// benefactor(acl.ResourceID) = acl.ResourceID in one transaction. The
	// node's stored etag must equal nodeEtag; a mismatch returns
	// ErrEtagConflict and writes nothing. On success the node gets a
	// fresh etag in the same transaction.
	CreateACLAndSelfBenefactor(ctx context.Context, acl types.AccessControlList, nodeEtag string) (types.AccessControlList, error)
	// DeleteACLAndRewrite deletes resourceID's ACL and repoints the nodes
	// in ids at newBenefactorID in one transaction, under the same etag
	// check as CreateACLAndSelfBenefactor. Only nodes whose stored
	// benefactor still equals matchKey are repointed: the rewrite set was
	// collected with unlocked reads, and a node that gained its own ACL in
	// the meantime must keep it.
	DeleteACLAndRewrite(ctx context.Context, resourceID int64, nodeEtag string, ids []int64, matchKey int64, newBenefactorID int64) error
	// ApplyRewrites repoints the nodes in ids at newBenefactorID within a
	// single transaction, skipping any node whose stored benefactor no
	// longer equals matchKey.
	ApplyRewrites(ctx context.Context, ids []int64, matchKey int64, newBenefactorID int64) error
}

// ACLStore holds one ACL per self-benefactoring resource.
type ACLStore interface {
	GetACL(ctx context.Context, resourceID int64, resourceType types.ResourceType) (types.AccessControlList, error)
	CreateACL(ctx context.Context, acl types.AccessControlList) (types.AccessControlList, error)
	// UpdateACL compares acl.Etag with the stored etag; on match it writes
	// the new content under a fresh etag, otherwise ErrEtagConflict.
	UpdateACL(ctx context.Context, acl types.AccessControlList) (types.AccessControlList, error)
	DeleteACL(ctx context.Context, resourceID int64, resourceType types.ResourceType) error
	// CanAccess answers whether any of the principals holds action on the
	// resource's ACL. Missing ACL reads as no access, not an error.
	CanAccess(ctx context.Context, principals []int64, resourceID int64, resourceType types.ResourceType, action types.ActionType) (bool, error)
	// NonVisibleChildren returns the children of parentID whose benefactor
	// ACL does not grant READ to any of the principals.
	NonVisibleChildren(ctx context.Context, principals []int64, parentID int64) ([]int64, error)
}

// RequirementStore holds access requirements and approvals. Rows are
// independent of node lifecycle and survive entity deletion.
type RequirementStore interface {
	GetRequirement(ctx context.Context, id int64) (types.AccessRequirement, error)
	GetRequirementsForSubjects(ctx context.Context, subjectIDs []int64, subjectType types.SubjectType) ([]types.AccessRequirement, error)
	CreateRequirement(ctx context.Context, req types.AccessRequirement) (types.AccessRequirement, error)
	HasApproval(ctx context.Context, requirementID int64, accessorID int64) (bool, error)
	CreateApproval(ctx context.Context, approval types.AccessApproval) (types.AccessApproval, error)
	GetApproval(ctx context.Context, id int64) (types.AccessApproval, error)
}
