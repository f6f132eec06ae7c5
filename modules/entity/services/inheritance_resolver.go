package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/ports"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/httperr"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/uuidv7"
)

const (
	errEntityNotFound        = "ENTITY_NOT_FOUND"
	errACLNotFound           = "ACL_NOT_FOUND"
	errAlreadyHasACL         = "ALREADY_HAS_ACL"
	errAlreadyInherits       = "ALREADY_INHERITS"
	errParentIsRoot          = "PARENT_IS_ROOT"
	errInheritedACLImmutable = "CANNOT_UPDATE_INHERITED_ACL"
	errEntityEtagConflict    = "ENTITY_ETAG_CONFLICT"
	errACLEtagConflict       = "ACL_ETAG_CONFLICT"
)

// test seam
var newEtag = uuidv7.NewEtag

// ACLResult is what GetACL hands back: the effective ACL plus where it
// actually lives. Inherited is true when the ACL belongs to an ancestor.
type ACLResult struct {
	ACL          types.AccessControlList
	BenefactorID int64
	Inherited    bool
}

// InheritanceResolver owns every mutation of the benefactor index and the
// entity ACLs. It is the only writer; the evaluator and gate only read.
type InheritanceResolver interface {
	GetBenefactor(ctx context.Context, nodeID int64) (int64, error)
	GetACL(ctx context.Context, user types.UserInfo, nodeID int64) (ACLResult, error)
	// OverrideInheritance gives nodeID its own ACL and makes it
	// self-benefactoring. Descendants are untouched: none of them can have
	// been pointing at nodeID before the call. nodeEtag is the etag the
	// caller observed; a stale one fails with Conflict.
	OverrideInheritance(ctx context.Context, user types.UserInfo, nodeID int64, acl types.AccessControlList, nodeEtag string) (types.AccessControlList, error)
	// RestoreInheritance deletes nodeID's ACL and repoints the node, plus
	// every descendant that was inheriting from it, at the parent's
	// benefactor in one transaction.
	RestoreInheritance(ctx context.Context, user types.UserInfo, nodeID int64, nodeEtag string) error
	UpdateACL(ctx context.Context, user types.UserInfo, acl types.AccessControlList) (types.AccessControlList, error)
	// NodeParentChanged repairs the benefactor index after nodeID moved
	// under newParentID. With skipSelfBenefactor set, a self-benefactoring
	// node is left alone: its local ACL is authoritative and relocation
	// does not affect it. Callers passing skipSelfBenefactor=false must
	// have already removed the node's local ACL.
	NodeParentChanged(ctx context.Context, user types.UserInfo, nodeID int64, newParentID int64, skipSelfBenefactor bool) error
}

type inheritanceResolver struct {
	tree        ports.TreeStore
	benefactors ports.BenefactorStore
	acls        ports.ACLStore
	evaluator   AuthorizationEvaluator
}

func NewInheritanceResolver(tree ports.TreeStore, benefactors ports.BenefactorStore, acls ports.ACLStore, evaluator AuthorizationEvaluator) InheritanceResolver {
	return &inheritanceResolver{
		tree:        tree,
		benefactors: benefactors,
		acls:        acls,
		evaluator:   evaluator,
	}
}

func (r *inheritanceResolver) GetBenefactor(ctx context.Context, nodeID int64) (int64, error) {
	benefactor, err := r.benefactors.GetBenefactor(ctx, nodeID)
	if err != nil {
		return 0, mapStoreErr(err)
	}
	return benefactor, nil
}

func (r *inheritanceResolver) GetACL(ctx context.Context, user types.UserInfo, nodeID int64) (ACLResult, error) {
	if err := r.requireAccess(ctx, user, nodeID, types.ActionRead); err != nil {
		return ACLResult{}, err
	}
	benefactor, err := r.benefactors.GetBenefactor(ctx, nodeID)
	if err != nil {
		return ACLResult{}, mapStoreErr(err)
	}
	acl, err := r.acls.GetACL(ctx, benefactor, types.ResourceEntity)
	if err != nil {
		return ACLResult{}, mapStoreErr(err)
	}
	return ACLResult{
		ACL:          acl,
		BenefactorID: benefactor,
		Inherited:    benefactor != nodeID,
	}, nil
}

func (r *inheritanceResolver) OverrideInheritance(ctx context.Context, user types.UserInfo, nodeID int64, acl types.AccessControlList, nodeEtag string) (types.AccessControlList, error) {
	node, err := r.tree.GetNode(ctx, nodeID)
	if err != nil {
		return types.AccessControlList{}, mapStoreErr(err)
	}
	// Check the observed etag before any precondition: a caller racing a
	// completed override must see Conflict, not the precondition failure
	// the winner's write created.
	if node.Etag != nodeEtag {
		return types.AccessControlList{}, httperr.NewConflict(errEntityEtagConflict)
	}
	benefactor, err := r.benefactors.GetBenefactor(ctx, nodeID)
	if err != nil {
		return types.AccessControlList{}, mapStoreErr(err)
	}
	if benefactor == nodeID {
		return types.AccessControlList{}, httperr.NewUnauthorized(errAlreadyHasACL)
	}
	// CHANGE_PERMISSIONS resolves against the current benefactor's ACL.
	if err := r.requireAccess(ctx, user, nodeID, types.ActionChangePermissions); err != nil {
		return types.AccessControlList{}, err
	}

	acl.ResourceID = nodeID
	acl.ResourceType = types.ResourceEntity
	if err := ValidateACLContent(acl, user, node.CreatedBy); err != nil {
		return types.AccessControlList{}, err
	}

	acl.Etag = newEtag()
	created, err := r.benefactors.CreateACLAndSelfBenefactor(ctx, acl, nodeEtag)
	if err != nil {
		return types.AccessControlList{}, mapStoreErr(err)
	}
	return created, nil
}

func (r *inheritanceResolver) RestoreInheritance(ctx context.Context, user types.UserInfo, nodeID int64, nodeEtag string) error {
	node, err := r.tree.GetNode(ctx, nodeID)
	if err != nil {
		return mapStoreErr(err)
	}
	if node.Etag != nodeEtag {
		return httperr.NewConflict(errEntityEtagConflict)
	}
	if node.IsParentRoot() {
		return httperr.NewUnauthorized(errParentIsRoot)
	}
	benefactor, err := r.benefactors.GetBenefactor(ctx, nodeID)
	if err != nil {
		return mapStoreErr(err)
	}
	if benefactor != nodeID {
		return httperr.NewUnauthorized(errAlreadyInherits)
	}
	if err := r.requireAccess(ctx, user, nodeID, types.ActionChangePermissions); err != nil {
		return err
	}

	target, err := r.benefactors.GetBenefactor(ctx, *node.ParentID)
	if err != nil {
		return mapStoreErr(err)
	}

	// The rewrite set is collected with unlocked reads. The store
	// re-validates under the row locks: the node's etag must still match,
	// and every collected descendant must still inherit from nodeID.
	rewrites, err := r.collectRewriteSet(ctx, nodeID, nodeID)
	if err != nil {
		return mapStoreErr(err)
	}
	if err := r.benefactors.DeleteACLAndRewrite(ctx, nodeID, nodeEtag, rewrites, nodeID, target); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

func (r *inheritanceResolver) UpdateACL(ctx context.Context, user types.UserInfo, acl types.AccessControlList) (types.AccessControlList, error) {
	node, err := r.tree.GetNode(ctx, acl.ResourceID)
	if err != nil {
		return types.AccessControlList{}, mapStoreErr(err)
	}
	benefactor, err := r.benefactors.GetBenefactor(ctx, acl.ResourceID)
	if err != nil {
		return types.AccessControlList{}, mapStoreErr(err)
	}
	if benefactor != acl.ResourceID {
		return types.AccessControlList{}, httperr.NewUnauthorized(errInheritedACLImmutable)
	}
	if err := r.requireAccess(ctx, user, acl.ResourceID, types.ActionChangePermissions); err != nil {
		return types.AccessControlList{}, err
	}
	acl.ResourceType = types.ResourceEntity
	if err := ValidateACLContent(acl, user, node.CreatedBy); err != nil {
		return types.AccessControlList{}, err
	}

	updated, err := r.acls.UpdateACL(ctx, acl)
	if errors.Is(err, ports.ErrEtagConflict) {
		return types.AccessControlList{}, httperr.NewConflict(errACLEtagConflict)
	}
	if err != nil {
		return types.AccessControlList{}, mapStoreErr(err)
	}
	return updated, nil
}

func (r *inheritanceResolver) NodeParentChanged(ctx context.Context, user types.UserInfo, nodeID int64, newParentID int64, skipSelfBenefactor bool) error {
	oldBenefactor, err := r.benefactors.GetBenefactor(ctx, nodeID)
	if err != nil {
		return mapStoreErr(err)
	}
	if skipSelfBenefactor && oldBenefactor == nodeID {
		return nil
	}
	if err := r.requireAccess(ctx, user, newParentID, types.ActionCreate); err != nil {
		return err
	}
	target, err := r.benefactors.GetBenefactor(ctx, newParentID)
	if err != nil {
		return mapStoreErr(err)
	}
	if target == oldBenefactor {
		return nil
	}

	// Match on the pre-change benefactor so only descendants inheriting
	// through the moved edge get rewritten. The store applies the same
	// match under the row locks: a descendant that gained its own ACL
	// after collection keeps its self-benefactor pointer.
	rewrites, err := r.collectRewriteSet(ctx, nodeID, oldBenefactor)
	if err != nil {
		return mapStoreErr(err)
	}
	if err := r.benefactors.ApplyRewrites(ctx, rewrites, oldBenefactor, target); err != nil {
		return mapStoreErr(err)
	}
	return nil
}

// collectRewriteSet walks the subtree under startID with an explicit
// worklist (deep trees must not grow the call stack). A child is added and
// descended into only while its current benefactor equals matchKey;
// self-benefactoring descendants and anything beneath them stay untouched.
// startID itself is always in the set. The result is sorted ascending so
// that overlapping cascades acquire row locks in one total order.
func (r *inheritanceResolver) collectRewriteSet(ctx context.Context, startID int64, matchKey int64) ([]int64, error) {
	ids := []int64{startID}
	visited := map[int64]bool{startID: true}
	stack := []int64{startID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		children, err := r.tree.GetChildIDs(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child] {
				// A revisit means the parent pointers contain a cycle. That
				// is a broken structural invariant, not a recoverable state.
				panic(fmt.Sprintf("benefactor cascade revisited node %d: tree contains a cycle", child))
			}
			visited[child] = true
			b, err := r.benefactors.GetBenefactor(ctx, child)
			if err != nil {
				return nil, err
			}
			if b != matchKey {
				continue
			}
			ids = append(ids, child)
			stack = append(stack, child)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// requireAccess runs a read-side decision and turns a denial into an
// Unauthorized error for mutation paths.
func (r *inheritanceResolver) requireAccess(ctx context.Context, user types.UserInfo, nodeID int64, action types.ActionType) error {
	decision, err := r.evaluator.CanAccess(ctx, user, nodeID, types.ResourceEntity, action)
	if err != nil {
		return mapStoreErr(err)
	}
	if !decision.Authorized {
		return httperr.NewUnauthorized(decision.Reason)
	}
	return nil
}

// mapStoreErr lifts port sentinels into the caller-facing error taxonomy.
func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, ports.ErrNodeNotFound):
		return httperr.NewNotFound(errEntityNotFound)
	case errors.Is(err, ports.ErrACLNotFound):
		return httperr.NewNotFound(errACLNotFound)
	case errors.Is(err, ports.ErrEtagConflict):
		return httperr.NewConflict(errEntityEtagConflict)
	default:
		return err
	}
}
