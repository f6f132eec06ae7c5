package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/ports"
	"github.com/jacksonlee411/Groves-And-Gates/modules/entity/domain/types"
	"github.com/jacksonlee411/Groves-And-Gates/pkg/uuidv7"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EntityPGStore backs all four store ports with the entity schema:
// entity.nodes carries the tree plus the benefactor pointer, entity.acls /
// entity.acl_entries the access lists, entity.access_requirements /
// entity.requirement_subjects / entity.access_approvals the compliance
// rows. Every method runs in its own transaction.
type EntityPGStore struct {
	pool pgBeginner
}

func NewEntityPGStore(pool pgBeginner) *EntityPGStore {
	return &EntityPGStore{pool: pool}
}

var (
	_ ports.TreeStore        = (*EntityPGStore)(nil)
	_ ports.BenefactorStore  = (*EntityPGStore)(nil)
	_ ports.ACLStore         = (*EntityPGStore)(nil)
	_ ports.RequirementStore = (*EntityPGStore)(nil)
)

func (s *EntityPGStore) GetNode(ctx context.Context, id int64) (types.Node, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Node{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var n types.Node
	err = tx.QueryRow(ctx, `
SELECT id, parent_id, kind, created_by, etag
FROM entity.nodes
WHERE id = $1
`, id).Scan(&n.ID, &n.ParentID, &n.Kind, &n.CreatedBy, &n.Etag)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Node{}, ports.ErrNodeNotFound
	}
	if err != nil {
		return types.Node{}, err
	}
	return n, tx.Commit(ctx)
}

func (s *EntityPGStore) GetChildIDs(ctx context.Context, id int64) ([]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT id FROM entity.nodes WHERE parent_id = $1 ORDER BY id
`, id)
	if err != nil {
		return nil, err
	}
	out, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit(ctx)
}

func (s *EntityPGStore) GetPathIDs(ctx context.Context, id int64) ([]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM entity.nodes WHERE id = $1)
`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ports.ErrNodeNotFound
	}

	rows, err := tx.Query(ctx, `
WITH RECURSIVE chain AS (
  SELECT parent_id, 1 AS depth
  FROM entity.nodes
  WHERE id = $1
  UNION ALL
  SELECT n.parent_id, c.depth + 1
  FROM entity.nodes n
  JOIN chain c ON n.id = c.parent_id
)
SELECT parent_id FROM chain WHERE parent_id IS NOT NULL ORDER BY depth
`, id)
	if err != nil {
		return nil, err
	}
	out, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit(ctx)
}

func (s *EntityPGStore) GetCreatedBy(ctx context.Context, id int64) (int64, error) {
	n, err := s.GetNode(ctx, id)
	if err != nil {
		return 0, err
	}
	return n.CreatedBy, nil
}

// lockAndBumpEtag takes the node's row lock inside tx, compares the stored
// etag with expectedEtag and writes a fresh one on match. The check happens
// under the lock, so it re-validates whatever the caller observed earlier
// with unlocked reads.
func lockAndBumpEtag(ctx context.Context, tx pgx.Tx, id int64, expectedEtag string) error {
	var stored string
	err := tx.QueryRow(ctx, `
SELECT etag FROM entity.nodes WHERE id = $1 FOR UPDATE
`, id).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrNodeNotFound
	}
	if err != nil {
		return err
	}
	if stored != expectedEtag {
		return ports.ErrEtagConflict
	}
	_, err = tx.Exec(ctx, `
UPDATE entity.nodes SET etag = $2 WHERE id = $1
`, id, uuidv7.NewEtag())
	return err
}

func (s *EntityPGStore) GetBenefactor(ctx context.Context, id int64) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var benefactor int64
	err = tx.QueryRow(ctx, `
SELECT benefactor_id FROM entity.nodes WHERE id = $1
`, id).Scan(&benefactor)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ports.ErrNodeNotFound
	}
	if err != nil {
		return 0, err
	}
	return benefactor, tx.Commit(ctx)
}

func (s *EntityPGStore) CreateACLAndSelfBenefactor(ctx context.Context, acl types.AccessControlList, nodeEtag string) (types.AccessControlList, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AccessControlList{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := lockAndBumpEtag(ctx, tx, acl.ResourceID, nodeEtag); err != nil {
		return types.AccessControlList{}, err
	}
	if err := insertACL(ctx, tx, acl); err != nil {
		return types.AccessControlList{}, err
	}
	if _, err := tx.Exec(ctx, `
UPDATE entity.nodes SET benefactor_id = id WHERE id = $1
`, acl.ResourceID); err != nil {
		return types.AccessControlList{}, err
	}
	return acl, tx.Commit(ctx)
}

func (s *EntityPGStore) DeleteACLAndRewrite(ctx context.Context, resourceID int64, nodeEtag string, ids []int64, matchKey int64, newBenefactorID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := lockNodesAscending(ctx, tx, ids); err != nil {
		return err
	}
	if err := lockAndBumpEtag(ctx, tx, resourceID, nodeEtag); err != nil {
		return err
	}
	if err := deleteACL(ctx, tx, resourceID, types.ResourceEntity); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
UPDATE entity.nodes SET benefactor_id = $3 WHERE id = ANY($1) AND benefactor_id = $2
`, ids, matchKey, newBenefactorID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *EntityPGStore) ApplyRewrites(ctx context.Context, ids []int64, matchKey int64, newBenefactorID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := lockNodesAscending(ctx, tx, ids); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
UPDATE entity.nodes SET benefactor_id = $3 WHERE id = ANY($1) AND benefactor_id = $2
`, ids, matchKey, newBenefactorID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// lockNodesAscending takes the per-node row locks for a rewrite batch. The
// ORDER BY id is the deadlock guarantee for overlapping cascades and is
// load-bearing: every write path locks through here.
func lockNodesAscending(ctx context.Context, tx pgx.Tx, ids []int64) error {
	rows, err := tx.Query(ctx, `
SELECT id FROM entity.nodes WHERE id = ANY($1) ORDER BY id FOR UPDATE
`, ids)
	if err != nil {
		return err
	}
	locked, err := scanIDs(rows)
	if err != nil {
		return err
	}
	if len(locked) != len(ids) {
		return ports.ErrNodeNotFound
	}
	return nil
}

func (s *EntityPGStore) GetACL(ctx context.Context, resourceID int64, resourceType types.ResourceType) (types.AccessControlList, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AccessControlList{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	acl, err := readACL(ctx, tx, resourceID, resourceType)
	if err != nil {
		return types.AccessControlList{}, err
	}
	return acl, tx.Commit(ctx)
}

func (s *EntityPGStore) CreateACL(ctx context.Context, acl types.AccessControlList) (types.AccessControlList, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AccessControlList{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := insertACL(ctx, tx, acl); err != nil {
		return types.AccessControlList{}, err
	}
	return acl, tx.Commit(ctx)
}

func (s *EntityPGStore) UpdateACL(ctx context.Context, acl types.AccessControlList) (types.AccessControlList, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AccessControlList{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var stored string
	err = tx.QueryRow(ctx, `
SELECT etag FROM entity.acls
WHERE resource_id = $1 AND resource_type = $2
FOR UPDATE
`, acl.ResourceID, acl.ResourceType).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.AccessControlList{}, ports.ErrACLNotFound
	}
	if err != nil {
		return types.AccessControlList{}, err
	}
	if stored != acl.Etag {
		return types.AccessControlList{}, ports.ErrEtagConflict
	}

	acl.Etag = uuidv7.NewEtag()
	if _, err := tx.Exec(ctx, `
UPDATE entity.acls SET etag = $3
WHERE resource_id = $1 AND resource_type = $2
`, acl.ResourceID, acl.ResourceType, acl.Etag); err != nil {
		return types.AccessControlList{}, err
	}
	if _, err := tx.Exec(ctx, `
DELETE FROM entity.acl_entries WHERE resource_id = $1 AND resource_type = $2
`, acl.ResourceID, acl.ResourceType); err != nil {
		return types.AccessControlList{}, err
	}
	if err := insertACLEntries(ctx, tx, acl); err != nil {
		return types.AccessControlList{}, err
	}
	return acl, tx.Commit(ctx)
}

func (s *EntityPGStore) DeleteACL(ctx context.Context, resourceID int64, resourceType types.ResourceType) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := deleteACL(ctx, tx, resourceID, resourceType); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *EntityPGStore) CanAccess(ctx context.Context, principals []int64, resourceID int64, resourceType types.ResourceType, action types.ActionType) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var allowed bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM entity.acl_entries
  WHERE resource_id = $1
    AND resource_type = $2
    AND principal_id = ANY($3)
    AND $4 = ANY(access_types)
)
`, resourceID, resourceType, principals, string(action)).Scan(&allowed); err != nil {
		return false, err
	}
	return allowed, tx.Commit(ctx)
}

func (s *EntityPGStore) NonVisibleChildren(ctx context.Context, principals []int64, parentID int64) ([]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT n.id
FROM entity.nodes n
WHERE n.parent_id = $1
  AND NOT EXISTS (
    SELECT 1 FROM entity.acl_entries e
    WHERE e.resource_id = n.benefactor_id
      AND e.resource_type = 'ENTITY'
      AND e.principal_id = ANY($2)
      AND 'READ' = ANY(e.access_types)
  )
ORDER BY n.id
`, parentID, principals)
	if err != nil {
		return nil, err
	}
	out, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit(ctx)
}

func (s *EntityPGStore) GetRequirement(ctx context.Context, id int64) (types.AccessRequirement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AccessRequirement{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var req types.AccessRequirement
	err = tx.QueryRow(ctx, `
SELECT id, kind, required_action, created_by, etag
FROM entity.access_requirements
WHERE id = $1
`, id).Scan(&req.ID, &req.Kind, &req.RequiredAction, &req.CreatedBy, &req.Etag)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.AccessRequirement{}, ports.ErrRequirementNotFound
	}
	if err != nil {
		return types.AccessRequirement{}, err
	}
	req.Subjects, err = readSubjects(ctx, tx, req.ID)
	if err != nil {
		return types.AccessRequirement{}, err
	}
	return req, tx.Commit(ctx)
}

func (s *EntityPGStore) GetRequirementsForSubjects(ctx context.Context, subjectIDs []int64, subjectType types.SubjectType) ([]types.AccessRequirement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT DISTINCT r.id, r.kind, r.required_action, r.created_by, r.etag
FROM entity.access_requirements r
JOIN entity.requirement_subjects s ON s.requirement_id = r.id
WHERE s.subject_id = ANY($1) AND s.subject_type = $2
ORDER BY r.id
`, subjectIDs, subjectType)
	if err != nil {
		return nil, err
	}
	var out []types.AccessRequirement
	for rows.Next() {
		var req types.AccessRequirement
		if err := rows.Scan(&req.ID, &req.Kind, &req.RequiredAction, &req.CreatedBy, &req.Etag); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, req)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Subjects, err = readSubjects(ctx, tx, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, tx.Commit(ctx)
}

func (s *EntityPGStore) CreateRequirement(ctx context.Context, req types.AccessRequirement) (types.AccessRequirement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AccessRequirement{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := tx.QueryRow(ctx, `
INSERT INTO entity.access_requirements (kind, required_action, created_by, etag)
VALUES ($1, $2, $3, $4)
RETURNING id
`, req.Kind, req.RequiredAction, req.CreatedBy, req.Etag).Scan(&req.ID); err != nil {
		return types.AccessRequirement{}, err
	}
	for _, subject := range req.Subjects {
		if _, err := tx.Exec(ctx, `
INSERT INTO entity.requirement_subjects (requirement_id, subject_id, subject_type)
VALUES ($1, $2, $3)
`, req.ID, subject.ID, subject.Type); err != nil {
			return types.AccessRequirement{}, err
		}
	}
	return req, tx.Commit(ctx)
}

func (s *EntityPGStore) HasApproval(ctx context.Context, requirementID int64, accessorID int64) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var ok bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM entity.access_approvals
  WHERE requirement_id = $1 AND accessor_id = $2
)
`, requirementID, accessorID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, tx.Commit(ctx)
}

func (s *EntityPGStore) CreateApproval(ctx context.Context, approval types.AccessApproval) (types.AccessApproval, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AccessApproval{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := tx.QueryRow(ctx, `
INSERT INTO entity.access_approvals (requirement_id, accessor_id, kind, created_by)
VALUES ($1, $2, $3, $4)
RETURNING id
`, approval.RequirementID, approval.AccessorID, approval.Kind, approval.CreatedBy).Scan(&approval.ID); err != nil {
		return types.AccessApproval{}, err
	}
	return approval, tx.Commit(ctx)
}

func (s *EntityPGStore) GetApproval(ctx context.Context, id int64) (types.AccessApproval, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AccessApproval{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var approval types.AccessApproval
	err = tx.QueryRow(ctx, `
SELECT id, requirement_id, accessor_id, kind, created_by
FROM entity.access_approvals
WHERE id = $1
`, id).Scan(&approval.ID, &approval.RequirementID, &approval.AccessorID, &approval.Kind, &approval.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.AccessApproval{}, ports.ErrRequirementNotFound
	}
	if err != nil {
		return types.AccessApproval{}, err
	}
	return approval, tx.Commit(ctx)
}

func insertACL(ctx context.Context, tx pgx.Tx, acl types.AccessControlList) error {
	if _, err := tx.Exec(ctx, `
INSERT INTO entity.acls (resource_id, resource_type, etag)
VALUES ($1, $2, $3)
`, acl.ResourceID, acl.ResourceType, acl.Etag); err != nil {
		return err
	}
	return insertACLEntries(ctx, tx, acl)
}

func insertACLEntries(ctx context.Context, tx pgx.Tx, acl types.AccessControlList) error {
	for _, ra := range acl.ResourceAccess {
		actions := make([]string, len(ra.AccessTypes))
		for i, a := range ra.AccessTypes {
			actions[i] = string(a)
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO entity.acl_entries (resource_id, resource_type, principal_id, access_types)
VALUES ($1, $2, $3, $4)
`, acl.ResourceID, acl.ResourceType, ra.PrincipalID, actions); err != nil {
			return err
		}
	}
	return nil
}

func deleteACL(ctx context.Context, tx pgx.Tx, resourceID int64, resourceType types.ResourceType) error {
	if _, err := tx.Exec(ctx, `
DELETE FROM entity.acl_entries WHERE resource_id = $1 AND resource_type = $2
`, resourceID, resourceType); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
DELETE FROM entity.acls WHERE resource_id = $1 AND resource_type = $2
`, resourceID, resourceType)
	return err
}

func readACL(ctx context.Context, tx pgx.Tx, resourceID int64, resourceType types.ResourceType) (types.AccessControlList, error) {
	acl := types.AccessControlList{ResourceID: resourceID, ResourceType: resourceType}
	err := tx.QueryRow(ctx, `
SELECT etag FROM entity.acls WHERE resource_id = $1 AND resource_type = $2
`, resourceID, resourceType).Scan(&acl.Etag)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.AccessControlList{}, ports.ErrACLNotFound
	}
	if err != nil {
		return types.AccessControlList{}, err
	}

	rows, err := tx.Query(ctx, `
SELECT principal_id, access_types
FROM entity.acl_entries
WHERE resource_id = $1 AND resource_type = $2
ORDER BY principal_id
`, resourceID, resourceType)
	if err != nil {
		return types.AccessControlList{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var principal int64
		var actions []string
		if err := rows.Scan(&principal, &actions); err != nil {
			return types.AccessControlList{}, err
		}
		ra := types.ResourceAccess{PrincipalID: principal, AccessTypes: make([]types.ActionType, len(actions))}
		for i, a := range actions {
			ra.AccessTypes[i] = types.ActionType(a)
		}
		acl.ResourceAccess = append(acl.ResourceAccess, ra)
	}
	return acl, rows.Err()
}

func readSubjects(ctx context.Context, tx pgx.Tx, requirementID int64) ([]types.Subject, error) {
	rows, err := tx.Query(ctx, `
SELECT subject_id, subject_type
FROM entity.requirement_subjects
WHERE requirement_id = $1
ORDER BY subject_id
`, requirementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Subject
	for rows.Next() {
		var s types.Subject
		if err := rows.Scan(&s.ID, &s.Type); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanIDs(rows pgx.Rows) ([]int64, error) {
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
