package types

type ActionType string

const (
	ActionRead              ActionType = "READ"
	ActionCreate            ActionType = "CREATE"
	ActionUpdate            ActionType = "UPDATE"
	ActionDelete            ActionType = "DELETE"
	ActionDownload          ActionType = "DOWNLOAD"
	ActionUpload            ActionType = "UPLOAD"
	ActionChangePermissions ActionType = "CHANGE_PERMISSIONS"
	ActionChangeSettings    ActionType = "CHANGE_SETTINGS"
	ActionModerate          ActionType = "MODERATE"
)

type ResourceType string

const (
	ResourceEntity            ResourceType = "ENTITY"
	ResourceTeam              ResourceType = "TEAM"
	ResourceEvaluation        ResourceType = "EVALUATION"
	ResourceAccessRequirement ResourceType = "ACCESS_REQUIREMENT"
	ResourceAccessApproval    ResourceType = "ACCESS_APPROVAL"
)

type EntityKind string

const (
	EntityKindProject EntityKind = "project"
	EntityKindFolder  EntityKind = "folder"
	EntityKindFile    EntityKind = "file"
)

// Node is a row of the tree store. ParentID nil means the node hangs
// directly off the forest root; such a node can never inherit and must own
// its ACL. Etag is the optimistic-lock token; every structural mutation
// bumps it.
type Node struct {
	ID        int64
	ParentID  *int64
	Kind      EntityKind
	CreatedBy int64
	Etag      string
}

func (n Node) IsParentRoot() bool { return n.ParentID == nil }
