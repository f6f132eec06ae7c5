package types

// ApprovalKind discriminates the access-requirement families. The original
// polymorphic class hierarchy is collapsed into this enum plus one
// validation function per kind in the services package.
type ApprovalKind string

const (
	ApprovalKindTermsOfUse  ApprovalKind = "TERMS_OF_USE"
	ApprovalKindACT         ApprovalKind = "ACT"
	ApprovalKindPostMessage ApprovalKind = "POST_MESSAGE"
	ApprovalKindSelfSign    ApprovalKind = "SELF_SIGN"
)

// SelfSatisfiable reports whether the accessor can complete the approval
// themself in one step. Such requirements never appear in an unmet list:
// they block only until the accept click, which is outside the evaluator.
func (k ApprovalKind) SelfSatisfiable() bool {
	return k == ApprovalKindTermsOfUse || k == ApprovalKindSelfSign
}

type SubjectType string

const (
	SubjectEntity     SubjectType = "ENTITY"
	SubjectTeam       SubjectType = "TEAM"
	SubjectEvaluation SubjectType = "EVALUATION"
)

type Subject struct {
	ID   int64
	Type SubjectType
}

// AccessRequirement is a compliance condition gating RequiredAction on its
// subjects and, for entity subjects, on everything beneath them.
// Requirement rows outlive the entities they point at; they are kept for
// audit after entity deletion.
type AccessRequirement struct {
	ID             int64
	Kind           ApprovalKind
	Subjects       []Subject
	RequiredAction ActionType
	CreatedBy      int64
	Etag           string
}

// AccessApproval is evidence that one principal satisfied one requirement.
type AccessApproval struct {
	ID            int64
	RequirementID int64
	AccessorID    int64
	Kind          ApprovalKind
	CreatedBy     int64
}
