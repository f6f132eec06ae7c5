package types

import "slices"

// ResourceAccess grants a set of actions to one principal. The action set
// must never be empty; the validator rejects empty rows before any write.
type ResourceAccess struct {
	PrincipalID int64
	AccessTypes []ActionType
}

func (ra ResourceAccess) Allows(action ActionType) bool {
	return slices.Contains(ra.AccessTypes, action)
}

// AccessControlList belongs to exactly one self-benefactoring node.
type AccessControlList struct {
	ResourceID     int64
	ResourceType   ResourceType
	ResourceAccess []ResourceAccess
	Etag           string
}

// Grants reports whether any of the given principals holds the action.
func (acl AccessControlList) Grants(principals []int64, action ActionType) bool {
	for _, ra := range acl.ResourceAccess {
		if !slices.Contains(principals, ra.PrincipalID) {
			continue
		}
		if ra.Allows(action) {
			return true
		}
	}
	return false
}

// AccessFor returns the row for a principal, if present.
func (acl AccessControlList) AccessFor(principalID int64) (ResourceAccess, bool) {
	for _, ra := range acl.ResourceAccess {
		if ra.PrincipalID == principalID {
			return ra, true
		}
	}
	return ResourceAccess{}, false
}
