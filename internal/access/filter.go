package access

import "docvault/internal/model"

// Filter is the bulk form of CanAccess, expressed as plain data so a
// repository can render it into a query predicate. A document is visible
// when any of the following holds:
//
//   - All is set
//   - access level is public
//   - owner is OwnerID
//   - access level is team and the owner's manager is TeamOwnerManagerID
//   - access level is team and the owner is TeamOwnerID
//
// Empty ID fields disable their clause.
type Filter struct {
	All                bool
	OwnerID            string
	TeamOwnerManagerID string
	TeamOwnerID        string
}

// BuildFilter returns the Filter for a; it must agree with CanAccess for
// every document.
func BuildFilter(a Actor) Filter {
	if a.Role == model.RoleAdmin {
		return Filter{All: true}
	}
	f := Filter{OwnerID: a.ID}
	switch a.Role {
	case model.RoleManager:
		f.TeamOwnerManagerID = a.ID
	case model.RoleUser:
		f.TeamOwnerID = a.ManagerID
	}
	return f
}

// Match applies the filter to a single subject.
func (f Filter) Match(s Subject) bool {
	if f.All || s.AccessLevel == model.AccessPublic {
		return true
	}
	if f.OwnerID != "" && s.OwnerID == f.OwnerID {
		return true
	}
	if s.AccessLevel != model.AccessTeam {
		return false
	}
	if f.TeamOwnerManagerID != "" && s.OwnerManagerID == f.TeamOwnerManagerID {
		return true
	}
	return f.TeamOwnerID != "" && s.OwnerID == f.TeamOwnerID
}
