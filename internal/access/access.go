// Package access decides document visibility across the User → Manager →
// Admin hierarchy. It holds no state and never touches storage: callers load
// the document owner's manager (an index lookup on users.manager_id) before
// evaluating, so every check is a pure function over already-loaded data.
package access

import "docvault/internal/model"

// Actor is the authenticated caller.
type Actor struct {
	ID        string
	Role      model.Role
	ManagerID string // empty when the actor has no manager
}

// ActorFromUser builds an Actor from a user record.
func ActorFromUser(u *model.User) Actor {
	a := Actor{ID: u.ID, Role: u.Role}
	if u.ManagerID != nil {
		a.ManagerID = *u.ManagerID
	}
	return a
}

// Subject is the access-relevant projection of a document.
type Subject struct {
	OwnerID        string
	OwnerManagerID string // manager of the document owner, empty if none
	AccessLevel    model.AccessLevel
}

type rule struct {
	name  string
	match func(a Actor, s Subject) bool
}

// rules is evaluated top to bottom; the first match grants access.
var rules = []rule{
	{"admin", func(a Actor, _ Subject) bool {
		return a.Role == model.RoleAdmin
	}},
	{"public", func(_ Actor, s Subject) bool {
		return s.AccessLevel == model.AccessPublic
	}},
	{"owner", func(a Actor, s Subject) bool {
		return a.ID != "" && s.OwnerID == a.ID
	}},
	// A manager sees the team documents of their direct reports.
	{"team-manager", func(a Actor, s Subject) bool {
		return s.AccessLevel == model.AccessTeam &&
			a.Role == model.RoleManager &&
			s.OwnerManagerID != "" && s.OwnerManagerID == a.ID
	}},
	// A user sees the team documents owned by their own manager. Peers do not
	// see each other's team documents.
	{"team-member", func(a Actor, s Subject) bool {
		return s.AccessLevel == model.AccessTeam &&
			a.Role == model.RoleUser &&
			a.ManagerID != "" && s.OwnerID == a.ManagerID
	}},
}

// CanAccess reports whether a may read the document described by s.
func CanAccess(a Actor, s Subject) bool {
	_, ok := MatchedRule(a, s)
	return ok
}

// MatchedRule returns the name of the first rule granting access.
func MatchedRule(a Actor, s Subject) (string, bool) {
	for _, r := range rules {
		if r.match(a, s) {
			return r.name, true
		}
	}
	return "", false
}

// CanModify is the narrower write predicate: owner or Admin. Managers get
// no write rights over their reports' documents.
func CanModify(a Actor, ownerID string) bool {
	return a.Role == model.RoleAdmin || (a.ID != "" && a.ID == ownerID)
}

// SubjectOf projects a loaded document. d.OwnerManagerID must be populated.
func SubjectOf(d *model.Document) Subject {
	return Subject{
		OwnerID:        d.OwnerID,
		OwnerManagerID: d.OwnerManagerID,
		AccessLevel:    d.AccessLevel,
	}
}
