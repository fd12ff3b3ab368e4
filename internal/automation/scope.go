package automation

import "strconv"

// Scope restricts a pass to one owner's applications or leaves it global.
type Scope struct {
	userID int64
	single bool
}

// AllUsers is the scope of the background pass.
func AllUsers() Scope {
	return Scope{}
}

// SingleUser is the scope of an on-demand pass. The id is a filter only; an
// unknown user simply matches no rows.
func SingleUser(userID int64) Scope {
	return Scope{userID: userID, single: true}
}

// UserID returns the owner filter, if any.
func (s Scope) UserID() (int64, bool) {
	return s.userID, s.single
}

// Kind is the low-cardinality label used for metrics.
func (s Scope) Kind() string {
	if s.single {
		return "user"
	}
	return "all"
}

func (s Scope) String() string {
	if s.single {
		return "user:" + strconv.FormatInt(s.userID, 10)
	}
	return "all"
}
