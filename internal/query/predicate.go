package query

// Predicate selects rows from a collection. The set of predicates is closed;
// each collection accepts a fixed subset of them.
type Predicate interface {
	predicate()
}

// All matches every row.
type All struct{}

// ByID matches the row with the given id.
type ByID struct{ ID int64 }

// ByEmail matches the user with the given email.
type ByEmail struct{ Email string }

// ByUserID matches rows owned by a user.
type ByUserID struct{ UserID int64 }

// ByAdmin matches admin users.
type ByAdmin struct{}

// ByVerifyToken matches the user holding an email verification token.
type ByVerifyToken struct{ Token string }

// ByResetToken matches the user holding a password reset token that expires after Now.
type ByResetToken struct {
	Token string
	Now   int64
}

// ByActive matches rows whose active flag is set.
type ByActive struct{}

// ByPortNumber matches the mapping bound to an external port.
type ByPortNumber struct{ Port int }

// ByIDAndUserID matches a row by id only when it belongs to the user.
type ByIDAndUserID struct {
	ID     int64
	UserID int64
}

// ByUserIDActive matches active mappings owned by a user.
type ByUserIDActive struct{ UserID int64 }

// Since matches traffic samples recorded at or after From.
type Since struct{ From int64 }

// ByUserIDSince matches a user's traffic samples recorded at or after From.
type ByUserIDSince struct {
	UserID int64
	From   int64
}

func (All) predicate()            {}
func (ByID) predicate()           {}
func (ByEmail) predicate()        {}
func (ByUserID) predicate()       {}
func (ByAdmin) predicate()        {}
func (ByVerifyToken) predicate()  {}
func (ByResetToken) predicate()   {}
func (ByActive) predicate()       {}
func (ByPortNumber) predicate()   {}
func (ByIDAndUserID) predicate()  {}
func (ByUserIDActive) predicate() {}
func (Since) predicate()          {}
func (ByUserIDSince) predicate()  {}
