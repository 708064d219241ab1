package kanban

// Policy is the single authorization predicate set consulted before every
// state-mutating or sensitive-read operation. The same rules used to be
// replicated inside each service; collapsing them here keeps the role
// bypass and the owner/member distinction in one place.
//
// Every predicate treats a nil principal as anonymous and denies. RoleAdmin
// is allowed regardless of ownership or membership. The board owner is never
// part of the member set, so each rule tests owner OR member explicitly.
type Policy struct{}

// NewPolicy returns the rule set.
func NewPolicy() Policy {
	return Policy{}
}

// CanListAllBoards: only admins see every board.
func (Policy) CanListAllBoards(principal *User) bool {
	return principal.HasRole(RoleAdmin)
}

// CanListBoardsForUser: admins, or the user themselves.
func (Policy) CanListBoardsForUser(principal *User, username string) bool {
	if principal == nil {
		return false
	}
	return principal.HasRole(RoleAdmin) || principal.Username == username
}

// CanReadBoard: admins, the owner, or any member. The same rule guards
// board updates, member changes, and all task operations on the board.
func (Policy) CanReadBoard(principal *User, board *Board) bool {
	if principal == nil || board == nil {
		return false
	}
	return principal.HasRole(RoleAdmin) || board.IsOwner(principal) || board.HasMember(principal)
}

// CanUpdateBoard matches CanReadBoard: membership grants write access.
func (p Policy) CanUpdateBoard(principal *User, board *Board) bool {
	return p.CanReadBoard(principal, board)
}

// CanDeleteBoard: membership is not enough, only admins and the owner.
func (Policy) CanDeleteBoard(principal *User, board *Board) bool {
	if principal == nil || board == nil {
		return false
	}
	return principal.HasRole(RoleAdmin) || board.IsOwner(principal)
}

// CanChangeMembers: admins, the owner, or any member.
func (p Policy) CanChangeMembers(principal *User, board *Board) bool {
	return p.CanReadBoard(principal, board)
}

// CanChangeOwner: admins or the current owner. The membership precondition
// on the new owner is checked separately by the board service, because it
// concerns the target, not the principal.
func (Policy) CanChangeOwner(principal *User, board *Board) bool {
	if principal == nil || board == nil {
		return false
	}
	return principal.HasRole(RoleAdmin) || board.IsOwner(principal)
}

// CanTouchTasks guards task create/read/update/move/delete on a board.
func (p Policy) CanTouchTasks(principal *User, board *Board) bool {
	return p.CanReadBoard(principal, board)
}

// CanDeleteUser: admins or the user themselves. The ownership preconditions
// (no owned boards, no created tasks) are enforced by the user service and
// surface as a conflict, not a denial.
func (Policy) CanDeleteUser(principal *User, username string) bool {
	if principal == nil {
		return false
	}
	return principal.HasRole(RoleAdmin) || principal.Username == username
}

// CanListTasksForUser: admins or the user themselves.
func (Policy) CanListTasksForUser(principal *User, username string) bool {
	if principal == nil {
		return false
	}
	return principal.HasRole(RoleAdmin) || principal.Username == username
}

// Require converts a predicate result into the uniform error taxonomy:
// anonymous principals get ErrUnauthenticated, everyone else a denial that
// never says which check failed.
func Require(principal *User, allowed bool) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if !allowed {
		return ErrAccessDenied
	}
	return nil
}
