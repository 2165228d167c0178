package authz

import (
	"errors"
	"fmt"
)

// Error kinds. Callers classify with errors.Is; the HTTP layer maps them to
// 404, 403, 400 and 409.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrForbidden     = errors.New("forbidden: you don't have permission to perform this action")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAlreadyExists = errors.New("resource already exists")
)

// Validation failures on cross-entity invariants
var (
	ErrDomainTaken           = fmt.Errorf("%w: domain already taken", ErrInvalidInput)
	ErrOwnerAssignment       = fmt.Errorf("%w: an organization has exactly one owner", ErrInvalidInput)
	ErrOwnerRemoval          = fmt.Errorf("%w: cannot remove the organization owner", ErrInvalidInput)
	ErrNotOrgMember          = fmt.Errorf("%w: user must be a member of the organization first", ErrInvalidInput)
	ErrLastProjectMember     = fmt.Errorf("%w: cannot remove the last member of a project", ErrInvalidInput)
	ErrManagerRemoval        = fmt.Errorf("%w: a project manager can only remove themself", ErrInvalidInput)
	ErrColumnNameTaken       = fmt.Errorf("%w: column name already used in this project", ErrInvalidInput)
	ErrColumnProjectMismatch = fmt.Errorf("%w: column does not belong to the task's project", ErrInvalidInput)
	ErrAssigneeNotMember     = fmt.Errorf("%w: assignee must be a member of the project", ErrInvalidInput)
)

// Conflicts and lookups
var (
	ErrAlreadyMember = fmt.Errorf("%w: user is already a member", ErrAlreadyExists)
	ErrNotAMember    = fmt.Errorf("%w: membership", ErrNotFound)
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
