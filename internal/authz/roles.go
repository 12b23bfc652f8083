package authz

import (
	"errors"
	"fmt"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

var ErrUnknownRole = errors.New("unknown role")

// RoleTable maps each role to its priority rank. Higher rank means more
// authority; the table is a strict total order with no ties.
type RoleTable map[model.Role]int

// DefaultRoleTable is the rank order used when none is configured.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		model.RoleSuperAdmin:  6,
		model.RoleAdmin:       5,
		model.RoleLead:        4,
		model.RoleContributor: 3,
		model.RoleIntern:      2,
		model.RoleGuest:       1,
	}
}

// PriorityOf returns the rank of the role, or ErrUnknownRole for a role
// not present in the table.
func (t RoleTable) PriorityOf(r model.Role) (int, error) {
	p, ok := t[r]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, r)
	}
	return p, nil
}

// atLeast reports whether a ranks at least as high as b. Any unknown
// role fails closed.
func (t RoleTable) atLeast(a, b model.Role) bool {
	pa, err := t.PriorityOf(a)
	if err != nil {
		return false
	}
	pb, err := t.PriorityOf(b)
	if err != nil {
		return false
	}
	return pa >= pb
}

// above reports whether a ranks strictly higher than b, failing closed
// on unknown roles.
func (t RoleTable) above(a, b model.Role) bool {
	pa, err := t.PriorityOf(a)
	if err != nil {
		return false
	}
	pb, err := t.PriorityOf(b)
	if err != nil {
		return false
	}
	return pa > pb
}
