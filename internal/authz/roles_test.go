package authz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/model"
)

func TestDefaultRoleTable_StrictTotalOrder(t *testing.T) {
	table := authz.DefaultRoleTable()

	roles := []model.Role{
		model.RoleSuperAdmin,
		model.RoleAdmin,
		model.RoleLead,
		model.RoleContributor,
		model.RoleIntern,
		model.RoleGuest,
	}

	// Every role has a rank and no two ranks collide
	seen := map[int]model.Role{}
	for _, r := range roles {
		p, err := table.PriorityOf(r)
		assert.NoError(t, err)
		if other, dup := seen[p]; dup {
			t.Fatalf("roles %s and %s share rank %d", r, other, p)
		}
		seen[p] = r
	}

	// Order is SUPER_ADMIN > ADMIN > LEAD > CONTRIBUTOR > INTERN > GUEST
	for i := 0; i < len(roles)-1; i++ {
		hi, _ := table.PriorityOf(roles[i])
		lo, _ := table.PriorityOf(roles[i+1])
		assert.Greater(t, hi, lo, "expected %s to outrank %s", roles[i], roles[i+1])
	}
}

func TestPriorityOf_UnknownRole(t *testing.T) {
	table := authz.DefaultRoleTable()

	_, err := table.PriorityOf(model.Role("MYSTERY"))

	assert.Error(t, err)
	assert.ErrorIs(t, err, authz.ErrUnknownRole)
}
