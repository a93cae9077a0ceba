package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleLevelOrdering(t *testing.T) {
	require.Less(t, RoleLevel(RoleUser), RoleLevel(RoleHost))
	require.Less(t, RoleLevel(RoleHost), RoleLevel(RoleMod))
	require.Less(t, RoleLevel(RoleMod), RoleLevel(RoleCoOwner))
	require.Less(t, RoleLevel(RoleCoOwner), RoleLevel(RoleOwner))
	require.Equal(t, -1, RoleLevel("superadmin"))
}

func TestIsStaff(t *testing.T) {
	require.False(t, IsStaff(RoleUser))
	require.False(t, IsStaff(""))
	require.True(t, IsStaff(RoleHost))
	require.True(t, IsStaff(RoleOwner))
}

func TestCanModify(t *testing.T) {
	// Strictly-above only.
	require.True(t, CanModify(RoleOwner, RoleMod))
	require.True(t, CanModify(RoleMod, RoleUser))
	require.False(t, CanModify(RoleMod, RoleMod))
	require.False(t, CanModify(RoleHost, RoleOwner))
	require.False(t, CanModify(RoleUser, RoleUser)) // plain users moderate nobody
	require.False(t, CanModify("unknown", RoleUser))
	require.False(t, CanModify(RoleOwner, "unknown"))
}

func TestCanAssign(t *testing.T) {
	require.True(t, CanAssign(RoleOwner, RoleCoOwner))
	require.True(t, CanAssign(RoleCoOwner, RoleMod))
	require.False(t, CanAssign(RoleHost, RoleOwner)) // can never mint upward
	require.False(t, CanAssign(RoleMod, RoleMod))    // nor sideways
	require.False(t, CanAssign(RoleUser, RoleUser))
	require.False(t, CanAssign(RoleOwner, "unknown"))
}
