package authz_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tabla completa rol de equipo × rol de proyecto (6 × 4 = 24 combinaciones)
// ──────────────────────────────────────────────────────────────────────────────

func TestResolveEffectiveProjectRole_TablaCompleta(t *testing.T) {
	const (
		none        = authz.ProjectRoleNone
		viewer      = authz.ProjectRoleViewer
		contributor = authz.ProjectRoleContributor
		manager     = authz.ProjectRoleManager
	)
	projectRoles := []authz.ProjectRole{none, viewer, contributor, manager}

	expected := map[authz.TeamRole][4]authz.ProjectRole{
		authz.TeamRoleOwner:   {manager, manager, manager, manager},
		authz.TeamRoleAdmin:   {manager, manager, manager, manager},
		authz.TeamRoleMember:  {none, contributor, contributor, manager},
		authz.TeamRoleViewer:  {viewer, viewer, contributor, manager},
		authz.TeamRoleBilling: {viewer, viewer, contributor, manager},
		authz.TeamRoleNone:    {none, viewer, contributor, manager},
	}
	require.Len(t, expected, 6)

	combos := 0
	for teamRole, row := range expected {
		for i, projectRole := range projectRoles {
			combos++
			name := fmt.Sprintf("team=%q project=%q", teamRole, projectRole)
			t.Run(name, func(t *testing.T) {
				got := authz.ResolveEffectiveProjectRole(teamRole, projectRole)
				assert.Equal(t, row[i], got)
			})
		}
	}
	assert.Equal(t, 24, combos)
}

func TestGuards_DerivadosDelRolEfectivo(t *testing.T) {
	tests := []struct {
		role                     authz.ProjectRole
		canView, canLog, canMgmt bool
	}{
		{authz.ProjectRoleNone, false, false, false},
		{authz.ProjectRoleViewer, true, false, false},
		{authz.ProjectRoleContributor, true, true, false},
		{authz.ProjectRoleManager, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.canView, authz.CanViewProject(tt.role))
			assert.Equal(t, tt.canLog, authz.CanLogTime(tt.role))
			assert.Equal(t, tt.canMgmt, authz.CanManageProject(tt.role))
		})
	}
}

// Escenario: MEMBER sin fila en project_members no ve el proyecto ni registra tiempo.
func TestMemberSinAsignacion_NoVeNiRegistra(t *testing.T) {
	role := authz.ResolveEffectiveProjectRole(authz.TeamRoleMember, authz.ProjectRoleNone)
	assert.False(t, authz.CanViewProject(role))
	assert.False(t, authz.CanLogTime(role))
}

// ──────────────────────────────────────────────────────────────────────────────
// Orden total de roles de equipo
// ──────────────────────────────────────────────────────────────────────────────

func TestTeamRole_OrdenTotal(t *testing.T) {
	ordered := []authz.TeamRole{
		authz.TeamRoleNone,
		authz.TeamRoleViewer,
		authz.TeamRoleBilling,
		authz.TeamRoleMember,
		authz.TeamRoleAdmin,
		authz.TeamRoleOwner,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(), "%s > %s", ordered[i], ordered[i-1])
	}
	assert.Equal(t, 5, authz.TeamRoleOwner.Rank())
	assert.Equal(t, 0, authz.TeamRoleNone.Rank())
}

func TestRequireAtLeastTeamRole_Monotono(t *testing.T) {
	all := append([]authz.TeamRole{authz.TeamRoleNone}, authz.TeamRoles...)
	for _, min := range authz.TeamRoles {
		passed := false
		for _, actual := range all {
			err := authz.RequireAtLeastTeamRole(actual, min)
			if passed {
				assert.NoError(t, err, "una vez que %s cumple %s, todo rol mayor debe cumplir", actual, min)
			}
			if err == nil {
				passed = true
				continue
			}
			assert.True(t, errors.Is(err, domain.ErrForbidden))
		}
		assert.True(t, passed)
	}
}

func TestRequireAtLeastTeamRole_SinRolFalla(t *testing.T) {
	err := authz.RequireAtLeastTeamRole(authz.TeamRoleNone, authz.TeamRoleViewer)
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestRequireTeamManagementEInvoiceAccess(t *testing.T) {
	tests := []struct {
		role         authz.TeamRole
		manage, bill bool
	}{
		{authz.TeamRoleOwner, true, true},
		{authz.TeamRoleAdmin, true, true},
		{authz.TeamRoleMember, false, false},
		{authz.TeamRoleBilling, false, true},
		{authz.TeamRoleViewer, false, false},
		{authz.TeamRoleNone, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.manage, authz.RequireTeamManagement(tt.role) == nil)
			assert.Equal(t, tt.bill, authz.RequireInvoiceAccess(tt.role) == nil)
		})
	}
}

func TestRequireProjectRole(t *testing.T) {
	assert.NoError(t, authz.RequireProjectRole(authz.ProjectRoleManager, authz.ProjectRoleManager))
	assert.NoError(t, authz.RequireProjectRole(authz.ProjectRoleContributor, authz.ProjectRoleManager, authz.ProjectRoleContributor))
	assert.Error(t, authz.RequireProjectRole(authz.ProjectRoleViewer, authz.ProjectRoleManager))
	assert.Error(t, authz.RequireProjectRole(authz.ProjectRoleNone, authz.ProjectRoleNone))
}

// ──────────────────────────────────────────────────────────────────────────────
// Valores exactos en el cable
// ──────────────────────────────────────────────────────────────────────────────

func TestRoles_RoundTripTexto(t *testing.T) {
	for _, s := range []string{"OWNER", "ADMIN", "MEMBER", "VIEWER", "BILLING"} {
		r, err := authz.ParseTeamRole(s)
		require.NoError(t, err)
		b, err := r.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, s, string(b))
	}
	for _, s := range []string{"MANAGER", "CONTRIBUTOR", "VIEWER"} {
		r, err := authz.ParseProjectRole(s)
		require.NoError(t, err)
		assert.Equal(t, s, r.String())
	}
	for _, s := range []string{"USER", "ADMIN"} {
		r, err := authz.ParseInstanceRole(s)
		require.NoError(t, err)
		assert.Equal(t, s, r.String())
	}
}

func TestRoles_ParseSensibleAMayusculas(t *testing.T) {
	_, err := authz.ParseTeamRole("owner")
	assert.ErrorIs(t, err, authz.ErrInvalidRole)
	_, err = authz.ParseProjectRole("Manager")
	assert.ErrorIs(t, err, authz.ErrInvalidRole)
	_, err = authz.ParseTeamRole("")
	assert.ErrorIs(t, err, authz.ErrInvalidRole)

	var r authz.TeamRole
	require.NoError(t, r.UnmarshalText([]byte("")))
	assert.Equal(t, authz.TeamRoleNone, r)
}
