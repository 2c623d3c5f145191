package authz

import (
	"slices"

	"github.com/jhoicas/Tiempo-api/internal/domain"
)

// ResolveEffectiveProjectRole combina el rol de equipo y el rol de proyecto en el
// rol efectivo. Nunca falla: "sin acceso" es ProjectRoleNone.
//
//   - OWNER/ADMIN: siempre MANAGER.
//   - MEMBER: sin fila de proyecto no ve el proyecto; MANAGER se conserva; el resto sube a CONTRIBUTOR.
//   - VIEWER/BILLING: el rol de proyecto si existe, si no VIEWER.
//   - sin rol de equipo: el rol de proyecto tal cual.
func ResolveEffectiveProjectRole(team TeamRole, project ProjectRole) ProjectRole {
	switch team {
	case TeamRoleOwner, TeamRoleAdmin:
		return ProjectRoleManager
	case TeamRoleMember:
		switch project {
		case ProjectRoleNone:
			return ProjectRoleNone
		case ProjectRoleManager:
			return ProjectRoleManager
		default:
			return ProjectRoleContributor
		}
	case TeamRoleViewer, TeamRoleBilling:
		if project == ProjectRoleNone {
			return ProjectRoleViewer
		}
		return project
	default:
		return project
	}
}

// CanViewProject: cualquier rol efectivo.
func CanViewProject(r ProjectRole) bool { return r != ProjectRoleNone }

// CanLogTime: MANAGER o CONTRIBUTOR.
func CanLogTime(r ProjectRole) bool {
	return r == ProjectRoleManager || r == ProjectRoleContributor
}

// CanManageProject: solo MANAGER.
func CanManageProject(r ProjectRole) bool { return r == ProjectRoleManager }

// RequireAtLeastTeamRole falla con Forbidden si actual no existe o tiene menor rango que min.
func RequireAtLeastTeamRole(actual, min TeamRole) error {
	if !actual.AtLeast(min) {
		return domain.Forbidden("requires team role %s or higher", min)
	}
	return nil
}

// RequireTeamManagement exige OWNER o ADMIN.
func RequireTeamManagement(actual TeamRole) error {
	if actual != TeamRoleOwner && actual != TeamRoleAdmin {
		return domain.Forbidden("requires team role OWNER or ADMIN")
	}
	return nil
}

// RequireInvoiceAccess exige OWNER, ADMIN o BILLING. La facturación es un eje
// distinto a la gestión del equipo: BILLING accede aunque su rango sea menor que MEMBER.
func RequireInvoiceAccess(actual TeamRole) error {
	switch actual {
	case TeamRoleOwner, TeamRoleAdmin, TeamRoleBilling:
		return nil
	}
	return domain.Forbidden("requires team role OWNER, ADMIN or BILLING")
}

// RequireProjectRole exige que el rol efectivo esté en allowed.
func RequireProjectRole(actual ProjectRole, allowed ...ProjectRole) error {
	if actual != ProjectRoleNone && slices.Contains(allowed, actual) {
		return nil
	}
	return domain.Forbidden("insufficient project role")
}

// RequireInstanceAdmin exige el rol de instancia ADMIN.
func RequireInstanceAdmin(actual InstanceRole) error {
	if actual != InstanceRoleAdmin {
		return domain.Forbidden("requires instance role ADMIN")
	}
	return nil
}
