package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

var errRemoveLastOwner = domain.New(domain.KindValidation, "LAST_OWNER", "cannot remove the last owner")

// TeamUseCase gestiona equipos y membresías. Todo equipo conserva al menos un OWNER.
type TeamUseCase struct {
	teams repository.TeamRepository
	users repository.UserRepository
	tx    TeamTxRunner
}

// NewTeamUseCase construye el caso de uso.
func NewTeamUseCase(teams repository.TeamRepository, users repository.UserRepository, tx TeamTxRunner) *TeamUseCase {
	return &TeamUseCase{teams: teams, users: users, tx: tx}
}

// Create crea un equipo; quien lo crea queda como OWNER en la misma transacción.
func (uc *TeamUseCase) Create(ctx context.Context, in dto.CreateTeamRequest) (*dto.TeamResponse, error) {
	r, err := reqctx.Identity(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validation("team name is required")
	}
	now := time.Now()
	team := &entity.Team{ID: uuid.New().String(), Name: name, CreatedAt: now, UpdatedAt: now}
	err = uc.tx.RunTeam(ctx, func(teams repository.TeamRepository) error {
		if err := teams.Create(ctx, team); err != nil {
			return err
		}
		return teams.AddMember(ctx, &entity.TeamMember{
			TeamID: team.ID, UserID: r.UserID, Role: authz.TeamRoleOwner, CreatedAt: now, UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("team_id", team.ID).Msg("equipo creado")
	return &dto.TeamResponse{ID: team.ID, Name: team.Name, Role: authz.TeamRoleOwner.String(), CreatedAt: team.CreatedAt}, nil
}

// ListMembers lista los miembros del equipo activo (orden por role, created_at, name, email).
func (uc *TeamUseCase) ListMembers(ctx context.Context, in dto.ListRequest) (*dto.ListResponse[dto.TeamMemberResponse], error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAtLeastTeamRole(r.TeamRole, authz.TeamRoleViewer); err != nil {
		return nil, err
	}
	members, page, err := uc.teams.ListMembers(ctx, r.TeamID, listParams(in))
	if err != nil {
		return nil, err
	}
	out := &dto.ListResponse[dto.TeamMemberResponse]{Items: make([]dto.TeamMemberResponse, 0, len(members)), Page: page}
	for _, m := range members {
		out.Items = append(out.Items, toTeamMemberResponse(m))
	}
	return out, nil
}

// AddMember agrega un usuario existente (por ID o email) al equipo activo.
// Solo un OWNER puede otorgar OWNER.
func (uc *TeamUseCase) AddMember(ctx context.Context, in dto.AddTeamMemberRequest) (*dto.TeamMemberResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireTeamManagement(r.TeamRole); err != nil {
		return nil, err
	}
	role, err := authz.ParseTeamRole(in.Role)
	if err != nil {
		return nil, domain.Validation("invalid team role %q", in.Role)
	}
	if role == authz.TeamRoleOwner && r.TeamRole != authz.TeamRoleOwner {
		return nil, domain.Forbidden("only an owner can grant the OWNER role")
	}

	var user *entity.User
	switch {
	case in.UserID != "":
		user, err = uc.users.GetByID(ctx, in.UserID)
	case in.Email != "":
		user, err = uc.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	default:
		return nil, domain.Validation("user_id or email is required")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	m := &entity.TeamMember{TeamID: r.TeamID, UserID: user.ID, Role: role, CreatedAt: now, UpdatedAt: now, UserName: user.Name, UserEmail: user.Email}
	if err := uc.teams.AddMember(ctx, m); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Conflict("ALREADY_MEMBER", "user is already a member of the team")
		}
		return nil, err
	}
	resp := toTeamMemberResponse(m)
	return &resp, nil
}

// UpdateMemberRole cambia el rol de un miembro. Degradar al último OWNER falla con
// Validation "cannot change the last owner role" y no modifica nada.
func (uc *TeamUseCase) UpdateMemberRole(ctx context.Context, userID string, in dto.UpdateTeamMemberRequest) (*dto.TeamMemberResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireTeamManagement(r.TeamRole); err != nil {
		return nil, err
	}
	role, err := authz.ParseTeamRole(in.Role)
	if err != nil {
		return nil, domain.Validation("invalid team role %q", in.Role)
	}
	if role == authz.TeamRoleOwner && r.TeamRole != authz.TeamRoleOwner {
		return nil, domain.Forbidden("only an owner can grant the OWNER role")
	}

	var updated *entity.TeamMember
	err = uc.tx.RunTeam(ctx, func(teams repository.TeamRepository) error {
		m, err := teams.GetMember(ctx, r.TeamID, userID)
		if err != nil {
			return err
		}
		if m.Role == authz.TeamRoleOwner && role != authz.TeamRoleOwner {
			if r.TeamRole != authz.TeamRoleOwner {
				return domain.Forbidden("only an owner can change an owner's role")
			}
			owners, err := teams.LockOwners(ctx, r.TeamID)
			if err != nil {
				return err
			}
			if len(owners) <= 1 {
				return domain.ErrLastOwner
			}
		}
		if err := teams.UpdateMemberRole(ctx, r.TeamID, userID, role); err != nil {
			return err
		}
		m.Role = role
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp := toTeamMemberResponse(updated)
	return &resp, nil
}

// RemoveMember quita a un miembro. Un usuario puede salir por sí mismo; quitar a
// otros requiere OWNER o ADMIN, y a un OWNER solo otro OWNER.
func (uc *TeamUseCase) RemoveMember(ctx context.Context, userID string) error {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return err
	}
	if userID != r.UserID {
		if err := authz.RequireTeamManagement(r.TeamRole); err != nil {
			return err
		}
	}
	return uc.tx.RunTeam(ctx, func(teams repository.TeamRepository) error {
		m, err := teams.GetMember(ctx, r.TeamID, userID)
		if err != nil {
			return err
		}
		if m.Role == authz.TeamRoleOwner {
			if r.TeamRole != authz.TeamRoleOwner {
				return domain.Forbidden("only an owner can remove an owner")
			}
			owners, err := teams.LockOwners(ctx, r.TeamID)
			if err != nil {
				return err
			}
			if len(owners) <= 1 {
				return errRemoveLastOwner
			}
		}
		return teams.RemoveMember(ctx, r.TeamID, userID)
	})
}

func toTeamMemberResponse(m *entity.TeamMember) dto.TeamMemberResponse {
	return dto.TeamMemberResponse{
		UserID:    m.UserID,
		Name:      m.UserName,
		Email:     m.UserEmail,
		Role:      m.Role.String(),
		CreatedAt: m.CreatedAt,
	}
}

func listParams(in dto.ListRequest) repository.ListParams {
	return repository.ListParams{
		Search:  in.Search,
		OrderBy: in.OrderBy,
		Order:   in.Order,
		Offset:  in.Offset,
		Limit:   in.Limit,
	}
}
