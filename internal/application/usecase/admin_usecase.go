package usecase

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/application/auth"
	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

// AdminUseCase operaciones de administración de la instancia.
type AdminUseCase struct {
	users repository.UserRepository
	tx    UserTxRunner
}

// NewAdminUseCase construye el caso de uso.
func NewAdminUseCase(users repository.UserRepository, tx UserTxRunner) *AdminUseCase {
	return &AdminUseCase{users: users, tx: tx}
}

// ListUsers lista todos los usuarios de la instancia.
func (uc *AdminUseCase) ListUsers(ctx context.Context, in dto.ListRequest) (*dto.ListResponse[dto.UserResponse], error) {
	r, err := reqctx.Identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireInstanceAdmin(r.InstanceRole); err != nil {
		return nil, err
	}
	rows, page, err := uc.users.List(ctx, listParams(in))
	if err != nil {
		return nil, err
	}
	out := &dto.ListResponse[dto.UserResponse]{Items: make([]dto.UserResponse, 0, len(rows)), Page: page}
	for _, u := range rows {
		out.Items = append(out.Items, *auth.ToUserResponse(u))
	}
	return out, nil
}

// SetInstanceRole cambia el rol de instancia. No se puede degradar al último ADMIN.
func (uc *AdminUseCase) SetInstanceRole(ctx context.Context, userID string, in dto.SetInstanceRoleRequest) (*dto.UserResponse, error) {
	r, err := reqctx.Identity(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireInstanceAdmin(r.InstanceRole); err != nil {
		return nil, err
	}
	role, err := authz.ParseInstanceRole(in.Role)
	if err != nil {
		return nil, domain.Validation("invalid instance role %q", in.Role)
	}
	var updated *entity.User
	err = uc.tx.RunUsers(ctx, func(users repository.UserRepository) error {
		u, err := users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.InstanceRole == authz.InstanceRoleAdmin && role != authz.InstanceRoleAdmin {
			admins, err := users.LockAdmins(ctx)
			if err != nil {
				return err
			}
			if len(admins) <= 1 {
				return domain.New(domain.KindValidation, "LAST_ADMIN", "cannot demote the last instance admin")
			}
		}
		if err := users.UpdateInstanceRole(ctx, userID, role); err != nil {
			return err
		}
		u.InstanceRole = role
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return auth.ToUserResponse(updated), nil
}
