package usecase

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

// ClientUseCase gestiona los clientes del equipo activo.
type ClientUseCase struct {
	repo repository.ClientRepository
}

// NewClientUseCase construye el caso de uso.
func NewClientUseCase(repo repository.ClientRepository) *ClientUseCase {
	return &ClientUseCase{repo: repo}
}

// Create crea un cliente. Requiere acceso de facturación (OWNER, ADMIN o BILLING).
func (uc *ClientUseCase) Create(ctx context.Context, in dto.CreateClientRequest) (*dto.ClientResponse, error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireInvoiceAccess(r.TeamRole); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Validation("client name is required")
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.Validation("invalid client email")
		}
	}
	now := time.Now()
	c := &entity.Client{ID: uuid.New().String(), TeamID: r.TeamID, Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	if err := uc.repo.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.Conflict("CLIENT_EXISTS", "a client named %q already exists", name)
		}
		return nil, err
	}
	r.Loaders.Clients.Prime(c.ID, c)
	resp := ToClientResponse(c)
	return &resp, nil
}

// List lista los clientes del equipo. Cualquier miembro puede consultarlos.
func (uc *ClientUseCase) List(ctx context.Context, in dto.ListRequest) (*dto.ListResponse[dto.ClientResponse], error) {
	r, err := reqctx.Team(ctx)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireAtLeastTeamRole(r.TeamRole, authz.TeamRoleViewer); err != nil {
		return nil, err
	}
	rows, page, err := uc.repo.List(ctx, r.TeamID, listParams(in))
	if err != nil {
		return nil, err
	}
	out := &dto.ListResponse[dto.ClientResponse]{Items: make([]dto.ClientResponse, 0, len(rows)), Page: page}
	for _, c := range rows {
		out.Items = append(out.Items, ToClientResponse(c))
	}
	return out, nil
}

// ToClientResponse convierte la entidad al DTO.
func ToClientResponse(c *entity.Client) dto.ClientResponse {
	return dto.ClientResponse{ID: c.ID, TeamID: c.TeamID, Name: c.Name, Email: c.Email, CreatedAt: c.CreatedAt}
}
