package auth

import (
	"context"
	"errors"
	"net/mail"
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
	"github.com/jhoicas/Tiempo-api/pkg/jwt"
)

// JWTConfig configuración para generación de tokens.
type JWTConfig struct {
	Secret     string
	ExpMinutes int
	Issuer     string
}

// UserTxRunner ejecuta fn dentro de una transacción con el repositorio de usuarios atado a la tx.
type UserTxRunner interface {
	RunUsers(ctx context.Context, fn func(users repository.UserRepository) error) error
}

// PasswordHasher es la capacidad opaca de hash de contraseñas.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

const minPasswordLength = 8

var errInvalidCredentials = &domain.Error{Kind: domain.KindUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"}

// AuthUseCase casos de uso de autenticación: registro, login e identidad.
type AuthUseCase struct {
	userRepo repository.UserRepository
	teamRepo repository.TeamRepository
	tx       UserTxRunner
	hasher   PasswordHasher
	jwtCfg   JWTConfig
}

// NewAuthUseCase construye el caso de uso de auth.
func NewAuthUseCase(userRepo repository.UserRepository, teamRepo repository.TeamRepository, tx UserTxRunner, hasher PasswordHasher, jwtCfg JWTConfig) *AuthUseCase {
	return &AuthUseCase{userRepo: userRepo, teamRepo: teamRepo, tx: tx, hasher: hasher, jwtCfg: jwtCfg}
}

// RegisterUser crea un usuario. El primer usuario de la instancia queda como ADMIN;
// el conteo y el alta corren bajo el lock de registro.
func (uc *AuthUseCase) RegisterUser(ctx context.Context, in dto.RegisterRequest) (*dto.UserResponse, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Validation("invalid email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.Validation("password must have at least %d characters", minPasswordLength)
	}
	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		return nil, domain.Internal(err)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = email
	}
	now := time.Now()
	user := &entity.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		InstanceRole: authz.InstanceRoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = uc.tx.RunUsers(ctx, func(users repository.UserRepository) error {
		if err := users.LockRegistration(ctx); err != nil {
			return err
		}
		if _, err := users.GetByEmail(ctx, email); err == nil {
			return domain.Conflict("EMAIL_TAKEN", "email already registered")
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		count, err := users.Count(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			user.InstanceRole = authz.InstanceRoleAdmin
		}
		if err := users.Create(ctx, user); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return domain.Conflict("EMAIL_TAKEN", "email already registered")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Str("user_id", user.ID).Str("instance_role", user.InstanceRole.String()).Msg("usuario registrado")
	return ToUserResponse(user), nil
}

// Login verifica email/password y emite un JWT. Si no se indica equipo, el token
// lleva el primer equipo del usuario (si tiene alguno).
func (uc *AuthUseCase) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := uc.userRepo.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !uc.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}

	teamID := in.TeamID
	if teamID != "" {
		role, err := uc.teamRepo.GetMemberRole(ctx, teamID, user.ID)
		if err != nil {
			return nil, err
		}
		if role == authz.TeamRoleNone {
			return nil, domain.Forbidden("not a member of team")
		}
	} else {
		memberships, err := uc.teamRepo.ListForUser(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if len(memberships) > 0 {
			teamID = memberships[0].TeamID
		}
	}

	token, err := jwt.Generate(uc.jwtCfg.Secret, user.ID, teamID, user.InstanceRole.String(), uc.jwtCfg.Issuer, uc.jwtCfg.ExpMinutes)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return &dto.LoginResponse{Token: token, User: *ToUserResponse(user)}, nil
}

// Me devuelve la identidad de la petición, el equipo activo y las membresías.
func (uc *AuthUseCase) Me(ctx context.Context) (*dto.MeResponse, error) {
	r, err := reqctx.Identity(ctx)
	if err != nil {
		return nil, err
	}
	user, found, err := r.Loaders.Users.Load(ctx, r.UserID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrUnauthorized
	}
	memberships, err := uc.teamRepo.ListForUser(ctx, r.UserID)
	if err != nil {
		return nil, err
	}
	out := &dto.MeResponse{
		User:         *ToUserResponse(user),
		ActiveTeamID: r.TeamID,
		TeamRole:     r.TeamRole.String(),
		Teams:        make([]dto.MembershipResponse, 0, len(memberships)),
	}
	for _, m := range memberships {
		out.Teams = append(out.Teams, dto.MembershipResponse{TeamID: m.TeamID, TeamName: m.TeamName, Role: m.Role.String()})
	}
	return out, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ToUserResponse convierte la entidad a DTO (sin hash).
func ToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		InstanceRole: u.InstanceRole.String(),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
