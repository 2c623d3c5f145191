package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const userColumns = `u.id, u.email, u.name, u.password_hash, u.instance_role, u.created_at, u.updated_at`

var userSortColumns = map[string]string{
	"name":       "u.name",
	"email":      "u.email",
	"created_at": "u.created_at",
}

// UserRepo implementación del puerto UserRepository sobre PostgreSQL.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (id, email, name, password_hash, instance_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.InstanceRole.String(),
		user.CreatedAt, user.UpdatedAt,
	)
	return mapError(err, "insert user")
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("user")
	}
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	u, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err, "user", "get user by id")
	}
	return u, nil
}

// GetByEmail obtiene un usuario por email (sin distinguir mayúsculas).
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE lower(u.email) = lower($1)`
	u, err := scanUser(r.q.QueryRow(ctx, query, email))
	if err != nil {
		return nil, notFoundOr(err, "user", "get user by email")
	}
	return u, nil
}

// GetByIDs obtiene los usuarios existentes entre ids (fuente del loader).
func (r *UserRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = ANY($1::uuid[])`
	return collect(ctx, r.q, "get users by ids", query, rowToUser, uuids(ids))
}

// Count devuelve la cantidad de usuarios de la instancia.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, mapError(err, "count users")
	}
	return n, nil
}

// List lista usuarios con búsqueda por nombre/email.
func (r *UserRepo) List(ctx context.Context, p repository.ListParams) ([]*entity.User, querybuilder.Page, error) {
	o := applyParams(querybuilder.Options{
		Select:       userColumns,
		From:         "users u",
		Search:       &querybuilder.Search{Columns: []string{"u.name", "u.email"}},
		SortColumns:  userSortColumns,
		DefaultSort:  "created_at",
		DefaultOrder: querybuilder.Asc,
		Tiebreaker:   "u.id",
	}, p)
	return runList(ctx, r.q, "list users", o, rowToUser)
}

// UpdateInstanceRole cambia el rol de instancia.
func (r *UserRepo) UpdateInstanceRole(ctx context.Context, id string, role authz.InstanceRole) error {
	if !isUUID(id) {
		return domain.NotFound("user")
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET instance_role = $2, updated_at = now() WHERE id = $1`,
		id, role.String(),
	)
	if err != nil {
		return mapError(err, "update instance role")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user")
	}
	return nil
}

// LockAdmins bloquea las filas ADMIN y devuelve sus IDs.
func (r *UserRepo) LockAdmins(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM users WHERE instance_role = 'ADMIN' ORDER BY id FOR UPDATE`
	return collect(ctx, r.q, "lock admins", query, pgx.RowTo[string])
}

// LockRegistration toma un advisory lock de transacción: dos registros
// concurrentes no pueden ver ambos la instancia vacía.
func (r *UserRepo) LockRegistration(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "users:registration"); err != nil {
		return mapError(err, "lock user registration")
	}
	return nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		u    entity.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	r, err := authz.ParseInstanceRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan user %s: %w", u.ID, err)
	}
	u.InstanceRole = r
	return &u, nil
}

func rowToUser(row pgx.CollectableRow) (*entity.User, error) { return scanUser(row) }
