package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

const clientColumns = `c.id, c.team_id, c.name, c.email, c.created_at, c.updated_at`

var clientSortColumns = map[string]string{
	"name":       "c.name",
	"email":      "c.email",
	"created_at": "c.created_at",
}

// ClientRepo implementación del puerto ClientRepository sobre PostgreSQL.
type ClientRepo struct {
	q Querier
}

// NewClientRepository construye el adaptador de persistencia para clientes.
func NewClientRepository(q Querier) *ClientRepo {
	return &ClientRepo{q: q}
}

// Create persiste un cliente. Nombre repetido dentro del equipo es ErrDuplicate.
func (r *ClientRepo) Create(ctx context.Context, c *entity.Client) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO clients (id, team_id, name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TeamID, c.Name, c.Email, c.CreatedAt, c.UpdatedAt,
	)
	return mapError(err, "insert client")
}

// GetByID obtiene un cliente del equipo.
func (r *ClientRepo) GetByID(ctx context.Context, teamID, id string) (*entity.Client, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("client")
	}
	query := `SELECT ` + clientColumns + ` FROM clients c WHERE c.team_id = $1 AND c.id = $2`
	var c entity.Client
	err := r.q.QueryRow(ctx, query, teamID, id).Scan(&c.ID, &c.TeamID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err, "client", "get client by id")
	}
	return &c, nil
}

// GetByIDs obtiene los clientes del equipo entre ids.
func (r *ClientRepo) GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients c WHERE c.team_id = $1 AND c.id = ANY($2::uuid[])`
	return collect(ctx, r.q, "get clients by ids", query, rowToClient, teamID, uuids(ids))
}

// List lista los clientes del equipo.
func (r *ClientRepo) List(ctx context.Context, teamID string, p repository.ListParams) ([]*entity.Client, querybuilder.Page, error) {
	o := applyParams(querybuilder.Options{
		Select:       clientColumns,
		From:         "clients c",
		Filters:      []querybuilder.Fragment{querybuilder.Where("c.team_id = ?", teamID)},
		Search:       &querybuilder.Search{Columns: []string{"c.name", "c.email"}},
		SortColumns:  clientSortColumns,
		DefaultSort:  "name",
		DefaultOrder: querybuilder.Asc,
		Tiebreaker:   "c.id",
	}, p)
	return runList(ctx, r.q, "list clients", o, rowToClient)
}

func rowToClient(row pgx.CollectableRow) (*entity.Client, error) {
	var c entity.Client
	if err := row.Scan(&c.ID, &c.TeamID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
