package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

var _ repository.TimeEntryRepository = (*TimeEntryRepo)(nil)

const timeEntryColumns = `te.id, te.team_id, te.project_id, te.task_id, te.user_id, te.description, te.started_at,
	te.stopped_at, te.duration_seconds, te.billable, te.hourly_rate_cents, te.amount_cents, te.created_at, te.updated_at`

var timeEntrySortColumns = map[string]string{
	"started_at":       "te.started_at",
	"stopped_at":       "te.stopped_at",
	"duration_seconds": "te.duration_seconds",
	"amount_cents":     "te.amount_cents",
	"created_at":       "te.created_at",
}

// TimeEntryRepo implementación del puerto TimeEntryRepository sobre PostgreSQL.
type TimeEntryRepo struct {
	q Querier
}

// NewTimeEntryRepository construye el adaptador de persistencia para entradas de tiempo.
func NewTimeEntryRepository(q Querier) *TimeEntryRepo {
	return &TimeEntryRepo{q: q}
}

// Create persiste una entrada (corriendo o ya finalizada). Una segunda entrada
// corriendo del mismo usuario viola time_entries_one_running_idx → ErrTimerRunning.
func (r *TimeEntryRepo) Create(ctx context.Context, e *entity.TimeEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO time_entries (id, team_id, project_id, task_id, user_id, description, started_at,
			stopped_at, duration_seconds, billable, hourly_rate_cents, amount_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.TeamID, e.ProjectID, e.TaskID, e.UserID, e.Description, e.StartedAt,
		e.StoppedAt, e.DurationSeconds, e.Billable, e.HourlyRateCents, e.AmountCents, e.CreatedAt, e.UpdatedAt,
	)
	return mapError(err, "insert time entry")
}

// Finalize persiste el cierre de una entrada que seguía corriendo.
func (r *TimeEntryRepo) Finalize(ctx context.Context, e *entity.TimeEntry) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE time_entries
		SET stopped_at = $3, duration_seconds = $4, hourly_rate_cents = $5, amount_cents = $6, updated_at = $7
		WHERE team_id = $1 AND id = $2 AND stopped_at IS NULL`,
		e.TeamID, e.ID, e.StoppedAt, e.DurationSeconds, e.HourlyRateCents, e.AmountCents, e.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "finalize time entry")
	}
	if tag.RowsAffected() == 0 {
		return domain.Validation("time entry is already stopped")
	}
	return nil
}

// Delete elimina la entrada. Si está enlazada a una factura la FK RESTRICT la
// protege y el error se traduce a DependencyViolation.
func (r *TimeEntryRepo) Delete(ctx context.Context, teamID, id string) error {
	if !isUUID(id) {
		return domain.NotFound("time entry")
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM time_entries WHERE team_id = $1 AND id = $2`, teamID, id)
	if err != nil {
		return mapError(err, "delete time entry")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("time entry")
	}
	return nil
}

// GetByID obtiene una entrada del equipo.
func (r *TimeEntryRepo) GetByID(ctx context.Context, teamID, id string) (*entity.TimeEntry, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("time entry")
	}
	rows, err := collect(ctx, r.q, "get time entry by id",
		`SELECT `+timeEntryColumns+` FROM time_entries te WHERE te.team_id = $1 AND te.id = $2`,
		rowToTimeEntry, teamID, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NotFound("time entry")
	}
	return rows[0], nil
}

// GetByIDs obtiene las entradas del equipo entre ids.
func (r *TimeEntryRepo) GetByIDs(ctx context.Context, teamID string, ids []string) ([]*entity.TimeEntry, error) {
	return collect(ctx, r.q, "get time entries by ids",
		`SELECT `+timeEntryColumns+` FROM time_entries te WHERE te.team_id = $1 AND te.id = ANY($2::uuid[])`,
		rowToTimeEntry, teamID, uuids(ids))
}

// FindRunning devuelve la entrada en curso del usuario en el equipo o nil.
func (r *TimeEntryRepo) FindRunning(ctx context.Context, teamID, userID string) (*entity.TimeEntry, error) {
	rows, err := collect(ctx, r.q, "find running time entry",
		`SELECT `+timeEntryColumns+` FROM time_entries te
		 WHERE te.team_id = $1 AND te.user_id = $2 AND te.stopped_at IS NULL`,
		rowToTimeEntry, teamID, userID)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// List lista entradas del equipo con rango sobre started_at.
func (r *TimeEntryRepo) List(ctx context.Context, teamID string, f repository.TimeEntryFilter) ([]*entity.TimeEntry, querybuilder.Page, error) {
	filters := []querybuilder.Fragment{querybuilder.Where("te.team_id = ?", teamID)}
	if f.ProjectID != "" {
		if !isUUID(f.ProjectID) {
			return []*entity.TimeEntry{}, querybuilder.NewPage(0, 0, 0), nil
		}
		filters = append(filters, querybuilder.Where("te.project_id = ?", f.ProjectID))
	}
	if f.UserID != "" {
		if !isUUID(f.UserID) {
			return []*entity.TimeEntry{}, querybuilder.NewPage(0, 0, 0), nil
		}
		filters = append(filters, querybuilder.Where("te.user_id = ?", f.UserID))
	}
	if f.VisibleToUserID != "" {
		filters = append(filters, querybuilder.Where(
			"EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = te.project_id AND pm.user_id = ?)",
			f.VisibleToUserID,
		))
	}
	if f.Billable != nil {
		filters = append(filters, querybuilder.Where("te.billable = ?", *f.Billable))
	}
	if f.Unbilled {
		filters = append(filters, querybuilder.Where(
			"NOT EXISTS (SELECT 1 FROM invoice_time_entries ite WHERE ite.time_entry_id = te.id)"))
	}
	o := applyParams(querybuilder.Options{
		Select:       timeEntryColumns,
		From:         "time_entries te",
		Filters:      filters,
		Search:       &querybuilder.Search{Columns: []string{"te.description"}},
		Date:         &querybuilder.DateRange{Column: "te.started_at", From: f.From, To: f.To},
		SortColumns:  timeEntrySortColumns,
		DefaultSort:  "started_at",
		DefaultOrder: querybuilder.Desc,
		Tiebreaker:   "te.id",
	}, f.ListParams)
	return runList(ctx, r.q, "list time entries", o, rowToTimeEntry)
}

// ByInvoiceItemIDs agrupa por ítem las entradas enlazadas.
func (r *TimeEntryRepo) ByInvoiceItemIDs(ctx context.Context, itemIDs []string) (map[string][]*entity.TimeEntry, error) {
	type linked struct {
		itemID string
		entry  *entity.TimeEntry
	}
	rows, err := collect(ctx, r.q, "time entries by invoice item ids",
		`SELECT ite.invoice_item_id, `+timeEntryColumns+`
		 FROM invoice_time_entries ite
		 JOIN time_entries te ON te.id = ite.time_entry_id
		 WHERE ite.invoice_item_id = ANY($1::uuid[])
		 ORDER BY te.started_at, te.id`,
		func(row pgx.CollectableRow) (linked, error) {
			var l linked
			e, err := scanTimeEntry(row, &l.itemID)
			l.entry = e
			return l, err
		}, uuids(itemIDs))
	if err != nil {
		return nil, err
	}
	out := make(map[string][]*entity.TimeEntry, len(itemIDs))
	for _, l := range rows {
		out[l.itemID] = append(out[l.itemID], l.entry)
	}
	return out, nil
}

// scanTimeEntry escanea las columnas de timeEntryColumns precedidas por prefix.
func scanTimeEntry(row pgx.Row, prefix ...any) (*entity.TimeEntry, error) {
	var e entity.TimeEntry
	dest := append(prefix,
		&e.ID, &e.TeamID, &e.ProjectID, &e.TaskID, &e.UserID, &e.Description, &e.StartedAt,
		&e.StoppedAt, &e.DurationSeconds, &e.Billable, &e.HourlyRateCents, &e.AmountCents, &e.CreatedAt, &e.UpdatedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &e, nil
}

func rowToTimeEntry(row pgx.CollectableRow) (*entity.TimeEntry, error) { return scanTimeEntry(row) }
