//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/billing"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/internal/infrastructure/postgres"
)

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "tiempo",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/tiempo?sslmode=disable", host, port.Port())
	pool, err := postgres.NewPoolFromURL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	m, err := postgres.NewMigrator(pool, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))
	return pool
}

// fixture es un equipo con un usuario OWNER, un cliente y un proyecto.
type fixture struct {
	team    *entity.Team
	user    *entity.User
	client  *entity.Client
	project *entity.Project
}

func seed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) fixture {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	f := fixture{
		team: &entity.Team{ID: uuid.NewString(), Name: "Acme", CreatedAt: now, UpdatedAt: now},
		user: &entity.User{ID: uuid.NewString(), Email: uuid.NewString() + "@acme.test", Name: "Ana",
			PasswordHash: "x", InstanceRole: authz.InstanceRoleAdmin, CreatedAt: now, UpdatedAt: now},
	}
	rate := int64(6000)
	f.client = &entity.Client{ID: uuid.NewString(), TeamID: f.team.ID, Name: "Globex", CreatedAt: now, UpdatedAt: now}
	f.project = &entity.Project{ID: uuid.NewString(), TeamID: f.team.ID, Name: "Web", Code: "WEB",
		Status: entity.ProjectStatusActive, HourlyRateCents: &rate, CreatedAt: now, UpdatedAt: now}

	require.NoError(t, postgres.NewUserRepository(pool).Create(ctx, f.user))
	teams := postgres.NewTeamRepository(pool)
	require.NoError(t, teams.Create(ctx, f.team))
	require.NoError(t, teams.AddMember(ctx, &entity.TeamMember{TeamID: f.team.ID, UserID: f.user.ID,
		Role: authz.TeamRoleOwner, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, postgres.NewClientRepository(pool).Create(ctx, f.client))
	require.NoError(t, postgres.NewProjectRepository(pool).Create(ctx, f.project))
	return f
}

func stoppedEntry(t *testing.T, ctx context.Context, pool *pgxpool.Pool, f fixture, seconds int64) *entity.TimeEntry {
	t.Helper()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := &entity.TimeEntry{ID: uuid.NewString(), TeamID: f.team.ID, ProjectID: f.project.ID, UserID: &f.user.ID,
		StartedAt: start, Billable: true, CreatedAt: start, UpdatedAt: start}
	require.NoError(t, e.Stop(start.Add(time.Duration(seconds)*time.Second), *f.project.HourlyRateCents))
	require.NoError(t, postgres.NewTimeEntryRepository(pool).Create(ctx, e))
	return e
}

func newInvoice(t *testing.T, ctx context.Context, pool *pgxpool.Pool, f fixture) *entity.Invoice {
	t.Helper()
	invoices := postgres.NewInvoiceRepository(pool)
	number, err := invoices.NextNumber(ctx, f.team.ID)
	require.NoError(t, err)
	now := time.Now().UTC()
	inv := &entity.Invoice{ID: uuid.NewString(), TeamID: f.team.ID, ClientID: f.client.ID, Number: number,
		Status: entity.InvoiceStatusDraft, IssueDate: now.Truncate(24 * time.Hour), TaxRatePercent: decimal.Zero,
		CreatedAt: now, UpdatedAt: now}
	require.NoError(t, invoices.Create(ctx, inv))
	return inv
}

func TestIntegration_Repositories(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	// ── Enlaces y no doble facturación ───────────────────────────────────────

	t.Run("una entrada no puede quedar en dos facturas", func(t *testing.T) {
		f := seed(t, ctx, pool)
		e := stoppedEntry(t, ctx, pool, f, 3600)
		invA := newInvoice(t, ctx, pool, f)
		invB := newInvoice(t, ctx, pool, f)
		assert.NotEqual(t, invA.Number, invB.Number)

		invoices := postgres.NewInvoiceRepository(pool)
		require.NoError(t, invoices.InsertLinks(ctx, invA.ID, nil, []string{e.ID}))
		// Repetir sobre la misma factura no falla.
		require.NoError(t, invoices.InsertLinks(ctx, invA.ID, nil, []string{e.ID}))

		err := invoices.InsertLinks(ctx, invB.ID, nil, []string{e.ID})
		require.ErrorIs(t, err, domain.ErrTimeEntryAlreadyBilled)

		billed, err := invoices.FindBilled(ctx, []string{e.ID}, invB.ID)
		require.NoError(t, err)
		require.Len(t, billed, 1)
		assert.Equal(t, invA.Number, billed[0].InvoiceNumber)
	})

	t.Run("borrar una entrada facturada es DependencyViolation", func(t *testing.T) {
		f := seed(t, ctx, pool)
		e := stoppedEntry(t, ctx, pool, f, 1800)
		inv := newInvoice(t, ctx, pool, f)
		require.NoError(t, postgres.NewInvoiceRepository(pool).InsertLinks(ctx, inv.ID, nil, []string{e.ID}))

		err := postgres.NewTimeEntryRepository(pool).Delete(ctx, f.team.ID, e.ID)
		assert.Equal(t, domain.KindDependencyViolation, domain.KindOf(err))
	})

	t.Run("cantidad derivada de las entradas enlazadas", func(t *testing.T) {
		f := seed(t, ctx, pool)
		e1 := stoppedEntry(t, ctx, pool, f, 3600)
		e2 := stoppedEntry(t, ctx, pool, f, 1800)
		inv := newInvoice(t, ctx, pool, f)
		invoices := postgres.NewInvoiceRepository(pool)

		now := time.Now().UTC()
		item := &entity.InvoiceItem{ID: uuid.NewString(), InvoiceID: inv.ID, Description: "Dev", RateCents: 6000,
			CreatedAt: now, UpdatedAt: now}
		require.NoError(t, invoices.CreateItem(ctx, item))
		require.NoError(t, invoices.InsertLinks(ctx, inv.ID, &item.ID, []string{e1.ID, e2.ID}))

		seconds, err := invoices.LinkedSeconds(ctx, item.ID)
		require.NoError(t, err)
		item.SetQuantityFromSeconds(seconds)
		require.NoError(t, invoices.UpdateItem(ctx, item))

		got, err := invoices.GetItem(ctx, inv.ID, item.ID)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("1.5").Equal(got.Quantity))
		assert.Equal(t, int64(9000), got.AmountCents)

		amounts, err := invoices.ItemAmounts(ctx, inv.ID)
		require.NoError(t, err)
		totals := billing.ComputeTotals(amounts, inv.TaxRatePercent)
		require.NoError(t, invoices.UpdateTotals(ctx, inv.ID, totals))

		stored, err := invoices.GetByID(ctx, f.team.ID, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(9000), stored.TotalCents)

		byItem, err := postgres.NewTimeEntryRepository(pool).ByInvoiceItemIDs(ctx, []string{item.ID})
		require.NoError(t, err)
		assert.Len(t, byItem[item.ID], 2)
	})

	// ── Entradas de tiempo ───────────────────────────────────────────────────

	t.Run("una sola entrada corriendo por usuario", func(t *testing.T) {
		f := seed(t, ctx, pool)
		entries := postgres.NewTimeEntryRepository(pool)
		now := time.Now().UTC()
		running := func() *entity.TimeEntry {
			return &entity.TimeEntry{ID: uuid.NewString(), TeamID: f.team.ID, ProjectID: f.project.ID,
				UserID: &f.user.ID, StartedAt: now, Billable: true, CreatedAt: now, UpdatedAt: now}
		}
		first := running()
		require.NoError(t, entries.Create(ctx, first))
		require.ErrorIs(t, entries.Create(ctx, running()), domain.ErrTimerRunning)

		found, err := entries.FindRunning(ctx, f.team.ID, f.user.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, first.ID, found.ID)
	})

	t.Run("ids mal formados son NotFound", func(t *testing.T) {
		f := seed(t, ctx, pool)
		_, err := postgres.NewProjectRepository(pool).GetByID(ctx, f.team.ID, "not-a-uuid")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	// ── Listados ─────────────────────────────────────────────────────────────

	t.Run("paginación particiona el resultado", func(t *testing.T) {
		f := seed(t, ctx, pool)
		for i := 0; i < 5; i++ {
			stoppedEntry(t, ctx, pool, f, int64(600*(i+1)))
		}
		entries := postgres.NewTimeEntryRepository(pool)
		seen := map[string]bool{}
		offset := 0
		for {
			rows, page, err := entries.List(ctx, f.team.ID, repository.TimeEntryFilter{
				ListParams: repository.ListParams{OrderBy: "duration_seconds", Order: "asc", Offset: offset, Limit: 2},
			})
			require.NoError(t, err)
			assert.Equal(t, 5, page.Total)
			for _, r := range rows {
				assert.False(t, seen[r.ID])
				seen[r.ID] = true
			}
			if !page.HasNextPage {
				assert.Nil(t, page.NextOffset)
				break
			}
			offset = *page.NextOffset
		}
		assert.Len(t, seen, 5)
	})

	t.Run("orden fuera de la lista blanca es Validation", func(t *testing.T) {
		f := seed(t, ctx, pool)
		_, _, err := postgres.NewProjectRepository(pool).List(ctx, f.team.ID, repository.ProjectFilter{
			ListParams: repository.ListParams{OrderBy: "name; DROP TABLE projects"},
		})
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	})

	t.Run("visibilidad por project_members", func(t *testing.T) {
		f := seed(t, ctx, pool)
		projects := postgres.NewProjectRepository(pool)
		rows, _, err := projects.List(ctx, f.team.ID, repository.ProjectFilter{VisibleToUserID: f.user.ID})
		require.NoError(t, err)
		assert.Empty(t, rows)

		now := time.Now().UTC()
		require.NoError(t, projects.UpsertMember(ctx, &entity.ProjectMember{ProjectID: f.project.ID, UserID: f.user.ID,
			Role: authz.ProjectRoleContributor, CreatedAt: now, UpdatedAt: now}))
		rows, _, err = projects.List(ctx, f.team.ID, repository.ProjectFilter{VisibleToUserID: f.user.ID})
		require.NoError(t, err)
		assert.Len(t, rows, 1)

		roles, err := projects.RolesForUser(ctx, f.user.ID, []string{f.project.ID})
		require.NoError(t, err)
		assert.Equal(t, authz.ProjectRoleContributor, roles[f.project.ID])
	})

	// ── Guardas con bloqueo ──────────────────────────────────────────────────

	t.Run("LockOwners dentro de una tx", func(t *testing.T) {
		f := seed(t, ctx, pool)
		err := postgres.NewTxRunner(pool).RunTeam(ctx, func(teams repository.TeamRepository) error {
			owners, err := teams.LockOwners(ctx, f.team.ID)
			if err != nil {
				return err
			}
			assert.Equal(t, []string{f.user.ID}, owners)
			return nil
		})
		require.NoError(t, err)

		role, err := postgres.NewTeamRepository(pool).GetMemberRole(ctx, f.team.ID, uuid.NewString())
		require.NoError(t, err)
		assert.Equal(t, authz.TeamRoleNone, role)
	})
	t.Run("LockRegistration serializa los registros", func(t *testing.T) {
		runner := postgres.NewTxRunner(pool)
		locked := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- runner.RunUsers(ctx, func(users repository.UserRepository) error {
				if err := users.LockRegistration(ctx); err != nil {
					return err
				}
				close(locked)
				time.Sleep(300 * time.Millisecond)
				return nil
			})
		}()
		<-locked

		start := time.Now()
		err := runner.RunUsers(ctx, func(users repository.UserRepository) error {
			if err := users.LockRegistration(ctx); err != nil {
				return err
			}
			_, err := users.Count(ctx)
			return err
		})
		require.NoError(t, err)
		require.NoError(t, <-done)
		assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond, "la segunda tx espera al commit de la primera")
	})
}
