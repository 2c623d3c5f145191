package loader

import (
	"context"

	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
)

// Sources son las consultas por lote que usan los loaders. Cada campo es opcional
// en tests; en producción se construyen con SourcesFrom.
type Sources struct {
	Users                func(ctx context.Context, ids []string) ([]*entity.User, error)
	Projects             func(ctx context.Context, teamID string, ids []string) ([]*entity.Project, error)
	Clients              func(ctx context.Context, teamID string, ids []string) ([]*entity.Client, error)
	Tasks                func(ctx context.Context, teamID string, ids []string) ([]*entity.Task, error)
	Invoices             func(ctx context.Context, teamID string, ids []string) ([]*entity.Invoice, error)
	ProjectRoles         func(ctx context.Context, userID string, projectIDs []string) (map[string]authz.ProjectRole, error)
	ProjectMembers       func(ctx context.Context, projectIDs []string) ([]*entity.ProjectMember, error)
	InvoiceItems         func(ctx context.Context, invoiceIDs []string) ([]*entity.InvoiceItem, error)
	TimeEntriesByItemIDs func(ctx context.Context, itemIDs []string) (map[string][]*entity.TimeEntry, error)
}

// SourcesFrom enlaza los métodos de los repositorios.
func SourcesFrom(
	users repository.UserRepository,
	projects repository.ProjectRepository,
	clients repository.ClientRepository,
	tasks repository.TaskRepository,
	invoices repository.InvoiceRepository,
	entries repository.TimeEntryRepository,
) Sources {
	return Sources{
		Users:                users.GetByIDs,
		Projects:             projects.GetByIDs,
		Clients:              clients.GetByIDs,
		Tasks:                tasks.GetByIDs,
		Invoices:             invoices.GetByIDs,
		ProjectRoles:         projects.RolesForUser,
		ProjectMembers:       projects.MembersByProjectIDs,
		InvoiceItems:         invoices.ItemsByInvoiceIDs,
		TimeEntriesByItemIDs: entries.ByInvoiceItemIDs,
	}
}

// Loaders es el conjunto de loaders de una petición. Se crea al inicio de la
// petición y se descarta al final; no hay caché entre peticiones.
type Loaders struct {
	Users    *ByID[string, *entity.User]
	Projects *ByID[string, *entity.Project]
	Clients  *ByID[string, *entity.Client]
	Tasks    *ByID[string, *entity.Task]
	Invoices *ByID[string, *entity.Invoice]
	// ProjectRoles resuelve el rol de proyecto del usuario de la petición.
	ProjectRoles *ByID[string, authz.ProjectRole]

	ProjectMembersByProject  *ByForeignKey[string, *entity.ProjectMember]
	InvoiceItemsByInvoice    *ByForeignKey[string, *entity.InvoiceItem]
	TimeEntriesByInvoiceItem *ByForeignKey[string, *entity.TimeEntry]
}

// New construye los loaders de una petición. Las lecturas de entidades de equipo
// van filtradas por teamID; ProjectRoles por userID.
func New(src Sources, cfg Config, teamID, userID string) *Loaders {
	return &Loaders{
		Users: NewByID("users", cfg, func(ctx context.Context, ids []string) (map[string]*entity.User, error) {
			rows, err := src.Users(ctx, ids)
			return indexBy(rows, func(u *entity.User) string { return u.ID }), err
		}),
		Projects: NewByID("projects", cfg, func(ctx context.Context, ids []string) (map[string]*entity.Project, error) {
			rows, err := src.Projects(ctx, teamID, ids)
			return indexBy(rows, func(p *entity.Project) string { return p.ID }), err
		}),
		Clients: NewByID("clients", cfg, func(ctx context.Context, ids []string) (map[string]*entity.Client, error) {
			rows, err := src.Clients(ctx, teamID, ids)
			return indexBy(rows, func(c *entity.Client) string { return c.ID }), err
		}),
		Tasks: NewByID("tasks", cfg, func(ctx context.Context, ids []string) (map[string]*entity.Task, error) {
			rows, err := src.Tasks(ctx, teamID, ids)
			return indexBy(rows, func(t *entity.Task) string { return t.ID }), err
		}),
		Invoices: NewByID("invoices", cfg, func(ctx context.Context, ids []string) (map[string]*entity.Invoice, error) {
			rows, err := src.Invoices(ctx, teamID, ids)
			return indexBy(rows, func(i *entity.Invoice) string { return i.ID }), err
		}),
		ProjectRoles: NewByID("project_roles", cfg, func(ctx context.Context, ids []string) (map[string]authz.ProjectRole, error) {
			return src.ProjectRoles(ctx, userID, ids)
		}),
		ProjectMembersByProject: NewByForeignKey("project_members_by_project", cfg, src.ProjectMembers,
			func(m *entity.ProjectMember) string { return m.ProjectID }),
		InvoiceItemsByInvoice: NewByForeignKey("invoice_items_by_invoice", cfg, src.InvoiceItems,
			func(it *entity.InvoiceItem) string { return it.InvoiceID }),
		TimeEntriesByInvoiceItem: newGroupedByForeignKey("time_entries_by_invoice_item", cfg, src.TimeEntriesByItemIDs),
	}
}

// newGroupedByForeignKey adapta una fuente que ya devuelve los valores agrupados.
func newGroupedByForeignKey[V any](name string, cfg Config, fetch func(ctx context.Context, keys []string) (map[string][]V, error)) *ByForeignKey[string, V] {
	return &ByForeignKey[string, V]{c: newCore(name, cfg, FetchFunc[string, []V](fetch))}
}

func indexBy[V any](rows []V, key func(V) string) map[string]V {
	out := make(map[string]V, len(rows))
	for _, r := range rows {
		out[key(r)] = r
	}
	return out
}
