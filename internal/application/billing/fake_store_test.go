package billing_test

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jhoicas/Tiempo-api/internal/application/loader"
	"github.com/jhoicas/Tiempo-api/internal/application/reqctx"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/billing"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
	"github.com/jhoicas/Tiempo-api/internal/domain/repository"
	"github.com/jhoicas/Tiempo-api/pkg/querybuilder"
)

// store es una base en memoria con transacciones por snapshot: RunBilling
// restaura el estado completo si fn falla.
type store struct {
	mu        sync.Mutex
	invoices  map[string]entity.Invoice
	items     map[string]entity.InvoiceItem
	itemOrder []string
	links     map[string]entity.InvoiceTimeEntry
	entries   map[string]entity.TimeEntry
	clients   map[string]entity.Client

	locks int
	// raceWinner simula otra transacción que enlaza las mismas entradas y hace
	// commit justo antes de nuestro INSERT.
	raceWinner string
	committed  []entity.InvoiceTimeEntry
}

func newStore() *store {
	return &store{
		invoices: map[string]entity.Invoice{},
		items:    map[string]entity.InvoiceItem{},
		links:    map[string]entity.InvoiceTimeEntry{},
		entries:  map[string]entity.TimeEntry{},
		clients:  map[string]entity.Client{},
	}
}

type snapshot struct {
	invoices  map[string]entity.Invoice
	items     map[string]entity.InvoiceItem
	itemOrder []string
	links     map[string]entity.InvoiceTimeEntry
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *store) RunBilling(_ context.Context, fn func(repository.InvoiceRepository, repository.TimeEntryRepository) error) error {
	s.mu.Lock()
	snap := snapshot{cloneMap(s.invoices), cloneMap(s.items), slices.Clone(s.itemOrder), cloneMap(s.links)}
	s.mu.Unlock()

	err := fn(&fakeInvoices{s: s}, &fakeEntries{s: s})
	if err != nil {
		s.mu.Lock()
		s.invoices, s.items, s.itemOrder, s.links = snap.invoices, snap.items, snap.itemOrder, snap.links
		for _, l := range s.committed {
			s.links[l.TimeEntryID] = l
		}
		s.committed = nil
		s.mu.Unlock()
	}
	return err
}

// sources expone el store a los loaders de la petición.
func (s *store) sources() loader.Sources {
	inv := &fakeInvoices{s: s}
	return loader.Sources{
		Invoices:     inv.GetByIDs,
		InvoiceItems: inv.ItemsByInvoiceIDs,
		Clients: func(_ context.Context, teamID string, ids []string) ([]*entity.Client, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			var out []*entity.Client
			for _, id := range ids {
				if c, ok := s.clients[id]; ok && c.TeamID == teamID {
					out = append(out, &c)
				}
			}
			return out, nil
		},
	}
}

func (s *store) ctx(teamID string, role authz.TeamRole) context.Context {
	return reqctx.WithContext(context.Background(), &reqctx.Request{
		UserID:   "u1",
		TeamID:   teamID,
		TeamRole: role,
		Loaders:  loader.New(s.sources(), loader.Config{}, teamID, "u1"),
	})
}

func (s *store) addEntry(e entity.TimeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
}

func (s *store) invoice(id string) entity.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices[id]
}

func (s *store) itemCount(invoiceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if it.InvoiceID == invoiceID {
			n++
		}
	}
	return n
}

// ── InvoiceRepository ─────────────────────────────────────────────────────────

type fakeInvoices struct {
	repository.InvoiceRepository
	s *store
}

func (f *fakeInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, other := range f.s.invoices {
		if other.TeamID == inv.TeamID && other.Number == inv.Number {
			return domain.ErrDuplicate
		}
	}
	f.s.invoices[inv.ID] = *inv
	return nil
}

func (f *fakeInvoices) Update(_ context.Context, inv *entity.Invoice) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	cur := f.s.invoices[inv.ID]
	cur.Status, cur.IssueDate, cur.DueDate, cur.Notes, cur.TaxRatePercent, cur.UpdatedAt =
		inv.Status, inv.IssueDate, inv.DueDate, inv.Notes, inv.TaxRatePercent, inv.UpdatedAt
	f.s.invoices[inv.ID] = cur
	return nil
}

func (f *fakeInvoices) Delete(_ context.Context, _ string, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	delete(f.s.invoices, id)
	for itemID, it := range f.s.items {
		if it.InvoiceID == id {
			delete(f.s.items, itemID)
		}
	}
	return nil
}

func (f *fakeInvoices) GetByIDs(_ context.Context, teamID string, ids []string) ([]*entity.Invoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.Invoice
	for _, id := range ids {
		if inv, ok := f.s.invoices[id]; ok && inv.TeamID == teamID {
			out = append(out, &inv)
		}
	}
	return out, nil
}

func (f *fakeInvoices) LockByID(_ context.Context, teamID, id string) (*entity.Invoice, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.locks++
	inv, ok := f.s.invoices[id]
	if !ok || inv.TeamID != teamID {
		return nil, domain.NotFound("invoice")
	}
	return &inv, nil
}

func (f *fakeInvoices) NextNumber(_ context.Context, teamID string) (string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 1
	for _, inv := range f.s.invoices {
		if inv.TeamID == teamID {
			n++
		}
	}
	return fmt.Sprintf("INV-%04d", n), nil
}

func (f *fakeInvoices) List(_ context.Context, teamID string, _ repository.InvoiceFilter) ([]*entity.Invoice, querybuilder.Page, error) {
	rows, _ := f.GetByIDs(context.Background(), teamID, f.ids())
	return rows, querybuilder.NewPage(0, 20, len(rows)), nil
}

func (f *fakeInvoices) ids() []string {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []string
	for id := range f.s.invoices {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (f *fakeInvoices) CreateItem(_ context.Context, it *entity.InvoiceItem) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.items[it.ID] = *it
	f.s.itemOrder = append(f.s.itemOrder, it.ID)
	return nil
}

func (f *fakeInvoices) UpdateItem(_ context.Context, it *entity.InvoiceItem) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.items[it.ID] = *it
	return nil
}

func (f *fakeInvoices) DeleteItem(_ context.Context, invoiceID, itemID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if it, ok := f.s.items[itemID]; !ok || it.InvoiceID != invoiceID {
		return domain.NotFound("invoice item")
	}
	delete(f.s.items, itemID)
	return nil
}

func (f *fakeInvoices) GetItem(_ context.Context, invoiceID, itemID string) (*entity.InvoiceItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	it, ok := f.s.items[itemID]
	if !ok || it.InvoiceID != invoiceID {
		return nil, domain.NotFound("invoice item")
	}
	return &it, nil
}

func (f *fakeInvoices) ItemsByInvoiceIDs(_ context.Context, invoiceIDs []string) ([]*entity.InvoiceItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.InvoiceItem
	for _, id := range f.s.itemOrder {
		it, ok := f.s.items[id]
		if ok && slices.Contains(invoiceIDs, it.InvoiceID) {
			out = append(out, &it)
		}
	}
	return out, nil
}

func (f *fakeInvoices) ItemAmounts(_ context.Context, invoiceID string) ([]int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []int64
	for _, it := range f.s.items {
		if it.InvoiceID == invoiceID {
			out = append(out, it.AmountCents)
		}
	}
	return out, nil
}

func (f *fakeInvoices) UpdateTotals(_ context.Context, invoiceID string, t billing.Totals) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	inv := f.s.invoices[invoiceID]
	inv.SubtotalCents, inv.TaxAmountCents, inv.TotalCents = t.SubtotalCents, t.TaxAmountCents, t.TotalCents
	f.s.invoices[invoiceID] = inv
	return nil
}

func (f *fakeInvoices) FindBilled(_ context.Context, ids []string, excludeInvoiceID string) ([]entity.BilledTimeEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []entity.BilledTimeEntry
	for _, id := range ids {
		if l, ok := f.s.links[id]; ok && l.InvoiceID != excludeInvoiceID {
			out = append(out, entity.BilledTimeEntry{TimeEntryID: id, InvoiceID: l.InvoiceID, InvoiceNumber: f.s.invoices[l.InvoiceID].Number})
		}
	}
	return out, nil
}

func (f *fakeInvoices) InsertLinks(_ context.Context, invoiceID string, itemID *string, ids []string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.raceWinner != "" {
		for _, id := range ids {
			f.s.committed = append(f.s.committed, entity.InvoiceTimeEntry{InvoiceID: f.s.raceWinner, TimeEntryID: id})
		}
		f.s.raceWinner = ""
		return domain.ErrTimeEntryAlreadyBilled
	}
	for _, id := range ids {
		if l, ok := f.s.links[id]; ok {
			if l.InvoiceID != invoiceID {
				return domain.ErrTimeEntryAlreadyBilled
			}
			continue
		}
		f.s.links[id] = entity.InvoiceTimeEntry{InvoiceID: invoiceID, TimeEntryID: id, InvoiceItemID: itemID}
	}
	return nil
}

func (f *fakeInvoices) ListLinks(_ context.Context, invoiceID string) ([]*entity.InvoiceTimeEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.InvoiceTimeEntry
	for _, l := range f.s.links {
		if l.InvoiceID == invoiceID {
			out = append(out, &l)
		}
	}
	slices.SortFunc(out, func(a, b *entity.InvoiceTimeEntry) int {
		if a.TimeEntryID < b.TimeEntryID {
			return -1
		}
		return 1
	})
	return out, nil
}

func (f *fakeInvoices) DeleteLink(_ context.Context, invoiceID, timeEntryID string) (*entity.InvoiceTimeEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	l, ok := f.s.links[timeEntryID]
	if !ok || l.InvoiceID != invoiceID {
		return nil, domain.NotFound("invoice time entry")
	}
	delete(f.s.links, timeEntryID)
	return &l, nil
}

func (f *fakeInvoices) DeleteLinksByItem(_ context.Context, itemID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, l := range f.s.links {
		if l.InvoiceItemID != nil && *l.InvoiceItemID == itemID {
			delete(f.s.links, id)
		}
	}
	return nil
}

func (f *fakeInvoices) DeleteLinksByInvoice(_ context.Context, invoiceID string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for id, l := range f.s.links {
		if l.InvoiceID == invoiceID {
			delete(f.s.links, id)
		}
	}
	return nil
}

func (f *fakeInvoices) LinkedSeconds(_ context.Context, itemID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var total int64
	for id, l := range f.s.links {
		if l.InvoiceItemID != nil && *l.InvoiceItemID == itemID {
			e := f.s.entries[id]
			total += e.Seconds()
		}
	}
	return total, nil
}

// ── TimeEntryRepository ───────────────────────────────────────────────────────

type fakeEntries struct {
	repository.TimeEntryRepository
	s *store
}

func (f *fakeEntries) GetByIDs(_ context.Context, teamID string, ids []string) ([]*entity.TimeEntry, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*entity.TimeEntry
	for _, id := range ids {
		if e, ok := f.s.entries[id]; ok && e.TeamID == teamID {
			out = append(out, &e)
		}
	}
	return out, nil
}
