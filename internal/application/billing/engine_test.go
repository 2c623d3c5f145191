package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Tiempo-api/internal/application/billing"
	"github.com/jhoicas/Tiempo-api/internal/application/dto"
	"github.com/jhoicas/Tiempo-api/internal/domain"
	"github.com/jhoicas/Tiempo-api/internal/domain/authz"
	"github.com/jhoicas/Tiempo-api/internal/domain/entity"
)

const teamID = "team-1"

var now = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

// stoppedEntry crea una entrada detenida de la duración indicada.
func stoppedEntry(id, team string, seconds int64) entity.TimeEntry {
	e := entity.TimeEntry{ID: id, TeamID: team, ProjectID: "p1", StartedAt: now.Add(-48 * time.Hour), Billable: true}
	if err := e.Stop(e.StartedAt.Add(time.Duration(seconds)*time.Second), 6000); err != nil {
		panic(err)
	}
	return e
}

type fixture struct {
	store     *store
	engine    *billing.Engine
	conflicts []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: newStore()}
	f.store.clients["c1"] = entity.Client{ID: "c1", TeamID: teamID, Name: "Acme"}
	f.engine = billing.NewEngine(f.store, &fakeInvoices{s: f.store},
		billing.WithClock(func() time.Time { return now }),
		billing.WithConflictHook(func(code string) { f.conflicts = append(f.conflicts, code) }),
	)
	return f
}

func (f *fixture) createInvoice(t *testing.T) *dto.InvoiceResponse {
	t.Helper()
	inv, err := f.engine.CreateInvoice(f.store.ctx(teamID, authz.TeamRoleOwner), dto.CreateInvoiceRequest{ClientID: "c1"})
	require.NoError(t, err)
	return inv
}

// ──────────────────────────────────────────────────────────────────────────────
// Cantidad derivada de entradas enlazadas
// ──────────────────────────────────────────────────────────────────────────────

// Escenario: ítem con entradas de 3600s y 1800s a 6000 → 1.5 / 9000; al quitar
// la de 1800s queda 1.0 / 6000 y el ítem no se borra.
func TestItemDesdeEntradas_AgregarYQuitar(t *testing.T) {
	f := newFixture(t)
	f.store.addEntry(stoppedEntry("e1", teamID, 3600))
	f.store.addEntry(stoppedEntry("e2", teamID, 1800))
	inv := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleBilling)

	resp, err := f.engine.AddInvoiceItem(ctx, inv.ID, dto.AddInvoiceItemRequest{
		Description: "Desarrollo", RateCents: 6000, TimeEntryIDs: []string{"e1", "e2"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	item := resp.Items[0]
	assert.True(t, item.Quantity.Equal(decimal.RequireFromString("1.5")), "quantity=%s", item.Quantity)
	assert.Equal(t, int64(9000), item.AmountCents)
	assert.ElementsMatch(t, []string{"e1", "e2"}, item.TimeEntryIDs)
	assert.Equal(t, int64(9000), resp.SubtotalCents)
	assert.Equal(t, int64(9000), resp.TotalCents)

	resp, err = f.engine.RemoveTimeEntryFromInvoice(ctx, inv.ID, "e2")
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	item = resp.Items[0]
	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(1)), "quantity=%s", item.Quantity)
	assert.Equal(t, int64(6000), item.AmountCents)
	assert.Equal(t, []string{"e1"}, item.TimeEntryIDs)
	assert.Equal(t, int64(6000), resp.SubtotalCents)
}

func TestAddTimeEntries_Idempotente(t *testing.T) {
	f := newFixture(t)
	f.store.addEntry(stoppedEntry("e1", teamID, 3600))
	f.store.addEntry(stoppedEntry("e2", teamID, 1800))
	inv := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)

	resp, err := f.engine.AddInvoiceItem(ctx, inv.ID, dto.AddInvoiceItemRequest{Description: "Soporte", RateCents: 6000, TimeEntryIDs: []string{"e1"}})
	require.NoError(t, err)
	itemID := resp.Items[0].ID

	first, err := f.engine.AddTimeEntriesToInvoiceItem(ctx, inv.ID, itemID, []string{"e2", "e2"})
	require.NoError(t, err)
	second, err := f.engine.AddTimeEntriesToInvoiceItem(ctx, inv.ID, itemID, []string{"e2"})
	require.NoError(t, err)

	require.Len(t, second.Items, 1)
	assert.True(t, first.Items[0].Quantity.Equal(second.Items[0].Quantity))
	assert.Equal(t, first.Items[0].AmountCents, second.Items[0].AmountCents)
	assert.Equal(t, first.Items[0].TimeEntryIDs, second.Items[0].TimeEntryIDs)
	assert.Equal(t, first.TotalCents, second.TotalCents)
	assert.Equal(t, int64(9000), second.TotalCents)
}

func TestRecalculate_Idempotente(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)
	tax := decimal.NewFromInt(19)
	_, err := f.engine.UpdateInvoice(ctx, inv.ID, dto.UpdateInvoiceRequest{TaxRatePercent: &tax})
	require.NoError(t, err)
	_, err = f.engine.AddInvoiceItem(ctx, inv.ID, dto.AddInvoiceItemRequest{Description: "Licencia", Quantity: decimal.RequireFromString("2.5"), RateCents: 3333})
	require.NoError(t, err)

	first, err := f.engine.RecalculateInvoiceTotals(ctx, inv.ID)
	require.NoError(t, err)
	second, err := f.engine.RecalculateInvoiceTotals(ctx, inv.ID)
	require.NoError(t, err)

	// 2.5 * 3333 = 8332.5 → 8333; 19% = 1583.27 → 1583
	assert.Equal(t, int64(8333), first.SubtotalCents)
	assert.Equal(t, int64(1583), first.TaxAmountCents)
	assert.Equal(t, int64(9916), first.TotalCents)
	assert.Equal(t, first.SubtotalCents, second.SubtotalCents)
	assert.Equal(t, first.TaxAmountCents, second.TaxAmountCents)
	assert.Equal(t, first.TotalCents, second.TotalCents)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sin doble facturación
// ──────────────────────────────────────────────────────────────────────────────

func TestDobleFacturacion_ConflictoSinCambios(t *testing.T) {
	f := newFixture(t)
	f.store.addEntry(stoppedEntry("e1", teamID, 3600))
	a := f.createInvoice(t)
	b := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)

	_, err := f.engine.AddInvoiceItem(ctx, a.ID, dto.AddInvoiceItemRequest{Description: "A", RateCents: 6000, TimeEntryIDs: []string{"e1"}})
	require.NoError(t, err)
	before := f.store.invoice(b.ID)

	_, err = f.engine.AddInvoiceItem(ctx, b.ID, dto.AddInvoiceItemRequest{Description: "B", RateCents: 6000, TimeEntryIDs: []string{"e1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeEntryAlreadyBilled)
	assert.Contains(t, err.Error(), a.Number)

	after := f.store.invoice(b.ID)
	assert.Equal(t, before.TotalCents, after.TotalCents)
	assert.Zero(t, f.store.itemCount(b.ID), "el ítem de B se revierte")
	assert.Equal(t, []string{"TIME_ENTRY_ALREADY_BILLED"}, f.conflicts)
}

// Escenario: la verificación previa pasa pero otra transacción gana el UNIQUE.
func TestCarreraEnUnique_MismoConflicto(t *testing.T) {
	f := newFixture(t)
	f.store.addEntry(stoppedEntry("e1", teamID, 3600))
	winner := f.createInvoice(t)
	loser := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)

	f.store.raceWinner = winner.ID
	_, err := f.engine.AddInvoiceItem(ctx, loser.ID, dto.AddInvoiceItemRequest{Description: "B", RateCents: 6000, TimeEntryIDs: []string{"e1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeEntryAlreadyBilled)
	assert.Contains(t, err.Error(), winner.Number)
	assert.Zero(t, f.store.itemCount(loser.ID))
	assert.Zero(t, f.store.invoice(loser.ID).TotalCents)
}

func TestCancelar_LiberaEntradas(t *testing.T) {
	f := newFixture(t)
	f.store.addEntry(stoppedEntry("e1", teamID, 3600))
	a := f.createInvoice(t)
	b := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)

	_, err := f.engine.AddInvoiceItem(ctx, a.ID, dto.AddInvoiceItemRequest{Description: "A", RateCents: 6000, TimeEntryIDs: []string{"e1"}})
	require.NoError(t, err)
	cancelled, err := f.engine.CancelInvoice(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", cancelled.Status)

	_, err = f.engine.AddInvoiceItem(ctx, b.ID, dto.AddInvoiceItemRequest{Description: "B", RateCents: 6000, TimeEntryIDs: []string{"e1"}})
	assert.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Estados y validaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestFacturaEnviada_SoloLectura(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)

	sent, err := f.engine.SendInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "sent", sent.Status)

	_, err = f.engine.AddInvoiceItem(ctx, inv.ID, dto.AddInvoiceItemRequest{Description: "x", Quantity: decimal.NewFromInt(1), RateCents: 100})
	assert.ErrorIs(t, err, domain.ErrInvoiceNotDraft)

	_, err = f.engine.SendInvoice(ctx, inv.ID)
	require.Error(t, err)
	assert.Equal(t, "invoice must be draft to send", err.Error())

	_, err = f.engine.RecalculateInvoiceTotals(ctx, inv.ID)
	assert.NoError(t, err, "recalcular se permite en cualquier estado")

	paid, err := f.engine.MarkInvoicePaid(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)

	_, err = f.engine.CancelInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, f.engine.DeleteInvoice(ctx, inv.ID), domain.ErrInvoiceNotDraft)
}

func TestEntradas_Validaciones(t *testing.T) {
	f := newFixture(t)
	running := entity.TimeEntry{ID: "run", TeamID: teamID, ProjectID: "p1", StartedAt: now, Billable: true}
	f.store.addEntry(running)
	f.store.addEntry(stoppedEntry("ajena", "team-2", 3600))
	inv := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)

	_, err := f.engine.AddInvoiceItem(ctx, inv.ID, dto.AddInvoiceItemRequest{Description: "x", RateCents: 1, TimeEntryIDs: []string{"run"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.AddInvoiceItem(ctx, inv.ID, dto.AddInvoiceItemRequest{Description: "x", RateCents: 1, TimeEntryIDs: []string{"ajena"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Zero(t, f.store.itemCount(inv.ID))
}

func TestUpdateItem_CantidadDerivadaNoEditable(t *testing.T) {
	f := newFixture(t)
	f.store.addEntry(stoppedEntry("e1", teamID, 3600))
	inv := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)
	resp, err := f.engine.AddInvoiceItem(ctx, inv.ID, dto.AddInvoiceItemRequest{Description: "x", RateCents: 6000, TimeEntryIDs: []string{"e1"}})
	require.NoError(t, err)
	itemID := resp.Items[0].ID

	q := decimal.NewFromInt(3)
	_, err = f.engine.UpdateInvoiceItem(ctx, inv.ID, itemID, dto.UpdateInvoiceItemRequest{Quantity: &q})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	rate := int64(8000)
	resp, err = f.engine.UpdateInvoiceItem(ctx, inv.ID, itemID, dto.UpdateInvoiceItemRequest{RateCents: &rate})
	require.NoError(t, err)
	assert.Equal(t, int64(8000), resp.Items[0].AmountCents)
	assert.Equal(t, int64(8000), resp.TotalCents)
}

func TestDeleteItem_LiberaEnlaces(t *testing.T) {
	f := newFixture(t)
	f.store.addEntry(stoppedEntry("e1", teamID, 3600))
	inv := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)
	resp, err := f.engine.AddInvoiceItem(ctx, inv.ID, dto.AddInvoiceItemRequest{Description: "x", RateCents: 6000, TimeEntryIDs: []string{"e1"}})
	require.NoError(t, err)

	resp, err = f.engine.DeleteInvoiceItem(ctx, inv.ID, resp.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Empty(t, resp.UnassignedTimeEntryIDs)
	assert.Zero(t, resp.TotalCents)
}

func TestImpuestoFueraDeRango(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)
	tax := decimal.NewFromInt(101)
	_, err := f.engine.UpdateInvoice(f.store.ctx(teamID, authz.TeamRoleOwner), inv.ID, dto.UpdateInvoiceRequest{TaxRatePercent: &tax})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Autorización y creación
// ──────────────────────────────────────────────────────────────────────────────

func TestMemberSinAccesoAFacturas_AntesDeCualquierSentencia(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)
	f.store.locks = 0

	_, err := f.engine.AddInvoiceItem(f.store.ctx(teamID, authz.TeamRoleMember), inv.ID, dto.AddInvoiceItemRequest{Description: "x", RateCents: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, f.store.locks)
}

func TestFacturaDeOtroEquipo_NotFound(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)
	_, err := f.engine.GetInvoiceWithItems(f.store.ctx("team-2", authz.TeamRoleOwner), inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.RecalculateInvoiceTotals(f.store.ctx("team-2", authz.TeamRoleOwner), inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateInvoice_NumeracionYDuplicado(t *testing.T) {
	f := newFixture(t)
	first := f.createInvoice(t)
	second := f.createInvoice(t)
	assert.Equal(t, "INV-0001", first.Number)
	assert.Equal(t, "INV-0002", second.Number)
	assert.Equal(t, "draft", first.Status)
	assert.Equal(t, "Acme", first.ClientName)

	_, err := f.engine.CreateInvoice(f.store.ctx(teamID, authz.TeamRoleOwner), dto.CreateInvoiceRequest{ClientID: "c1", Number: "INV-0001"})
	var de *domain.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "INVOICE_NUMBER_TAKEN", de.Code)

	_, err = f.engine.CreateInvoice(f.store.ctx(teamID, authz.TeamRoleOwner), dto.CreateInvoiceRequest{ClientID: "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteInvoice_Borrador(t *testing.T) {
	f := newFixture(t)
	inv := f.createInvoice(t)
	ctx := f.store.ctx(teamID, authz.TeamRoleOwner)
	require.NoError(t, f.engine.DeleteInvoice(ctx, inv.ID))
	_, err := f.engine.GetInvoiceWithItems(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
